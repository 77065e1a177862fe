package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Execute runs the root command and exits with the code carried by its
// error. SIGINT and SIGTERM cancel the run.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	code := exitBadArgs
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.Code
	}
	_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
	if code == exitBadArgs || code == exitNoScripts {
		_, _ = fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", rootCmd.CommandPath())
	}
	exitFunc(code)
}
