package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	srv "ssh-helper/tools/sshserv"
)

func main() {
	addr := pflag.String("listen", "127.0.0.1:20222", "address to listen on")
	user := pflag.String("user", "", "accepted user (empty accepts any)")
	password := pflag.String("password", "", "accepted password (empty accepts any)")
	dir := pflag.String("dir", ".", "working directory for executed commands")
	pflag.Parse()

	bound, stop, err := srv.Start(*addr, srv.Config{
		User:     *user,
		Password: *password,
		Handler:  srv.ShellHandler(*dir),
	})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "failed to start test ssh server:", err)
		os.Exit(1)
	}
	_, _ = fmt.Fprintln(os.Stderr, "test ssh server listening on", bound)
	defer stop()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
