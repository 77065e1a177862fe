package cmd

import (
	"io"
	"os"

	"ssh-helper/internal/orchestrator"
	"ssh-helper/internal/tools"
)

// Version is the CLI version string injected at build time via -ldflags.
var Version = "0.1.0"

var (
	// Flags that only make sense on the command line. Everything that may
	// also come from the environment or the settings file goes through viper.
	cfgStdin     bool
	cfgPrintTree bool
)

// Allow tests to stub dialing, local commands and the password prompt.
var (
	newChannelFunc   orchestrator.ChannelFactory
	localRunner      tools.CommandRunner
	stdinReader      io.Reader = os.Stdin
	readPasswordFunc           = promptPassword
)
