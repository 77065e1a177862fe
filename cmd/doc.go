// Package cmd implements the ssh-helper command-line interface.
//
// The root command parses a scripts file, resolves the shared password and
// runs every script on every host listed in it. The verify subcommand only
// parses the file and prints the tree back.
//
// Start with rootCmd.go for the run flow, init.go for flag and environment
// wiring, and settings.go for how the settings file, environment variables
// and flags are merged.
package cmd
