package cmd

import "ssh-helper/internal/config"

// init registers the flags, binds them to SSH_HELPER_* environment variables
// and adds the subcommands.
func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
	d := config.Defaults()

	f := rootCmd.Flags()
	f.BoolVar(&cfgStdin, "stdin", false, "Read the password from standard input")
	f.String("password", "", "Password for hosts that do not set one (or set SSH_HELPER_PASSWORD)")
	f.Bool("no-multi", false, "Run the hosts one by one instead of in parallel")
	f.String("log-path", d.LogPath, "Directory receiving one user@host.txt log per host")
	f.String("key", d.KeyPath, "Local private key; its .pub is installed on every host")
	f.String("passphrase", "", "Private key passphrase (or set SSH_HELPER_PASSPHRASE)")
	f.String("known-hosts", d.KnownHosts, "Path to known_hosts file")
	f.Bool("strict-host-key", d.StrictHostKey, "Require host key verification")
	f.Duration("conn-timeout", d.ConnTimeout, "Connection timeout")
	f.String("temp-root", d.TempRoot, "Session folder root on the hosts, relative to the remote home")
	f.Bool("generate-keys", d.GenerateKeys, "Create the local key pair with ssh-keygen when it is missing")
	f.String("report", "", "Write a YAML run report to this path")
	f.BoolVar(&cfgPrintTree, "print-tree", false, "Print the parsed scripts file before running it")

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "TOML settings file")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error or disabled")

	bindEnv()

	rootCmd.AddCommand(verifyCmd)
}
