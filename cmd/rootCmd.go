package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ssh-helper/internal/configtree"
	"ssh-helper/internal/orchestrator"
	"ssh-helper/internal/remote"
	"ssh-helper/internal/report"
	"ssh-helper/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "ssh-helper scripts_file",
	Short: "Run scripts on a set of hosts over SSH",
	Long: "Reads a tab-indented scripts file listing hosts and scripts, connects to every host over SSH and " +
		"runs the scripts on each of them. One user@host.txt log per host records the outcome of every script.",
	Version:       Version,
	Args:          scriptsFileArg,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScripts,
}

func scriptsFileArg(_ *cobra.Command, args []string) error {
	switch len(args) {
	case 0:
		return newExitError(exitNoScripts, "no scripts file has been set", nil)
	case 1:
		return nil
	default:
		return newExitError(exitBadArgs, fmt.Sprintf("unknown argument %q", args[1]), nil)
	}
}

func runScripts(cmd *cobra.Command, args []string) error {
	scriptsFile := args[0]
	settings, err := loadSettings()
	if err != nil {
		return newExitError(exitBadArgs, "invalid settings", err)
	}
	log, err := newLogger(settings.LogLevel)
	if err != nil {
		return newExitError(exitBadArgs, "", err)
	}

	tree, err := configtree.ParseFile(scriptsFile, orchestrator.AllowedTags)
	if err != nil {
		return newExitError(exitRuntime, "", err)
	}
	out := cmd.OutOrStdout()
	if cfgPrintTree {
		if err := configtree.Serialize(out, tree); err != nil {
			return newExitError(exitRuntime, "print tree", err)
		}
	}

	password, err := resolvePassword(viper.GetString("password"), cfgStdin)
	if err != nil {
		return newExitError(exitNoPassword, "", err)
	}

	hostname, _ := os.Hostname()
	sessionID := session.NewID(time.Now(), os.Getenv("USER"), hostname)
	_, _ = fmt.Fprintf(out, "Session id: %s\n", sessionID)

	keyPath := settings.KeyPath
	sum, err := orchestrator.Run(cmd.Context(), tree, orchestrator.Options{
		Password:     password,
		Serial:       settings.Serial,
		LogPath:      settings.LogPath,
		TempRoot:     settings.TempRoot,
		KeyPath:      keyPath,
		GenerateKeys: settings.GenerateKeys,
		Dial: remote.DialOptions{
			KeyPath:        keyPath,
			Passphrase:     settings.Passphrase,
			KnownHostsPath: settings.KnownHosts,
			StrictHostKey:  settings.StrictHostKey,
			Timeout:        settings.ConnTimeout,
		},
		SessionID:  sessionID,
		NewChannel: newChannelFunc,
		Local:      localRunner,
		Logger:     log,
	})
	if err != nil {
		return newExitError(exitRuntime, "", err)
	}

	for _, h := range sum.Hosts {
		if h.Err != nil {
			_, _ = fmt.Fprintf(out, "%s: %s: %v\n", h.Host, h.State, h.Err)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s: %s\n", h.Host, h.State)
	}

	if settings.ReportPath != "" {
		if err := report.WriteFile(settings.ReportPath, report.FromSummary(sum, scriptsFile)); err != nil {
			return newExitError(exitRuntime, "failed to write report", err)
		}
		log.Info().Str("path", settings.ReportPath).Msg("report written")
	}

	_, _ = fmt.Fprintf(out, " *** Finish *** %d host(s), %d failed\n", len(sum.Hosts), sum.Failed())
	return nil
}
