package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ssh-helper/internal/config"
	"ssh-helper/internal/logging"
)

const envPrefix = "SSH_HELPER"

// viperKeys are the flags that may also be set as SSH_HELPER_* variables.
var viperKeys = []string{
	"config", "password", "no-multi", "log-path", "key", "passphrase",
	"known-hosts", "strict-host-key", "conn-timeout", "temp-root",
	"generate-keys", "report", "log-level",
}

// bindEnv wires the flags to viper. Keys keep their dashes; the environment
// spells them with underscores (log-path -> SSH_HELPER_LOG_PATH).
func bindEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, key := range viperKeys {
		f := rootCmd.Flags().Lookup(key)
		if f == nil {
			f = rootCmd.PersistentFlags().Lookup(key)
		}
		_ = viper.BindPFlag(key, f)
	}
}

// normalizeFlagName makes --log_path and --log-path the same flag.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// loadSettings starts from the built-in defaults, applies the settings file
// named by --config and then every flag or environment variable that was
// actually given.
func loadSettings() (config.Settings, error) {
	s := config.Defaults()
	if path := viper.GetString("config"); path != "" {
		var err error
		if s, err = config.LoadFile(path); err != nil {
			return config.Settings{}, err
		}
	}

	if viper.IsSet("log-path") {
		s.LogPath = viper.GetString("log-path")
	}
	if viper.IsSet("no-multi") {
		s.Serial = viper.GetBool("no-multi")
	}
	if viper.IsSet("key") {
		s.KeyPath = viper.GetString("key")
	}
	if viper.IsSet("passphrase") {
		s.Passphrase = viper.GetString("passphrase")
	}
	if viper.IsSet("known-hosts") {
		s.KnownHosts = viper.GetString("known-hosts")
	}
	if viper.IsSet("strict-host-key") {
		s.StrictHostKey = viper.GetBool("strict-host-key")
	}
	if viper.IsSet("conn-timeout") {
		s.ConnTimeout = viper.GetDuration("conn-timeout")
		if s.ConnTimeout <= 0 {
			return config.Settings{}, fmt.Errorf("conn-timeout must be positive, got %q", viper.GetString("conn-timeout"))
		}
	}
	if viper.IsSet("temp-root") {
		s.TempRoot = viper.GetString("temp-root")
	}
	if viper.IsSet("generate-keys") {
		s.GenerateKeys = viper.GetBool("generate-keys")
	}
	if viper.IsSet("report") {
		s.ReportPath = viper.GetString("report")
	}
	if viper.IsSet("log-level") {
		s.LogLevel = viper.GetString("log-level")
	}
	return s, nil
}

func newLogger(level string) (zerolog.Logger, error) {
	log := logging.ConfigureRuntime()
	if level == "" {
		return log, nil
	}
	lvl, ok := logging.ParseLevel(level)
	if !ok {
		return log, fmt.Errorf("unknown log level %q", level)
	}
	return log.Level(lvl), nil
}
