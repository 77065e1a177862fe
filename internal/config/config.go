// Package config loads the optional TOML settings file. Values it defines
// replace the built-in defaults; command-line flags and environment
// variables are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings are the tunables that may come from the settings file.
type Settings struct {
	LogPath       string
	Serial        bool
	KeyPath       string
	Passphrase    string
	KnownHosts    string
	StrictHostKey bool
	ConnTimeout   time.Duration
	TempRoot      string
	GenerateKeys  bool
	LogLevel      string
	ReportPath    string
}

type fileConfig struct {
	LogPath       string `toml:"log_path"`
	NoMulti       bool   `toml:"no_multi"`
	Key           string `toml:"key"`
	Passphrase    string `toml:"passphrase"`
	KnownHosts    string `toml:"known_hosts"`
	StrictHostKey bool   `toml:"strict_host_key"`
	ConnTimeout   string `toml:"conn_timeout"`
	TempRoot      string `toml:"temp_root"`
	GenerateKeys  bool   `toml:"generate_keys"`
	LogLevel      string `toml:"log_level"`
	Report        string `toml:"report"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	home, _ := os.UserHomeDir()
	return Settings{
		LogPath:      ".",
		KeyPath:      filepath.Join(home, ".ssh", "id_rsa"),
		KnownHosts:   filepath.Join(home, ".ssh", "known_hosts"),
		ConnTimeout:  10 * time.Second,
		TempRoot:     ".local/share/ssh_helper_temp",
		GenerateKeys: true,
		LogLevel:     "info",
	}
}

// LoadFile reads path over Defaults.
func LoadFile(path string) (Settings, error) {
	cfg := Defaults()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fmt.Errorf("load settings: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("log_path") {
		cfg.LogPath = strings.TrimSpace(raw.LogPath)
	}
	if meta.IsDefined("no_multi") {
		cfg.Serial = raw.NoMulti
	}
	if meta.IsDefined("key") {
		cfg.KeyPath = expandHome(strings.TrimSpace(raw.Key))
	}
	if meta.IsDefined("passphrase") {
		cfg.Passphrase = raw.Passphrase
	}
	if meta.IsDefined("known_hosts") {
		cfg.KnownHosts = expandHome(strings.TrimSpace(raw.KnownHosts))
	}
	if meta.IsDefined("strict_host_key") {
		cfg.StrictHostKey = raw.StrictHostKey
	}
	if meta.IsDefined("conn_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnTimeout))
		if err != nil {
			return Settings{}, fmt.Errorf("parse conn_timeout: %w", err)
		}
		cfg.ConnTimeout = d
	}
	if meta.IsDefined("temp_root") {
		cfg.TempRoot = strings.TrimSpace(raw.TempRoot)
	}
	if meta.IsDefined("generate_keys") {
		cfg.GenerateKeys = raw.GenerateKeys
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("report") {
		cfg.ReportPath = strings.TrimSpace(raw.Report)
	}
	return cfg, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
