// Package orchestrator runs a parsed scripts file across its hosts: it
// splits the tree, starts one worker per host, waits for them and drains
// their remote state.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ssh-helper/internal/configtree"
	"ssh-helper/internal/remote"
	"ssh-helper/internal/session"
	"ssh-helper/internal/tools"
	"ssh-helper/internal/worker"
)

// ChannelFactory returns an unconnected channel for h.
type ChannelFactory func(h worker.Host) remote.Channel

// Options configures a run.
type Options struct {
	// Password is used for hosts that do not set their own.
	Password string
	// Serial runs hosts one after another instead of all at once.
	Serial bool
	// LogPath is the directory receiving one user@host.txt per host.
	LogPath string
	// TempRoot overrides where session folders live on the hosts.
	TempRoot string
	// KeyPath is the local private key; its .pub is installed on every host.
	// Empty skips key handling.
	KeyPath string
	// GenerateKeys creates KeyPath with ssh-keygen when it is missing.
	GenerateKeys bool
	Dial         remote.DialOptions
	// SessionID overrides the generated session id.
	SessionID string
	LocalUser string
	LocalHost string
	LocalHome string

	NewChannel ChannelFactory
	Local      tools.CommandRunner
	Now        func() time.Time
	Logger     zerolog.Logger
}

// HostResult is the end state of one host.
type HostResult struct {
	Host     worker.Host
	LogFile  string
	State    worker.State
	Err      error
	Outcomes []worker.Outcome
}

// Summary describes a finished run.
type Summary struct {
	SessionID string
	Started   time.Time
	Finished  time.Time
	Hosts     []HostResult
}

// Failed counts hosts whose worker failed.
func (s *Summary) Failed() int {
	n := 0
	for _, h := range s.Hosts {
		if h.State == worker.StateFailed {
			n++
		}
	}
	return n
}

func (o *Options) defaults() {
	if o.Local == nil {
		o.Local = tools.ExecRunner{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.LogPath == "" {
		o.LogPath = "."
	}
	if o.LocalUser == "" {
		o.LocalUser = os.Getenv("USER")
	}
	if o.LocalHost == "" {
		o.LocalHost, _ = os.Hostname()
	}
	if o.LocalHome == "" {
		o.LocalHome, _ = os.UserHomeDir()
	}
	if o.NewChannel == nil {
		dial, log := o.Dial, o.Logger
		o.NewChannel = func(h worker.Host) remote.Channel {
			return remote.NewSSH(h.Host, h.Port, dial, log.With().Str("host", h.Host).Logger())
		}
	}
}

// Run executes tree. Errors in the tree or local setup abort before any host
// is contacted; host failures are reported in the Summary instead.
func Run(ctx context.Context, tree *configtree.List, opts Options) (*Summary, error) {
	opts.defaults()
	log := opts.Logger

	plan, err := Split(tree, opts.Password)
	if err != nil {
		return nil, err
	}

	var pubKey string
	if opts.KeyPath != "" {
		if opts.GenerateKeys {
			generated, err := EnsureKeyPair(opts.Local, opts.KeyPath)
			if err != nil {
				return nil, fmt.Errorf("key pair: %w", err)
			}
			if generated {
				log.Info().Str("path", opts.KeyPath).Msg("generated local key pair")
			}
		}
		if pubKey, err = ReadPublicKey(opts.KeyPath + ".pub"); err != nil {
			return nil, fmt.Errorf("public key: %w", err)
		}
	}

	now := opts.Now()
	id := opts.SessionID
	if id == "" {
		id = session.NewID(now, opts.LocalUser, opts.LocalHost)
	}
	shared := session.New(id, plan.Scripts)
	log.Info().Str("session", id).Int("hosts", len(plan.Hosts)).Msg("session started")

	if err := os.MkdirAll(opts.LogPath, 0o755); err != nil {
		return nil, fmt.Errorf("log path: %w", err)
	}
	files := make([]*os.File, 0, len(plan.Hosts))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	workers := make([]*worker.Worker, 0, len(plan.Hosts))
	wopts := worker.Options{
		TempRoot:  opts.TempRoot,
		PublicKey: pubKey,
		LocalHome: opts.LocalHome,
		Local:     opts.Local,
		Now:       opts.Now,
		Logger:    log,
	}
	for _, h := range plan.Hosts {
		p := filepath.Join(opts.LogPath, h.String()+".txt")
		f, err := os.Create(p)
		if err != nil {
			return nil, fmt.Errorf("log file %s cannot be opened: %w", p, err)
		}
		files = append(files, f)
		workers = append(workers, worker.New(h, opts.NewChannel(h), shared, f, wopts))
	}

	if opts.Serial {
		for _, w := range workers {
			_ = w.Run(ctx)
		}
	} else {
		var g errgroup.Group
		for _, w := range workers {
			w := w
			g.Go(func() error {
				_ = w.Run(ctx)
				return nil
			})
		}
		_ = g.Wait()
	}

	log.Info().Msg("cleaning temp folders")
	for _, w := range workers {
		if err := w.Drain(); err != nil {
			log.Warn().Err(err).Str("host", w.Host().Host).Msg("drain")
		}
	}

	sum := &Summary{SessionID: id, Started: now, Finished: opts.Now()}
	for i, w := range workers {
		sum.Hosts = append(sum.Hosts, HostResult{
			Host:     w.Host(),
			LogFile:  files[i].Name(),
			State:    w.State(),
			Err:      w.Err(),
			Outcomes: w.Outcomes(),
		})
	}
	log.Info().Int("failed", sum.Failed()).Msg("session finished")
	return sum, nil
}
