// Package worker drives one target host through a session: connect, prepare
// the host, interpret the script list and clean up afterwards.
package worker

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ssh-helper/internal/remote"
	"ssh-helper/internal/session"
	"ssh-helper/internal/tools"
)

// DefaultTempRoot is where session directories live, relative to the remote
// user's home.
const DefaultTempRoot = ".local/share/ssh_helper_temp"

// Host describes one target.
type Host struct {
	Host     string
	User     string
	Password string
	Port     int
}

// String renders the host as user@host, the form used for log file names.
func (h Host) String() string { return h.User + "@" + h.Host }

// Outcome is the recorded result of one operation.
type Outcome struct {
	Op       string
	Name     string
	ExitCode int
	Log      string
	Err      string
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.ExitCode == 0 && o.Err == "" }

// Options holds the collaborators and settings shared by all workers of a
// session.
type Options struct {
	// TempRoot overrides DefaultTempRoot.
	TempRoot string
	// PublicKey is the local public key line installed into the remote
	// authorized_keys. Empty skips that step.
	PublicKey string
	// LocalHome expands "~" in download destinations.
	LocalHome string
	// Local runs mkdir and scp on this machine for downloads.
	Local  tools.CommandRunner
	Now    func() time.Time
	Logger zerolog.Logger
}

// Worker is the state of one host during a session. Run and Drain must not
// be called concurrently.
type Worker struct {
	host   Host
	ch     remote.Channel
	shared *session.Shared
	out    io.Writer
	opts   Options
	log    zerolog.Logger

	mu       sync.Mutex
	state    State
	err      error
	outcomes []Outcome

	connected    bool
	home         string
	sharedDir    string
	askpassReady bool
}

// New prepares a worker for h. Outcome lines are appended to out.
func New(h Host, ch remote.Channel, shared *session.Shared, out io.Writer, opts Options) *Worker {
	if opts.TempRoot == "" {
		opts.TempRoot = DefaultTempRoot
	}
	if opts.Local == nil {
		opts.Local = tools.ExecRunner{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if out == nil {
		out = io.Discard
	}
	if h.Port == 0 {
		h.Port = 22
	}
	return &Worker{
		host:   h,
		ch:     ch,
		shared: shared,
		out:    out,
		opts:   opts,
		log:    opts.Logger.With().Str("host", h.Host).Str("user", h.User).Logger(),
	}
}

// Host is the target this worker drives.
func (w *Worker) Host() Host { return w.host }

// State is the current lifecycle position.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err is the error that failed the worker, if any.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Outcomes returns the operations recorded so far, in execution order.
func (w *Worker) Outcomes() []Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Outcome(nil), w.outcomes...)
}

// Connected reports whether the worker got past Connecting.
func (w *Worker) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateFailed {
		return
	}
	w.state = s
}

func (w *Worker) fail(err error) error {
	w.mu.Lock()
	w.state = StateFailed
	w.err = err
	w.mu.Unlock()
	w.log.Error().Err(err).Msg("worker failed")
	return err
}

// Run connects, prepares the host and interprets the session's script list.
// The returned error has already been recorded on the worker.
func (w *Worker) Run(ctx context.Context) error {
	w.setState(StateConnecting)
	w.log.Info().Int("port", w.host.Port).Msg("connecting")
	if err := w.ch.Connect(w.host.User, w.host.Password); err != nil {
		return w.fail(fmt.Errorf("%w: %v", ErrTransport, err))
	}
	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()

	w.setState(StateBootstrapping)
	if err := w.bootstrap(); err != nil {
		return w.fail(err)
	}

	w.setState(StateRunning)
	if err := w.run(ctx, w.shared.Scripts); err != nil {
		return w.fail(err)
	}
	w.log.Info().Msg("scripts finished")
	return nil
}

// tempRoot is the absolute directory holding every session directory.
func (w *Worker) tempRoot() string {
	if path.IsAbs(w.opts.TempRoot) {
		return w.opts.TempRoot
	}
	return path.Join(w.home, w.opts.TempRoot)
}

func (w *Worker) bootstrap() error {
	r, err := w.ch.RunCapture(`printf '%s' "$HOME"`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	w.home = strings.TrimSpace(string(r.Output))
	if w.home == "" {
		w.home = "/home/" + w.host.User
	}
	w.sharedDir = path.Join(w.tempRoot(), w.shared.ID)

	dir := remote.QuotePath(w.sharedDir)
	if err := w.mustRun("mkdir -p " + dir + " && chmod 700 " + dir); err != nil {
		return fmt.Errorf("%w: shared folder %s: %v", ErrBootstrap, w.sharedDir, err)
	}

	key := strings.TrimSpace(w.opts.PublicKey)
	if key == "" {
		return nil
	}
	if err := w.mustRun("mkdir -p ~/.ssh && chmod 700 ~/.ssh"); err != nil {
		return fmt.Errorf("%w: ~/.ssh: %v", ErrBootstrap, err)
	}
	q := remote.ShellQuote(key)
	r, err = w.ch.Run("grep -qxF " + q + " ~/.ssh/authorized_keys")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if r.ExitCode == 0 {
		return nil
	}
	if err := w.mustRun("printf '\\n%s\\n' " + q + " >> ~/.ssh/authorized_keys"); err != nil {
		return fmt.Errorf("%w: public key cannot be added to %s: %v", ErrBootstrap, w.host, err)
	}
	w.log.Info().Msg("public key installed")
	return nil
}

// mustRun runs command and turns a non-zero exit into an error.
func (w *Worker) mustRun(command string) error {
	r, err := w.ch.Run(command)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if !r.OK() {
		return fmt.Errorf("%q exited %d", command, r.ExitCode)
	}
	return nil
}

// record appends an outcome line to the host log. The line is
// "<name>: OK|FAIL" when log is empty and "<name>: <log>" otherwise.
func (w *Worker) record(name, op string, code int, log string, opErr error) {
	o := Outcome{Op: op, Name: name, ExitCode: code, Log: log}
	if opErr != nil {
		o.Err = opErr.Error()
	}
	w.mu.Lock()
	w.outcomes = append(w.outcomes, o)
	w.mu.Unlock()

	line := log
	switch {
	case line == "" && o.OK():
		line = "OK\n"
	case line == "":
		line = "FAIL\n"
	case !strings.HasSuffix(line, "\n"):
		line += "\n"
	}
	if _, err := io.WriteString(w.out, name+": "+line); err != nil {
		w.log.Warn().Err(err).Msg("write host log")
	}

	ev := w.log.Info()
	if !o.OK() {
		ev = w.log.Warn()
	}
	ev.Str("op", op).Str("name", name).Int("exit", code).Str("err", o.Err).Msg("operation finished")
}
