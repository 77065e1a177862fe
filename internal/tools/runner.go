package tools

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"sync"
)

// CommandRunner abstracts local command execution so callers can be tested
// without spawning processes.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, []byte, int32, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

func (ExecRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	cmd := exec.Command(name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), int32(exitErr.ExitCode()), err
	}

	exitCode := int32(1)
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = 127
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}

// RecordingRunner records invocations and answers them from Handler, or with
// success when Handler is nil. It is safe for concurrent use.
type RecordingRunner struct {
	Handler func(name string, args ...string) ([]byte, []byte, int32, error)

	mu    sync.Mutex
	calls []string
}

func (r *RecordingRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	r.mu.Lock()
	r.calls = append(r.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	r.mu.Unlock()
	if r.Handler == nil {
		return nil, nil, 0, nil
	}
	return r.Handler(name, args...)
}

// Calls returns the recorded command lines.
func (r *RecordingRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
