// Package remote defines the operations a host worker needs from a remote
// shell transport and implements them over SSH.
package remote

import "errors"

// NotPrivileged is the exit code reported by the privileged run variants
// when the remote user cannot use sudo.
const NotPrivileged = -1

var (
	ErrNotConnected = errors.New("not connected")
	ErrTransport    = errors.New("transport")
)

// Result is the outcome of one remote command.
type Result struct {
	ExitCode int
	// Output is only filled by the capturing variants.
	Output []byte
	// Log holds the text of every "##log:" line the command printed.
	Log string
}

// OK reports a zero exit code.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Channel is a connected remote shell. Every call is a synchronous round
// trip; a returned error means the transport failed, not the command.
type Channel interface {
	Connect(user, password string) error
	// Run executes command, streaming its combined output locally.
	Run(command string) (Result, error)
	// RunInput is Run with stdin fed to the remote process.
	RunInput(command string, stdin []byte) (Result, error)
	// RunCapture returns the combined output instead of streaming it.
	RunCapture(command string) (Result, error)
	// RunPrivileged runs command through sudo after probing that sudo works.
	// A failed probe yields ExitCode NotPrivileged.
	RunPrivileged(command string) (Result, error)
	RunPrivilegedCapture(command string) (Result, error)
	// PushFile copies a local file to remotePath, creating parent dirs.
	PushFile(localPath, remotePath string) error
	// PushText writes content to remotePath, creating parent dirs.
	PushText(content, remotePath string) error
	Close() error
}
