package worker

import "errors"

var (
	// ErrConfigShape reports a missing required tag or a node of the wrong
	// kind. It aborts the worker.
	ErrConfigShape = errors.New("config shape")
	// ErrTransport reports a failed connection, exec or transfer. It aborts
	// the worker.
	ErrTransport = errors.New("transport")
	// ErrPrivilege marks an operation that needed sudo on a host where the
	// user cannot elevate. It fails the operation only.
	ErrPrivilege = errors.New("not a sudoer")
	// ErrIntegrity marks an upload whose content hash did not match. It
	// fails the operation only.
	ErrIntegrity = errors.New("content hash mismatch")
	// ErrStopOnError aborts the worker after a script flagged stop_on_error
	// exits non-zero.
	ErrStopOnError = errors.New("stop on error")
	// ErrBootstrap reports a failure preparing the host for the session.
	ErrBootstrap = errors.New("bootstrap")
)
