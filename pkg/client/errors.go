package client

import (
	"errors"
	"syscall"
)

var (
	// ErrDaemonNotRunning is returned when the daemon socket is absent or refuses connections
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied is returned when the user may not open the daemon socket
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the daemon
	ErrNotFound = errors.New("404 not found")
)

// Error is a failure reported by the daemon.
type Error struct {
	Status  int
	Kind    string
	Message string

	sentinel error
}

func (e *Error) Error() string { return e.Message }

// Unwrap returns the daemon-side sentinel for Kind, so errors.Is(err,
// stage.ErrPrecondition) holds on the client too.
func (e *Error) Unwrap() error { return e.sentinel }

func isConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
