// Package channel abstracts the byte link to the stage firmware.
//
// Production code talks to a USB serial adapter located by vendor/product ID
// (Serial). Tests and the daemon's simulation mode use an in-memory Fake.
package channel

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrDeviceNotFound is returned when no port matches the configured
	// vendor/product ID.
	ErrDeviceNotFound = errors.New("stage device not found")

	// ErrTransport wraps every read/write/reset/open failure of a channel.
	ErrTransport = errors.New("transport error")

	// ErrClosed is returned by I/O on a channel that is not open.
	ErrClosed = pkgerrors.Wrap(ErrTransport, "channel is not open")
)

// Channel is the capability set the stage controller needs from a link.
// Implementations are not safe for concurrent use; the controller serialises
// access.
type Channel interface {
	Open() error
	Close() error
	// Write sends b in full or returns an error.
	Write(b []byte) error
	// BytesAvailable reports how many bytes can be read without blocking.
	BytesAvailable() (int, error)
	// Read returns up to n bytes that are already available.
	Read(n int) ([]byte, error)
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// Dialer locates the device and returns an unopened Channel for it.
type Dialer func() (Channel, error)

// transportErr marks err as ErrTransport, keeping err in the chain, and
// prefixes it with the formatted message.
func transportErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrTransport) {
		err = &transportError{cause: err}
	}
	return pkgerrors.Wrapf(err, format, args...)
}

type transportError struct {
	cause error
}

func (e *transportError) Error() string { return ErrTransport.Error() + ": " + e.cause.Error() }

func (e *transportError) Is(target error) bool { return target == ErrTransport }

func (e *transportError) Unwrap() error { return e.cause }
