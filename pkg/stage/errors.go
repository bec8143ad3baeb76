package stage

import (
	"errors"
	"fmt"

	"github.com/tandempv/xystage/pkg/channel"
)

var (
	// ErrDeviceNotFound means connect could not locate the device. Retrying
	// connect is the only recovery.
	ErrDeviceNotFound = channel.ErrDeviceNotFound

	// ErrTransport wraps open/write/read/reset failures on the link. The
	// controller stays usable after one.
	ErrTransport = channel.ErrTransport

	// ErrDeviceTimeout means no reply arrived within the response timeout.
	ErrDeviceTimeout = errors.New("timed out waiting for device response")

	// ErrPrecondition is returned before any device I/O when the controller
	// is not in a state that permits the operation.
	ErrPrecondition = errors.New("precondition failed")

	ErrNotConnected = fmt.Errorf("%w: stage not connected", ErrPrecondition)
	ErrNotHomed     = fmt.Errorf("%w: stage not homed", ErrPrecondition)
	ErrBusy         = fmt.Errorf("%w: stage busy", ErrPrecondition)
)
