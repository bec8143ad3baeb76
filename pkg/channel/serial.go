package channel

import (
	"fmt"
	"io"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// pollReadTimeout bounds a single availability probe on the port.
const pollReadTimeout = 10 * time.Millisecond

// Test seams.
var (
	serialOpen           = func(name string, mode *serial.Mode) (serial.Port, error) { return serial.Open(name, mode) }
	getDetailedPortsList = enumerator.GetDetailedPortsList
)

// Serial is a Channel on a serial port.
//
// The OS driver does not expose a queued-byte count, so BytesAvailable probes
// the port with a short read timeout and keeps whatever arrives in a pending
// buffer that Read drains first.
type Serial struct {
	name    string
	mode    *serial.Mode
	port    serial.Port
	pending []byte
}

var _ Channel = &Serial{}

// NewSerial returns an unopened channel for the named port.
func NewSerial(name string, baudRate int) *Serial {
	return &Serial{
		name: name,
		mode: &serial.Mode{
			BaudRate: baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
}

// SerialDialer returns a Dialer for the stage. A non-empty device path is
// used as is, otherwise the port is located by vendor/product ID on every
// dial so that a re-plugged adapter is found again.
func SerialDialer(device string, vid, pid uint16, baudRate int) Dialer {
	return func() (Channel, error) {
		name := device
		if name == "" {
			var err error
			name, err = Locate(vid, pid)
			if err != nil {
				return nil, err
			}
		}
		return NewSerial(name, baudRate), nil
	}
}

// Locate returns the name of the first serial port whose USB vendor and
// product ID match.
func Locate(vid, pid uint16) (string, error) {
	ports, err := getDetailedPortsList()
	if err != nil {
		return "", pkgerrors.Wrapf(ErrDeviceNotFound, "failed to enumerate serial ports: %v", err)
	}

	wantVID := fmt.Sprintf("%04x", vid)
	wantPID := fmt.Sprintf("%04x", pid)

	for _, p := range ports {
		logrus.WithFields(logrus.Fields{
			"port": p.Name,
			"usb":  p.IsUSB,
			"vid":  p.VID,
			"pid":  p.PID,
		}).Trace("found serial port")

		if !p.IsUSB {
			continue
		}
		if strings.EqualFold(p.VID, wantVID) && strings.EqualFold(p.PID, wantPID) {
			logrus.Debugf("stage device found at %s", p.Name)
			return p.Name, nil
		}
	}

	return "", pkgerrors.Wrapf(ErrDeviceNotFound, "no port with vid=%s pid=%s among %d ports", wantVID, wantPID, len(ports))
}

// Open opens the port.
func (s *Serial) Open() error {
	if s.port != nil {
		return nil
	}

	port, err := serialOpen(s.name, s.mode)
	if err != nil {
		return transportErr(err, "failed to open %s", s.name)
	}
	s.port = port
	s.pending = nil

	logrus.WithFields(logrus.Fields{
		"port": s.name,
		"baud": s.mode.BaudRate,
	}).Info("serial port opened")

	return nil
}

// Close closes the port. Closing a closed port is a no-op.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.pending = nil
	if err != nil {
		return transportErr(err, "failed to close %s", s.name)
	}
	return nil
}

func (s *Serial) Write(b []byte) error {
	if s.port == nil {
		return ErrClosed
	}

	logrus.WithFields(logrus.Fields{
		"port": s.name,
		"data": string(b),
	}).Trace("writing to serial port")

	for len(b) > 0 {
		n, err := s.port.Write(b)
		if err != nil {
			return transportErr(err, "failed to write to %s", s.name)
		}
		if n == 0 {
			return transportErr(io.ErrShortWrite, "failed to write to %s", s.name)
		}
		b = b[n:]
	}
	return nil
}

func (s *Serial) BytesAvailable() (int, error) {
	if s.port == nil {
		return 0, ErrClosed
	}
	// Always probe, so a reply still arriving in chunks is counted in full.
	if err := s.fill(); err != nil {
		return 0, err
	}
	return len(s.pending), nil
}

func (s *Serial) Read(n int) ([]byte, error) {
	if s.port == nil {
		return nil, ErrClosed
	}

	for len(s.pending) < n {
		before := len(s.pending)
		if err := s.fill(); err != nil {
			return nil, err
		}
		if len(s.pending) == before {
			break
		}
	}

	if n > len(s.pending) {
		n = len(s.pending)
	}
	out := make([]byte, n)
	copy(out, s.pending)
	s.pending = s.pending[n:]

	logrus.WithFields(logrus.Fields{
		"port": s.name,
		"data": string(out),
	}).Trace("read from serial port")

	return out, nil
}

// fill performs one bounded read and appends the result to pending.
func (s *Serial) fill() error {
	if err := s.port.SetReadTimeout(pollReadTimeout); err != nil {
		return transportErr(err, "failed to set read timeout on %s", s.name)
	}
	buf := make([]byte, 256)
	n, err := s.port.Read(buf)
	if err != nil {
		return transportErr(err, "failed to read from %s", s.name)
	}
	s.pending = append(s.pending, buf[:n]...)
	return nil
}

func (s *Serial) ResetInputBuffer() error {
	if s.port == nil {
		return ErrClosed
	}
	s.pending = nil
	return transportErr(s.port.ResetInputBuffer(), "failed to reset input buffer of %s", s.name)
}

func (s *Serial) ResetOutputBuffer() error {
	if s.port == nil {
		return ErrClosed
	}
	return transportErr(s.port.ResetOutputBuffer(), "failed to reset output buffer of %s", s.name)
}

func (s *Serial) String() string {
	return s.name
}
