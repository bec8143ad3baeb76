// Package stage drives the XY stage: it owns the device channel, homes the
// stage, turns target coordinates into move commands, and tracks where the
// stage believes it is.
package stage

import (
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tandempv/xystage/pkg/channel"
	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/stepper"
)

const defaultPollInterval = 5 * time.Millisecond

// Status is a snapshot of the controller.
type Status struct {
	State     State    `json:"state"`
	Position  Position `json:"position"`
	Device    string   `json:"device,omitempty"`
	LastError string   `json:"lastError,omitempty"`
}

// Listener receives a Status after every state or position change. It is
// called without any controller lock held and must not block for long.
type Listener func(Status)

// Controller is safe for concurrent use. Device operations are serialised;
// State, Position and Status never wait for an operation in flight.
type Controller struct {
	hw   config.Hardware
	dial channel.Dialer

	// opMu is held for the whole of connect, disconnect, home and move.
	opMu sync.Mutex

	mu       sync.RWMutex
	ch       channel.Channel
	state    State
	pos      Position
	device   string
	lastErr  string
	listener Listener

	sleep        func(time.Duration)
	now          func() time.Time
	pollInterval time.Duration
}

// New returns a disconnected controller. dial is called by every Connect.
func New(hw config.Hardware, dial channel.Dialer) *Controller {
	return &Controller{
		hw:           hw,
		dial:         dial,
		state:        StateDisconnected,
		pos:          Unknown,
		sleep:        time.Sleep,
		now:          time.Now,
		pollInterval: defaultPollInterval,
	}
}

// OnChange sets the listener, replacing any previous one.
func (c *Controller) OnChange(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

func (c *Controller) Hardware() config.Hardware { return c.hw }

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Position returns the believed position, which is Unknown until the stage
// has been homed.
func (c *Controller) Position() Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pos
}

func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	return Status{
		State:     c.state,
		Position:  c.pos,
		Device:    c.device,
		LastError: c.lastErr,
	}
}

// Connect locates and opens the device. It is a no-op when already connected.
func (c *Controller) Connect() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.State().Connected() {
		return nil
	}

	ch, err := c.dial()
	if err != nil {
		err = pkgerrors.Wrap(err, "failed to connect")
		logrus.WithError(err).Error("stage connect failed")
		c.update(func() { c.lastErr = err.Error() })
		return err
	}
	if err := ch.Open(); err != nil {
		err = pkgerrors.Wrap(err, "failed to connect")
		logrus.WithError(err).Error("stage connect failed")
		c.update(func() { c.lastErr = err.Error() })
		return err
	}

	device := fmt.Sprint(ch)
	logrus.WithField("device", device).Info("stage connected")
	c.update(func() {
		c.ch = ch
		c.device = device
		c.state = StateUnhomed
		c.pos = Unknown
		c.lastErr = ""
	})
	return nil
}

// Disconnect closes the channel and forgets the position. The controller is
// disconnected afterwards even if closing the channel fails.
func (c *Controller) Disconnect() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	ch := c.ch
	c.mu.RUnlock()
	if ch == nil {
		return nil
	}

	err := ch.Close()
	if err != nil {
		err = pkgerrors.Wrap(err, "failed to close channel")
		logrus.WithError(err).Warn("stage disconnect")
	} else {
		logrus.Info("stage disconnected")
	}

	c.update(func() {
		c.ch = nil
		c.device = ""
		c.state = StateDisconnected
		c.pos = Unknown
	})
	return err
}

// Home drives the stage to its reference point and sets the position to
// (0, 0). Once HOME has been sent, a failure leaves the position unknown.
func (c *Controller) Home() (err error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	log := logrus.WithField("operation", "home")
	ch, _, err := c.begin(StateHoming, false)
	if err != nil {
		log.WithError(err).Error("home rejected")
		return err
	}

	sent := false
	defer func() {
		c.resetBuffers(ch, log)
		if err == nil {
			return
		}
		log.WithError(err).Error("home failed")
		c.update(func() {
			c.lastErr = err.Error()
			c.state = StateIdle
			if sent || !c.pos.Known {
				c.state = StateUnhomed
				c.pos = Unknown
			}
		})
	}()

	if err = c.flush(ch); err != nil {
		return err
	}
	c.sleep(c.hw.PollDelay)

	log.WithField("command", stepper.HomeCommand).Debug("sending command")
	if err = ch.Write([]byte(stepper.HomeCommand)); err != nil {
		return pkgerrors.Wrap(err, "failed to send home command")
	}
	sent = true

	resp, err := c.awaitResponse(ch, log)
	if err != nil {
		return err
	}

	log.WithField("response", resp.Text).Debug("home reply")
	log.WithField("reply", resp.Last()).Info("stage homed")
	c.update(func() {
		c.state = StateIdle
		c.pos = At(0, 0)
		c.lastErr = ""
	})
	return nil
}

// MoveTo moves the stage to (x, y) in millimetres and returns the new
// position. It requires a homed stage. On failure the position is left at its
// value before the call.
func (c *Controller) MoveTo(x, y float64) (_ Position, err error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	log := logrus.WithFields(logrus.Fields{
		"operation": "move",
		"targetX":   x,
		"targetY":   y,
	})
	ch, cur, err := c.begin(StateMoving, true)
	if err != nil {
		log.WithError(err).Error("move rejected")
		return cur, err
	}

	defer func() {
		c.resetBuffers(ch, log)
		if err == nil {
			return
		}
		log.WithError(err).Error("move failed")
		c.update(func() {
			c.lastErr = err.Error()
			c.state = StateIdle
		})
	}()

	if err = c.flush(ch); err != nil {
		return cur, err
	}

	move := stepper.ComputeMove(cur.X, cur.Y, x, y, c.hw.PulsesPerRevolution, c.hw.MMPerRevolution)
	cmd := stepper.Encode(move.Command)
	log = log.WithFields(logrus.Fields{
		"command": cmd,
		"pulsesX": move.PulsesX,
		"pulsesY": move.PulsesY,
	})

	log.Debug("sending command")
	if err = ch.Write([]byte(cmd)); err != nil {
		return cur, pkgerrors.Wrapf(err, "failed to send move command %q", cmd)
	}

	dwell := stepper.DwellTime(move.PulsesX, move.PulsesY, c.hw.PWMPulseWidthMicros)
	log.WithField("dwell", dwell).Trace("waiting for stage to step")
	c.sleep(dwell)

	resp, err := c.awaitResponse(ch, log)
	if err != nil {
		return cur, err
	}

	next := At(
		cur.X+stepper.Displacement(move.PulsesX, c.hw.PulsesPerRevolution, c.hw.MMPerRevolution),
		cur.Y+stepper.Displacement(move.PulsesY, c.hw.PulsesPerRevolution, c.hw.MMPerRevolution),
	)
	log.WithField("response", resp.Text).Debug("move reply")
	log.WithFields(logrus.Fields{
		"reply":    resp.Last(),
		"position": next.String(),
	}).Info("stage moved")
	c.update(func() {
		c.state = StateIdle
		c.pos = next
		c.lastErr = ""
	})
	return next, nil
}

// begin checks the preconditions of an operation and enters state next. It
// does no I/O.
func (c *Controller) begin(next State, needHomed bool) (channel.Channel, Position, error) {
	c.mu.Lock()
	if !c.state.Connected() || c.ch == nil {
		pos := c.pos
		c.mu.Unlock()
		return nil, pos, ErrNotConnected
	}
	if needHomed && !c.pos.Known {
		pos := c.pos
		c.mu.Unlock()
		return nil, pos, ErrNotHomed
	}
	ch, pos := c.ch, c.pos
	c.state = next
	st, l := c.statusLocked(), c.listener
	c.mu.Unlock()

	if l != nil {
		l(st)
	}
	return ch, pos, nil
}

// awaitResponse polls until the device has something to say, lets the rest of
// the reply arrive, then reads and decodes it. A positive ResponseTimeout
// bounds the polling.
func (c *Controller) awaitResponse(ch channel.Channel, log *logrus.Entry) (stepper.Response, error) {
	var deadline time.Time
	if c.hw.ResponseTimeout > 0 {
		deadline = c.now().Add(c.hw.ResponseTimeout)
	}

	polls := 0
	for {
		n, err := ch.BytesAvailable()
		if err != nil {
			return stepper.Response{}, pkgerrors.Wrap(err, "failed to poll device")
		}
		if n > 0 {
			break
		}
		polls++
		if !deadline.IsZero() && !c.now().Before(deadline) {
			return stepper.Response{}, pkgerrors.Wrapf(ErrDeviceTimeout, "no reply within %s after %d polls", c.hw.ResponseTimeout, polls)
		}
		c.sleep(c.pollInterval)
	}
	log.WithField("polls", polls).Trace("device has data")

	c.sleep(c.hw.PollDelay)

	n, err := ch.BytesAvailable()
	if err != nil {
		return stepper.Response{}, pkgerrors.Wrap(err, "failed to poll device")
	}
	raw, err := ch.Read(n)
	if err != nil {
		return stepper.Response{}, pkgerrors.Wrap(err, "failed to read response")
	}
	log.WithField("raw", fmt.Sprintf("%q", raw)).Trace("read response")

	resp, err := stepper.DecodeResponse(raw)
	if err != nil {
		return stepper.Response{}, pkgerrors.Wrap(ErrTransport, err.Error())
	}
	return resp, nil
}

func (c *Controller) flush(ch channel.Channel) error {
	if err := ch.ResetInputBuffer(); err != nil {
		return pkgerrors.Wrap(err, "failed to reset input buffer")
	}
	if err := ch.ResetOutputBuffer(); err != nil {
		return pkgerrors.Wrap(err, "failed to reset output buffer")
	}
	return nil
}

// resetBuffers is the cleanup step of every operation. Its failure is logged
// and never replaces the operation's own result.
func (c *Controller) resetBuffers(ch channel.Channel, log *logrus.Entry) {
	if err := c.flush(ch); err != nil {
		log.WithError(err).Warn("failed to reset device buffers")
	}
}

// update applies fn under the state lock and notifies the listener.
func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	st, l := c.statusLocked(), c.listener
	c.mu.Unlock()

	if l != nil {
		l(st)
	}
}
