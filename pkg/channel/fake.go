package channel

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tandempv/xystage/pkg/stepper"
)

// Responder decides the device reply to a written command. The reply becomes
// readable after the given number of BytesAvailable polls have returned zero.
// An empty reply means the device stays silent.
type Responder func(command string) (reply string, polls int)

// Fake is an in-memory Channel. It records every write and serves replies
// produced by its Responder. Failures can be injected per operation.
type Fake struct {
	mu sync.Mutex

	respond Responder

	open    bool
	writes  []string
	resets  int
	polls   int
	inbox   []byte
	queued  []byte
	waitFor int

	openErr  error
	writeErr error
	readErr  error
	resetErr error
}

var _ Channel = &Fake{}

// NewFake returns a closed Fake that answers with respond. A nil respond
// never answers.
func NewFake(respond Responder) *Fake {
	return &Fake{respond: respond}
}

// Script returns a Responder that hands out replies in order, each after
// polls empty polls, then falls silent.
func Script(polls int, replies ...string) Responder {
	var mu sync.Mutex
	return func(string) (string, int) {
		mu.Lock()
		defer mu.Unlock()
		if len(replies) == 0 {
			return "", 0
		}
		r := replies[0]
		replies = replies[1:]
		return r, polls
	}
}

// NewSimulator returns a Fake that behaves like the stage firmware: "Homed"
// after HOME, "Moved" after a well-formed move command and "ERR" otherwise.
func NewSimulator() *Fake {
	return NewFake(func(command string) (string, int) {
		if command == stepper.HomeCommand {
			return "Homed\r\n", 2
		}
		if _, err := stepper.ParseCommand(command); err != nil {
			return "ERR\r\n", 0
		}
		return "Moved\r\n", 2
	})
}

func (f *Fake) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return transportErr(f.openErr, "failed to open fake channel")
	}
	f.open = true
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.inbox = nil
	f.queued = nil
	return nil
}

func (f *Fake) Write(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return ErrClosed
	}
	if f.writeErr != nil {
		return transportErr(f.writeErr, "failed to write to fake channel")
	}

	cmd := string(b)
	f.writes = append(f.writes, cmd)

	if f.respond != nil {
		reply, polls := f.respond(cmd)
		if reply != "" {
			f.queued = append(f.queued, reply...)
			f.waitFor = polls
		}
	}
	return nil
}

func (f *Fake) BytesAvailable() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return 0, ErrClosed
	}
	f.polls++
	if len(f.queued) > 0 {
		if f.waitFor == 0 {
			f.inbox = append(f.inbox, f.queued...)
			f.queued = nil
		} else {
			f.waitFor--
		}
	}
	return len(f.inbox), nil
}

func (f *Fake) Read(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return nil, ErrClosed
	}
	if f.readErr != nil {
		return nil, transportErr(f.readErr, "failed to read from fake channel")
	}
	if n > len(f.inbox) {
		n = len(f.inbox)
	}
	out := make([]byte, n)
	copy(out, f.inbox)
	f.inbox = f.inbox[n:]
	return out, nil
}

func (f *Fake) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return ErrClosed
	}
	if f.resetErr != nil {
		return transportErr(f.resetErr, "failed to reset fake input buffer")
	}
	f.resets++
	f.inbox = nil
	return nil
}

func (f *Fake) ResetOutputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return ErrClosed
	}
	if f.resetErr != nil {
		return transportErr(f.resetErr, "failed to reset fake output buffer")
	}
	f.resets++
	return nil
}

// Dialer returns a Dialer that always yields f.
func (f *Fake) Dialer() Dialer {
	return func() (Channel, error) { return f, nil }
}

// FailOpen makes Open fail with err until cleared with nil.
func (f *Fake) FailOpen(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

// FailWrite makes Write fail with err until cleared with nil.
func (f *Fake) FailWrite(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

// FailRead makes Read fail with err until cleared with nil.
func (f *Fake) FailRead(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

// FailReset makes both buffer resets fail with err until cleared with nil.
func (f *Fake) FailReset(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetErr = err
}

// Writes returns a copy of every command written so far.
func (f *Fake) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

// Polls returns how many times BytesAvailable was called.
func (f *Fake) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// Resets returns how many buffer resets succeeded.
func (f *Fake) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

// IsOpen reports whether the channel is open.
func (f *Fake) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *Fake) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("fake(open=%t, writes=[%s])", f.open, strings.Join(f.writes, "|"))
}
