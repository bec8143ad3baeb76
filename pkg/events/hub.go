package events

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 16

type subscriber struct {
	names   map[string]bool // nil means every event
	dropped int
}

func (s *subscriber) wants(name string) bool {
	return s.names == nil || s.names[name]
}

// EventHub fans published events out to subscribers. A subscriber that falls
// behind misses events rather than blocking publishers.
type EventHub struct {
	mu     sync.Mutex
	subs   map[chan Event]*subscriber
	closed bool
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan Event]*subscriber)}
}

// Subscribe returns a channel receiving the named events, or every event when
// no name is given. On a closed hub the channel is already closed.
func (h *EventHub) Subscribe(names ...string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	s := &subscriber{}
	if len(names) > 0 {
		s.names = make(map[string]bool, len(names))
		for _, n := range names {
			s.names[n] = true
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = s
	return ch
}

func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(ch)
}

func (h *EventHub) dropLocked(ch chan Event) {
	s, ok := h.subs[ch]
	if !ok {
		return
	}
	delete(h.subs, ch)
	close(ch)
	if s.dropped > 0 {
		logrus.WithField("dropped", s.dropped).Debug("subscriber missed events")
	}
}

// Publish marshals payload and sends it to every interested subscriber. It is
// a no-op on a nil hub.
func (h *EventHub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).WithField("event", name).Error("failed to marshal event")
		return
	}
	ev := Event{Name: name, Data: b}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, s := range h.subs {
		if !s.wants(name) {
			continue
		}
		select {
		case ch <- ev:
		default:
			s.dropped++
		}
	}
}

// Close unsubscribes everyone, closing their channels. Later subscribers get
// a closed channel.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		h.dropLocked(ch)
	}
}
