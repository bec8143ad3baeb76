package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/events"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

type fakeClient struct {
	mu         sync.Mutex
	connected  bool
	publishErr error
	sent       []message
	quiesced   bool
}

func (f *fakeClient) Connect() pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return doneToken{}
}

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.quiesced = true
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s string
	switch v := payload.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	}
	f.sent = append(f.sent, message{topic, qos, retained, s})
	return doneToken{err: f.publishErr}
}

func (f *fakeClient) messages() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.sent...)
}

func newTestPublisher(fc *fakeClient) *Publisher {
	return &Publisher{client: fc, topics: Topics{Prefix: "lab/xystage"}, qos: 1}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		prefix, event string
		topic         string
		retained      bool
	}{
		{"xystage", events.StageStatus, "xystage/stage", true},
		{"xystage/", events.ScanProgress, "xystage/scan", true},
		{"lab/xy", events.ScanAction, "lab/xy/events/scan/action", false},
		{"", events.ScheduleError, "events/schedule/error", false},
	}
	for _, tt := range tests {
		topic, retained := Topics{Prefix: tt.prefix}.For(tt.event)
		if topic != tt.topic || retained != tt.retained {
			t.Errorf("Topics{%q}.For(%q) = %q, %t; want %q, %t", tt.prefix, tt.event, topic, retained, tt.topic, tt.retained)
		}
	}
	if got := (Topics{Prefix: "xystage"}).Availability(); got != "xystage/status" {
		t.Errorf("Availability() = %q", got)
	}
}

func TestPublish(t *testing.T) {
	fc := &fakeClient{}
	p := newTestPublisher(fc)

	ev := events.Event{Name: events.StageStatus, Data: []byte(`{"state":"Idle","x":1,"y":2,"known":true,"ts":1}`)}
	if err := p.Publish(ev); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() before connect = %v, want ErrNotConnected", err)
	}

	if err := p.Connect(); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := p.Publish(ev); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	msgs := fc.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	if m := msgs[0]; m.topic != "lab/xystage/stage" || !m.retained || m.qos != 1 || m.payload != string(ev.Data) {
		t.Errorf("sent %+v", m)
	}

	fc.publishErr = errors.New("broker said no")
	if err := p.Publish(ev); !errors.Is(err, ErrPublish) {
		t.Errorf("Publish() = %v, want ErrPublish", err)
	}
}

func TestRun(t *testing.T) {
	fc := &fakeClient{}
	p := newTestPublisher(fc)
	_ = p.Connect()

	hub := events.NewEventHub()
	sub := hub.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, sub)
		close(done)
	}()

	hub.Publish(events.ScanAction, events.ActionEvent{Action: "Start", Ts: 1})
	hub.Publish(events.ScanProgress, events.ScanProgressEvent{Phase: "Running", Total: 3, Ts: 1})

	deadline := time.Now().Add(time.Second)
	for len(fc.messages()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("published %d messages, want 2", len(fc.messages()))
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	msgs := fc.messages()
	if msgs[0].topic != "lab/xystage/events/scan/action" || msgs[0].retained {
		t.Errorf("first message %+v", msgs[0])
	}
	if msgs[1].topic != "lab/xystage/scan" || !msgs[1].retained {
		t.Errorf("second message %+v", msgs[1])
	}
}

func TestClose(t *testing.T) {
	fc := &fakeClient{}
	p := newTestPublisher(fc)
	_ = p.Connect()
	p.Close()

	msgs := fc.messages()
	if len(msgs) != 1 || msgs[0].topic != "lab/xystage/status" || msgs[0].payload != "offline" || !msgs[0].retained {
		t.Errorf("Close() sent %+v", msgs)
	}
	if !fc.quiesced || fc.IsConnected() {
		t.Errorf("Close() did not disconnect")
	}
}

func TestNew(t *testing.T) {
	p := New(config.MQTT{Broker: "tcp://127.0.0.1:1883", ClientID: "test", TopicPrefix: "xy", QoS: 2})
	if p.qos != 2 || p.topics.Prefix != "xy" || p.client == nil {
		t.Errorf("New() = %+v", p)
	}
}
