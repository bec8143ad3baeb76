// Package telemetry mirrors daemon events to an MQTT broker so dashboards
// can follow the stage without talking to the daemon socket.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/events"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 500 // milliseconds
	keepAlive         = 30 * time.Second
	maxReconnectDelay = time.Minute

	payloadOnline  = "online"
	payloadOffline = "offline"
)

var (
	ErrNotConnected = errors.New("mqtt not connected")
	ErrPublish      = errors.New("mqtt publish failed")
)

// client is the subset of pahomqtt.Client the publisher uses.
type client interface {
	Connect() pahomqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// Publisher forwards events to the broker. Publishing while the broker is
// unreachable drops the message; paho reconnects in the background.
type Publisher struct {
	client client
	topics Topics
	qos    byte
}

// New builds a publisher for cfg. It does not connect.
func New(cfg config.MQTT) *Publisher {
	topics := Topics{Prefix: cfg.TopicPrefix}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(maxReconnectDelay)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetWill(topics.Availability(), payloadOffline, cfg.QoS, true)

	p := &Publisher{topics: topics, qos: cfg.QoS}
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		logrus.WithField("broker", cfg.Broker).Info("mqtt connected")
		p.client.Publish(p.topics.Availability(), p.qos, true, payloadOnline)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logrus.WithError(err).Warn("mqtt connection lost")
	})
	p.client = pahomqtt.NewClient(opts)
	return p
}

// Connect starts connecting. Failing to connect within the timeout is not
// an error: paho keeps retrying.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logrus.Warn("mqtt broker not reachable yet, retrying in background")
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Run publishes every event from evs until ctx is done or evs is closed.
func (p *Publisher) Run(ctx context.Context, evs <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			if err := p.Publish(ev); err != nil {
				logrus.WithError(err).WithField("event", ev.Name).Debug("mqtt publish skipped")
			}
		}
	}
}

// Publish sends one event to its topic.
func (p *Publisher) Publish(ev events.Event) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	topic, retained := p.topics.For(ev.Name)
	token := p.client.Publish(topic, p.qos, retained, []byte(ev.Data))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s: timeout after %s", ErrPublish, topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, topic, err)
	}
	return nil
}

// Close marks the daemon offline and disconnects.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Publish(p.topics.Availability(), p.qos, true, payloadOffline).WaitTimeout(publishTimeout)
	}
	p.client.Disconnect(disconnectQuiesce)
}
