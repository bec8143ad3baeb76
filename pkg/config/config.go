package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Hardware holds the drive constants shared by the unit conversion and the
// device protocol. It is a plain value; copies are safe to hand out.
type Hardware struct {
	PulsesPerRevolution int
	MMPerRevolution     float64
	// PWMPulseWidthMicros is the width of one step pulse in microseconds.
	PWMPulseWidthMicros float64
	// PollDelay is the settle time between the device signalling data and
	// the host reading it, and before a HOME is sent.
	PollDelay time.Duration
	BaudRate  int
	// ResponseTimeout bounds the wait for a device reply after the dwell
	// time has passed. Zero waits forever.
	ResponseTimeout time.Duration
}

// Device identifies the stage controller among the serial ports.
type Device struct {
	VendorID  uint16
	ProductID uint16
	// Path bypasses VID/PID lookup when set.
	Path string
}

func (d Device) String() string {
	if d.Path != "" {
		return d.Path
	}
	return fmt.Sprintf("vid=%04x pid=%04x", d.VendorID, d.ProductID)
}

// Scan holds the scheduled-scan settings.
type Scan struct {
	PointsFile string
	Schedule   string
}

// MQTT holds the optional telemetry broker settings. An empty Broker
// disables telemetry.
type MQTT struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	Username    string
	Password    string
}

// Config is the immutable, validated configuration of one stage.
type Config struct {
	hardware Hardware
	device   Device
	bounds   Bounds
	scan     Scan
	mqtt     MQTT
}

func (c *Config) Hardware() Hardware { return c.hardware }
func (c *Config) Device() Device     { return c.device }
func (c *Config) Bounds() Bounds     { return c.bounds }
func (c *Config) Scan() Scan         { return c.scan }
func (c *Config) MQTT() MQTT         { return c.mqtt }

// Validate checks the invariants every consumer relies on.
func (c *Config) Validate() error {
	var errs []string

	h := c.hardware
	if h.PulsesPerRevolution <= 0 {
		errs = append(errs, "stepper.ppr must be positive")
	}
	if h.MMPerRevolution <= 0 {
		errs = append(errs, "stepper.mm_per_rev must be positive")
	}
	if h.PWMPulseWidthMicros <= 0 {
		errs = append(errs, "stepper.pwm must be positive")
	}
	if h.PollDelay < 0 {
		errs = append(errs, "stepper.polling_delay must not be negative")
	}
	if h.BaudRate <= 0 {
		errs = append(errs, "stepper.baudrate must be positive")
	}
	if h.ResponseTimeout < 0 {
		errs = append(errs, "stepper.response_timeout must not be negative")
	}

	if c.bounds.XMin > c.bounds.XMax {
		errs = append(errs, "coordinates.x_min must not exceed coordinates.x_max")
	}
	if c.bounds.YMin > c.bounds.YMax {
		errs = append(errs, "coordinates.y_min must not exceed coordinates.y_max")
	}

	if c.mqtt.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return newInvalidError(errs)
	}
	return nil
}

func (c *Config) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"ppr":             c.hardware.PulsesPerRevolution,
		"mmPerRev":        c.hardware.MMPerRevolution,
		"pwm":             c.hardware.PWMPulseWidthMicros,
		"pollDelay":       c.hardware.PollDelay,
		"baudRate":        c.hardware.BaudRate,
		"responseTimeout": c.hardware.ResponseTimeout,
		"device":          c.device.String(),
		"bounds":          c.bounds.String(),
		"scanSchedule":    c.scan.Schedule,
		"mqttBroker":      c.mqtt.Broker,
	}
}
