package config

import (
	"errors"
	"os"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tandempv/xystage/pkg/utils/ptr"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

func newInvalidError(problems []string) error {
	return pkgerrors.Wrap(ErrInvalid, strings.Join(problems, "; "))
}

// MQTTPasswordEnv overrides mqtt.password so it can stay out of the file.
const MQTTPasswordEnv = "XYSTAGE_MQTT_PASSWORD"

var defaultFileConfig = RawFileConfig{
	Stepper: RawStepper{
		PPR:             ptr.To(200),
		MMPerRev:        ptr.To(5.0),
		PWM:             ptr.To(500.0),
		PollingDelay:    ptr.To(0.1),
		BaudRate:        ptr.To(9600),
		ResponseTimeout: ptr.To(120.0),
	},
	VID:    RawDeviceID{Arduino: ptr.To(0x2341)},
	PID:    RawDeviceID{Arduino: ptr.To(0x0043)},
	Device: ptr.To(""),
	Coordinates: RawCoordinates{
		XMin: ptr.To(0.0),
		XMax: ptr.To(200.0),
		YMin: ptr.To(0.0),
		YMax: ptr.To(200.0),
	},
	Scan: RawScan{
		PointsFile: ptr.To(""),
		Schedule:   ptr.To(""),
	},
	MQTT: RawMQTT{
		Broker:      ptr.To(""),
		ClientID:    ptr.To("xystage"),
		TopicPrefix: ptr.To("xystage"),
		QoS:         ptr.To(1),
		Username:    ptr.To(""),
		Password:    ptr.To(""),
	},
}

// RawFileConfig is the on-disk layout. Absent keys take their defaults.
type RawFileConfig struct {
	Stepper     RawStepper     `yaml:"stepper" json:"stepper"`
	VID         RawDeviceID    `yaml:"vid" json:"vid"`
	PID         RawDeviceID    `yaml:"pid" json:"pid"`
	Device      *string        `yaml:"device,omitempty" json:"device,omitempty"`
	Coordinates RawCoordinates `yaml:"coordinates" json:"coordinates"`
	Scan        RawScan        `yaml:"scan" json:"scan"`
	MQTT        RawMQTT        `yaml:"mqtt" json:"mqtt"`
}

type RawStepper struct {
	PPR      *int     `yaml:"ppr,omitempty" json:"ppr,omitempty"`
	MMPerRev *float64 `yaml:"mm_per_rev,omitempty" json:"mmPerRev,omitempty"`
	// PWM is the pulse width in microseconds.
	PWM *float64 `yaml:"pwm,omitempty" json:"pwm,omitempty"`
	// PollingDelay is in seconds.
	PollingDelay *float64 `yaml:"polling_delay,omitempty" json:"pollingDelay,omitempty"`
	BaudRate     *int     `yaml:"baudrate,omitempty" json:"baudrate,omitempty"`
	// ResponseTimeout is in seconds, 0 waits forever.
	ResponseTimeout *float64 `yaml:"response_timeout,omitempty" json:"responseTimeout,omitempty"`
}

type RawDeviceID struct {
	Arduino *int `yaml:"arduino,omitempty" json:"arduino,omitempty"`
}

type RawCoordinates struct {
	XMin *float64 `yaml:"x_min,omitempty" json:"xMin,omitempty"`
	XMax *float64 `yaml:"x_max,omitempty" json:"xMax,omitempty"`
	YMin *float64 `yaml:"y_min,omitempty" json:"yMin,omitempty"`
	YMax *float64 `yaml:"y_max,omitempty" json:"yMax,omitempty"`
}

type RawScan struct {
	PointsFile *string `yaml:"points_file,omitempty" json:"pointsFile,omitempty"`
	Schedule   *string `yaml:"schedule,omitempty" json:"schedule,omitempty"`
}

type RawMQTT struct {
	Broker      *string `yaml:"broker,omitempty" json:"broker,omitempty"`
	ClientID    *string `yaml:"client_id,omitempty" json:"clientId,omitempty"`
	TopicPrefix *string `yaml:"topic_prefix,omitempty" json:"topicPrefix,omitempty"`
	QoS         *int    `yaml:"qos,omitempty" json:"qos,omitempty"`
	Username    *string `yaml:"username,omitempty" json:"username,omitempty"`
	Password    *string `yaml:"password,omitempty" json:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c, err := NewFromRaw(&RawFileConfig{})
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads and validates the YAML file at path. A missing or empty file
// yields the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return withEnv(&RawFileConfig{})
		}
		return nil, pkgerrors.Wrapf(err, "failed to read config file %s", path)
	}

	raw := &RawFileConfig{}
	if strings.TrimSpace(string(b)) != "" {
		if err := yaml.Unmarshal(b, raw); err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	c, err := withEnv(raw)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "config file %s", path)
	}
	return c, nil
}

func withEnv(raw *RawFileConfig) (*Config, error) {
	if v := os.Getenv(MQTTPasswordEnv); v != "" {
		raw.MQTT.Password = ptr.To(v)
	}
	return NewFromRaw(raw)
}

// NewFromRaw fills defaults into raw and validates the result.
func NewFromRaw(raw *RawFileConfig) (*Config, error) {
	if raw == nil {
		raw = &RawFileConfig{}
	}
	d := defaultFileConfig

	seconds := func(p *float64, def *float64) time.Duration {
		return time.Duration(ptr.Deref(p, *def) * float64(time.Second))
	}

	vid := ptr.Deref(raw.VID.Arduino, *d.VID.Arduino)
	pid := ptr.Deref(raw.PID.Arduino, *d.PID.Arduino)
	qos := ptr.Deref(raw.MQTT.QoS, *d.MQTT.QoS)

	var problems []string
	if vid < 0 || vid > 0xffff {
		problems = append(problems, "vid.arduino must fit in 16 bits")
	}
	if pid < 0 || pid > 0xffff {
		problems = append(problems, "pid.arduino must fit in 16 bits")
	}
	if qos < 0 || qos > 2 {
		problems = append(problems, "mqtt.qos must be 0, 1, or 2")
	}
	if len(problems) > 0 {
		return nil, newInvalidError(problems)
	}

	c := &Config{
		hardware: Hardware{
			PulsesPerRevolution: ptr.Deref(raw.Stepper.PPR, *d.Stepper.PPR),
			MMPerRevolution:     ptr.Deref(raw.Stepper.MMPerRev, *d.Stepper.MMPerRev),
			PWMPulseWidthMicros: ptr.Deref(raw.Stepper.PWM, *d.Stepper.PWM),
			PollDelay:           seconds(raw.Stepper.PollingDelay, d.Stepper.PollingDelay),
			BaudRate:            ptr.Deref(raw.Stepper.BaudRate, *d.Stepper.BaudRate),
			ResponseTimeout:     seconds(raw.Stepper.ResponseTimeout, d.Stepper.ResponseTimeout),
		},
		device: Device{
			VendorID:  uint16(vid),
			ProductID: uint16(pid),
			Path:      ptr.Deref(raw.Device, *d.Device),
		},
		bounds: Bounds{
			XMin: ptr.Deref(raw.Coordinates.XMin, *d.Coordinates.XMin),
			XMax: ptr.Deref(raw.Coordinates.XMax, *d.Coordinates.XMax),
			YMin: ptr.Deref(raw.Coordinates.YMin, *d.Coordinates.YMin),
			YMax: ptr.Deref(raw.Coordinates.YMax, *d.Coordinates.YMax),
		},
		scan: Scan{
			PointsFile: ptr.Deref(raw.Scan.PointsFile, *d.Scan.PointsFile),
			Schedule:   ptr.Deref(raw.Scan.Schedule, *d.Scan.Schedule),
		},
		mqtt: MQTT{
			Broker:      ptr.Deref(raw.MQTT.Broker, *d.MQTT.Broker),
			ClientID:    ptr.Deref(raw.MQTT.ClientID, *d.MQTT.ClientID),
			TopicPrefix: ptr.Deref(raw.MQTT.TopicPrefix, *d.MQTT.TopicPrefix),
			QoS:         byte(qos),
			Username:    ptr.Deref(raw.MQTT.Username, *d.MQTT.Username),
			Password:    ptr.Deref(raw.MQTT.Password, *d.MQTT.Password),
		},
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Raw returns the effective configuration in file layout with every key
// populated. The MQTT password is never exported.
func (c *Config) Raw() *RawFileConfig {
	h := c.hardware
	return &RawFileConfig{
		Stepper: RawStepper{
			PPR:             ptr.To(h.PulsesPerRevolution),
			MMPerRev:        ptr.To(h.MMPerRevolution),
			PWM:             ptr.To(h.PWMPulseWidthMicros),
			PollingDelay:    ptr.To(h.PollDelay.Seconds()),
			BaudRate:        ptr.To(h.BaudRate),
			ResponseTimeout: ptr.To(h.ResponseTimeout.Seconds()),
		},
		VID:    RawDeviceID{Arduino: ptr.To(int(c.device.VendorID))},
		PID:    RawDeviceID{Arduino: ptr.To(int(c.device.ProductID))},
		Device: ptr.To(c.device.Path),
		Coordinates: RawCoordinates{
			XMin: ptr.To(c.bounds.XMin),
			XMax: ptr.To(c.bounds.XMax),
			YMin: ptr.To(c.bounds.YMin),
			YMax: ptr.To(c.bounds.YMax),
		},
		Scan: RawScan{
			PointsFile: ptr.To(c.scan.PointsFile),
			Schedule:   ptr.To(c.scan.Schedule),
		},
		MQTT: RawMQTT{
			Broker:      ptr.To(c.mqtt.Broker),
			ClientID:    ptr.To(c.mqtt.ClientID),
			TopicPrefix: ptr.To(c.mqtt.TopicPrefix),
			QoS:         ptr.To(int(c.mqtt.QoS)),
			Username:    ptr.To(c.mqtt.Username),
		},
	}
}
