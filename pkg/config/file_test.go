package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "xystage.yaml")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	p := writeConfig(t, `
stepper:
  ppr: 400
  mm_per_rev: 8.0
  pwm: 250
  polling_delay: 0.05
  baudrate: 115200
  response_timeout: 30
vid:
  arduino: 0x2341
pid:
  arduino: 0x0042
coordinates:
  x_min: 0
  x_max: 150.5
  y_min: -10
  y_max: 100
scan:
  points_file: /var/lib/xystage/points.txt
  schedule: "@every 1h"
mqtt:
  broker: tcp://localhost:1883
  qos: 0
`)

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := Hardware{
		PulsesPerRevolution: 400,
		MMPerRevolution:     8,
		PWMPulseWidthMicros: 250,
		PollDelay:           50 * time.Millisecond,
		BaudRate:            115200,
		ResponseTimeout:     30 * time.Second,
	}
	if got := c.Hardware(); got != want {
		t.Errorf("Hardware() = %+v, want %+v", got, want)
	}
	if d := c.Device(); d.VendorID != 0x2341 || d.ProductID != 0x0042 || d.Path != "" {
		t.Errorf("Device() = %+v", d)
	}
	if b := c.Bounds(); b != (Bounds{XMin: 0, XMax: 150.5, YMin: -10, YMax: 100}) {
		t.Errorf("Bounds() = %+v", b)
	}
	if s := c.Scan(); s.Schedule != "@every 1h" || s.PointsFile != "/var/lib/xystage/points.txt" {
		t.Errorf("Scan() = %+v", s)
	}
	if m := c.MQTT(); m.Broker != "tcp://localhost:1883" || m.QoS != 0 || m.ClientID != "xystage" {
		t.Errorf("MQTT() = %+v", m)
	}
}

func TestLoadDefaults(t *testing.T) {
	for name, path := range map[string]string{
		"missing file": filepath.Join(t.TempDir(), "nope.yaml"),
		"empty file":   writeConfig(t, "  \n"),
		"partial file": writeConfig(t, "coordinates:\n  x_max: 200\n"),
	} {
		t.Run(name, func(t *testing.T) {
			c, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if got, want := c.Hardware(), Default().Hardware(); got != want {
				t.Errorf("Hardware() = %+v, want %+v", got, want)
			}
			if c.Hardware().PollDelay != 100*time.Millisecond {
				t.Errorf("PollDelay = %v, want 100ms", c.Hardware().PollDelay)
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"zero ppr":          "stepper:\n  ppr: 0\n",
		"negative mm":       "stepper:\n  mm_per_rev: -1\n",
		"zero pwm":          "stepper:\n  pwm: 0\n",
		"negative delay":    "stepper:\n  polling_delay: -0.1\n",
		"negative timeout":  "stepper:\n  response_timeout: -1\n",
		"inverted x bounds": "coordinates:\n  x_min: 10\n  x_max: 5\n",
		"inverted y bounds": "coordinates:\n  y_min: 10\n  y_max: 5\n",
		"vid overflow":      "vid:\n  arduino: 0x12345\n",
		"bad qos":           "mqtt:\n  qos: 3\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeConfig(t, "stepper: [1, 2"))
	if err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("Load() = %v, want a parse error", err)
	}
}

func TestPasswordFromEnv(t *testing.T) {
	t.Setenv(MQTTPasswordEnv, "s3cret")
	c, err := Load(writeConfig(t, "mqtt:\n  password: fromfile\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.MQTT().Password != "s3cret" {
		t.Errorf("Password = %q, want value from environment", c.MQTT().Password)
	}
	if c.Raw().MQTT.Password != nil {
		t.Errorf("Raw() leaked the MQTT password")
	}
}

func TestRawRoundTrip(t *testing.T) {
	c := Default()
	again, err := NewFromRaw(c.Raw())
	if err != nil {
		t.Fatalf("NewFromRaw() error: %v", err)
	}
	if again.Hardware() != c.Hardware() || again.Bounds() != c.Bounds() || again.Device() != c.Device() {
		t.Errorf("config changed through Raw(): %+v vs %+v", again, c)
	}
}

func TestBoundsCheck(t *testing.T) {
	b := Bounds{XMin: 0, XMax: 100, YMin: -5, YMax: 50}
	tests := []struct {
		x, y    float64
		wantErr string
	}{
		{0, -5, ""},
		{100, 50, ""},
		{100.001, 0, "max is 100"},
		{-0.5, 0, "min is 0"},
		{10, 50.5, "invalid y-coordinate 50.500, max is 50"},
		{10, -6, "min is -5"},
	}
	for _, tt := range tests {
		err := b.Check(tt.x, tt.y)
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("Check(%v, %v) = %v, want nil", tt.x, tt.y, err)
			}
			continue
		}
		if !errors.Is(err, ErrOutOfBounds) || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("Check(%v, %v) = %v, want ErrOutOfBounds containing %q", tt.x, tt.y, err, tt.wantErr)
		}
	}
}
