package types

import (
	"time"

	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/scan"
	"github.com/tandempv/xystage/pkg/stage"
)

// MoveRequest is the body of PUT /move.
type MoveRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScanRequest is the body of POST /scan. No points means the configured
// points file.
type ScanRequest struct {
	Points []scan.Point `json:"points,omitempty"`
}

// ScheduleRequest is the body of PUT /schedule.
type ScheduleRequest struct {
	Cron string `json:"cron"`
}

// Schedule is returned by the schedule endpoints.
type Schedule struct {
	Cron     string      `json:"cron"`
	Enabled  bool        `json:"enabled"`
	NextRuns []time.Time `json:"nextRuns,omitempty"`
}

// Status is returned by GET /status.
type Status struct {
	Stage     stage.Status    `json:"stage"`
	Hardware  HardwareStatus  `json:"hardware"`
	Bounds    config.Bounds   `json:"bounds"`
	Scan      scan.Status     `json:"scan"`
	Schedule  Schedule        `json:"schedule"`
	Simulated bool            `json:"simulated"`
	Telemetry TelemetryStatus `json:"telemetry"`
}

type HardwareStatus struct {
	PulsesPerRevolution int     `json:"ppr"`
	MMPerRevolution     float64 `json:"mmPerRev"`
	PWMPulseWidthMicros float64 `json:"pwm"`
	PollDelaySeconds    float64 `json:"pollDelay"`
	TimeoutSeconds      float64 `json:"responseTimeout"`
	BaudRate            int     `json:"baudRate"`
	Device              string  `json:"device"`
}

type TelemetryStatus struct {
	Broker  string `json:"broker,omitempty"`
	Enabled bool   `json:"enabled"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
