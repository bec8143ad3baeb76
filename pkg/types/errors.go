package types

import (
	"errors"

	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/scan"
	"github.com/tandempv/xystage/pkg/stage"
)

// ErrBadRequest marks a malformed request body.
var ErrBadRequest = errors.New("bad request")

// Error kinds carried in Error.Kind. Each maps to one sentinel.
const (
	KindPrecondition   = "precondition"
	KindTimeout        = "timeout"
	KindNotFound       = "not_found"
	KindTransport      = "transport"
	KindOutOfBounds    = "out_of_bounds"
	KindScanInProgress = "scan_in_progress"
	KindScanNotRunning = "scan_not_running"
	KindNoPoints       = "no_points"
	KindNoSchedule     = "no_schedule"
	KindBadRequest     = "bad_request"
)

var kinds = []struct {
	kind     string
	sentinel error
}{
	// Order matters: the most specific sentinel goes first.
	{KindScanInProgress, scan.ErrInProgress},
	{KindScanNotRunning, scan.ErrNotRunning},
	{KindNoPoints, scan.ErrNoPoints},
	{KindNoSchedule, scan.ErrNoSchedule},
	{KindOutOfBounds, config.ErrOutOfBounds},
	{KindBadRequest, ErrBadRequest},
	{KindPrecondition, stage.ErrPrecondition},
	{KindTimeout, stage.ErrDeviceTimeout},
	{KindNotFound, stage.ErrDeviceNotFound},
	{KindTransport, stage.ErrTransport},
}

// KindOf classifies err, returning "" for errors outside the taxonomy.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return ""
}

// SentinelOf returns the sentinel for kind, or nil if kind is unknown.
func SentinelOf(kind string) error {
	for _, k := range kinds {
		if k.kind == kind {
			return k.sentinel
		}
	}
	return nil
}
