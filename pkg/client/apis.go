package client

import (
	"encoding/json"
	"net/http"

	pkgerrors "github.com/pkg/errors"

	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/scan"
	"github.com/tandempv/xystage/pkg/stage"
	"github.com/tandempv/xystage/pkg/types"
)

func (c *Client) GetPosition() (stage.Position, error) {
	pos, err := getJSON[stage.Position](c, "/position")
	if err != nil {
		return stage.Unknown, pkgerrors.Wrap(err, "failed to get position")
	}
	return pos, nil
}

func (c *Client) GetStatus() (types.Status, error) {
	st, err := getJSON[types.Status](c, "/status")
	if err != nil {
		return st, pkgerrors.Wrap(err, "failed to get status")
	}
	return st, nil
}

func (c *Client) GetConfig() (config.RawFileConfig, error) {
	raw, err := getJSON[config.RawFileConfig](c, "/config")
	if err != nil {
		return raw, pkgerrors.Wrap(err, "failed to get config")
	}
	return raw, nil
}

func (c *Client) GetVersion() (string, error) {
	v, err := getJSON[string](c, "/version")
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to get daemon version")
	}
	return v, nil
}

func (c *Client) Connect() (stage.Status, error) {
	return sendJSON[stage.Status](c, http.MethodPost, "/connect", nil)
}

func (c *Client) Disconnect() (stage.Status, error) {
	return sendJSON[stage.Status](c, http.MethodPost, "/disconnect", nil)
}

// Home blocks until the stage reports it is homed.
func (c *Client) Home() (stage.Position, error) {
	return sendJSON[stage.Position](c, http.MethodPost, "/home", nil)
}

// Move blocks until the stage reports the move done and returns the new
// position.
func (c *Client) Move(x, y float64) (stage.Position, error) {
	return sendJSON[stage.Position](c, http.MethodPut, "/move", types.MoveRequest{X: x, Y: y})
}

// StartScan starts a scan of points. No points scans the daemon's
// configured points file.
func (c *Client) StartScan(points []scan.Point) (scan.Status, error) {
	var req any
	if len(points) > 0 {
		req = types.ScanRequest{Points: points}
	}
	return sendJSON[scan.Status](c, http.MethodPost, "/scan", req)
}

func (c *Client) GetScan() (scan.Status, error) {
	st, err := getJSON[scan.Status](c, "/scan")
	if err != nil {
		return st, pkgerrors.Wrap(err, "failed to get scan status")
	}
	return st, nil
}

func (c *Client) PauseScan() (scan.Status, error) {
	return sendJSON[scan.Status](c, http.MethodPost, "/scan/pause", nil)
}

func (c *Client) ResumeScan() (scan.Status, error) {
	return sendJSON[scan.Status](c, http.MethodPost, "/scan/resume", nil)
}

func (c *Client) CancelScan() (scan.Status, error) {
	return sendJSON[scan.Status](c, http.MethodPost, "/scan/cancel", nil)
}

func (c *Client) GetSchedule() (types.Schedule, error) {
	s, err := getJSON[types.Schedule](c, "/schedule")
	if err != nil {
		return s, pkgerrors.Wrap(err, "failed to get schedule")
	}
	return s, nil
}

func (c *Client) SetSchedule(cron string) (types.Schedule, error) {
	return sendJSON[types.Schedule](c, http.MethodPut, "/schedule", types.ScheduleRequest{Cron: cron})
}

func (c *Client) DisableSchedule() (types.Schedule, error) {
	ret, err := c.Delete("/schedule")
	if err != nil {
		return types.Schedule{}, err
	}
	var s types.Schedule
	if err := json.Unmarshal([]byte(ret), &s); err != nil {
		return s, pkgerrors.Wrap(err, "failed to unmarshal schedule")
	}
	return s, nil
}

func (c *Client) SkipSchedule() (types.Schedule, error) {
	return sendJSON[types.Schedule](c, http.MethodPost, "/schedule/skip", nil)
}
