package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tandempv/xystage/pkg/events"
	"github.com/tandempv/xystage/pkg/scan"
	"github.com/tandempv/xystage/pkg/stage"
	"github.com/tandempv/xystage/pkg/types"
)

const upcomingRuns = 3

func scanStatus() scan.Status {
	st := runner.Status()
	if _, next, running := scheduler.Status(); running {
		st.ScheduledAt = next
	}
	return st
}

func scheduleView() types.Schedule {
	expr, _, running := scheduler.Status()
	v := types.Schedule{Cron: expr, Enabled: running && expr != ""}
	if v.Enabled {
		v.NextRuns = scheduler.Upcoming(upcomingRuns)
	}
	return v
}

// configuredPoints loads the points file named in the config.
func configuredPoints() ([]scan.Point, error) {
	path := conf.Scan().PointsFile
	if path == "" {
		return nil, fmt.Errorf("%w: no points given and scan.points_file is not set", scan.ErrNoPoints)
	}
	return scan.LoadPoints(path)
}

func postScan(c *gin.Context) {
	var req types.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, fmt.Errorf("%w: %v", types.ErrBadRequest, err))
		return
	}

	points := req.Points
	if len(points) == 0 {
		var err error
		if points, err = configuredPoints(); err != nil {
			abortWithError(c, err)
			return
		}
	}

	if err := startScan(points); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusAccepted, scanStatus())
}

func getScan(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, scanStatus())
}

func postScanPause(c *gin.Context)  { scanAction(c, runner.Pause) }
func postScanResume(c *gin.Context) { scanAction(c, runner.Resume) }
func postScanCancel(c *gin.Context) { scanAction(c, runner.Cancel) }

func scanAction(c *gin.Context, fn func() error) {
	if err := fn(); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, scanStatus())
}

func getSchedule(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, scheduleView())
}

func putSchedule(c *gin.Context) {
	var req types.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", types.ErrBadRequest, err))
		return
	}
	if req.Cron == "" {
		deleteSchedule(c)
		return
	}
	if conf.Scan().PointsFile == "" {
		abortWithError(c, fmt.Errorf("%w: scheduled scans need scan.points_file", scan.ErrNoPoints))
		return
	}
	if err := scheduler.Schedule(req.Cron); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", types.ErrBadRequest, err))
		return
	}
	scheduler.Start()

	v := scheduleView()
	msg := fmt.Sprintf("Scans scheduled with %q", req.Cron)
	if len(v.NextRuns) > 0 {
		msg = fmt.Sprintf("Next scan at %s", v.NextRuns[0].Format("Jan _2 15:04"))
	}
	publishAction(events.ScanAction, scan.ActionSchedule, msg)
	logrus.WithField("cron", req.Cron).Info("scan schedule set")

	c.IndentedJSON(http.StatusOK, v)
}

func deleteSchedule(c *gin.Context) {
	if expr, _, _ := scheduler.Status(); expr != "" {
		scheduler.Disable()
		publishAction(events.ScanAction, scan.ActionScheduleDisable, "Scan schedule disabled")
		logrus.Info("scan schedule disabled")
	}
	c.IndentedJSON(http.StatusOK, scheduleView())
}

func postScheduleSkip(c *gin.Context) {
	if err := scheduler.Skip(); err != nil {
		abortWithError(c, err)
		return
	}
	publishAction(events.ScanAction, scan.ActionScheduleSkip, "Next scheduled scan skipped")
	c.IndentedJSON(http.StatusOK, scheduleView())
}

// runScheduledScan is the scheduler job. It blocks until the scan ends.
func runScheduledScan() error {
	points, err := configuredPoints()
	if err != nil {
		return err
	}
	if err := startScan(points); err != nil {
		return err
	}
	return runner.Wait()
}

func preCheckScheduledScan() error {
	if !controller.Position().Known {
		return stage.ErrNotHomed
	}
	if controller.State().Busy() {
		return stage.ErrBusy
	}
	if runner.Status().Phase.Active() {
		return scan.ErrInProgress
	}
	return nil
}

func notifyUpcomingScan(at time.Time) {
	sseHub.Publish(events.ScheduleUpcoming, events.ActionEvent{
		Action:  string(scan.ActionSchedule),
		Message: fmt.Sprintf("Scheduled scan starts at %s", at.Format("15:04")),
		Ts:      time.Now().Unix(),
	})
}

func notifyScheduleError(err error) {
	logrus.WithError(err).Warn("scheduled scan")
	sseHub.Publish(events.ScheduleError, events.ActionEvent{
		Message: err.Error(),
		Ts:      time.Now().Unix(),
	})
}

func publishScanStatus(st scan.Status, action scan.Action) {
	ev := events.ScanProgressEvent{
		Phase:   string(st.Phase),
		Index:   st.Index,
		Total:   st.Total,
		Message: st.Message,
		Ts:      time.Now().Unix(),
	}
	if st.Current != nil {
		x, y := st.Current.X, st.Current.Y
		ev.X, ev.Y = &x, &y
	}
	sseHub.Publish(events.ScanProgress, ev)

	if action != "" {
		publishAction(events.ScanAction, action, scanActionMessage(st, action))
	}
}

func scanActionMessage(st scan.Status, action scan.Action) string {
	switch action {
	case scan.ActionStart:
		return fmt.Sprintf("Scan of %d points started", st.Total)
	case scan.ActionPause:
		return fmt.Sprintf("Scan paused at point %d of %d", st.Index+1, st.Total)
	case scan.ActionResume:
		return fmt.Sprintf("Scan resumed at point %d of %d", st.Index+1, st.Total)
	case scan.ActionCancel:
		return fmt.Sprintf("Scan cancelled after %d of %d points", st.Index, st.Total)
	}
	return ""
}

func publishAction(name string, action scan.Action, msg string) {
	sseHub.Publish(name, events.ActionEvent{
		Action:  string(action),
		Message: msg,
		Ts:      time.Now().Unix(),
	})
}
