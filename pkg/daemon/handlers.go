package daemon

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tandempv/xystage/pkg/events"
	"github.com/tandempv/xystage/pkg/scan"
	"github.com/tandempv/xystage/pkg/stage"
	"github.com/tandempv/xystage/pkg/types"
	"github.com/tandempv/xystage/pkg/version"
)

func getPosition(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, controller.Position())
}

func getConfig(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, conf.Raw())
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func getStatus(c *gin.Context) {
	hw := conf.Hardware()
	st := types.Status{
		Stage: controller.Status(),
		Hardware: types.HardwareStatus{
			PulsesPerRevolution: hw.PulsesPerRevolution,
			MMPerRevolution:     hw.MMPerRevolution,
			PWMPulseWidthMicros: hw.PWMPulseWidthMicros,
			PollDelaySeconds:    hw.PollDelay.Seconds(),
			TimeoutSeconds:      hw.ResponseTimeout.Seconds(),
			BaudRate:            hw.BaudRate,
			Device:              conf.Device().String(),
		},
		Bounds:    conf.Bounds(),
		Scan:      scanStatus(),
		Schedule:  scheduleView(),
		Simulated: simulated,
		Telemetry: types.TelemetryStatus{
			Broker:  conf.MQTT().Broker,
			Enabled: publisher != nil,
		},
	}
	c.IndentedJSON(http.StatusOK, st)
}

func postConnect(c *gin.Context) {
	if err := controller.Connect(); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, controller.Status())
}

func postDisconnect(c *gin.Context) {
	manualOp.Lock()
	defer manualOp.Unlock()
	if err := checkNoScan(); err != nil {
		abortWithError(c, err)
		return
	}
	if err := controller.Disconnect(); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, controller.Status())
}

func postHome(c *gin.Context) {
	manualOp.Lock()
	defer manualOp.Unlock()
	if err := checkNoScan(); err != nil {
		abortWithError(c, err)
		return
	}
	if err := controller.Home(); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, controller.Position())
}

func putMove(c *gin.Context) {
	var req types.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", types.ErrBadRequest, err))
		return
	}
	if err := conf.Bounds().Check(req.X, req.Y); err != nil {
		abortWithError(c, err)
		return
	}

	manualOp.Lock()
	defer manualOp.Unlock()
	if err := checkNoScan(); err != nil {
		abortWithError(c, err)
		return
	}
	pos, err := controller.MoveTo(req.X, req.Y)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, pos)
}

// manualOp is held by manual disconnect, home and move requests for their
// whole run, and by scan starts.
var manualOp sync.Mutex

func checkNoScan() error {
	if runner.Status().Phase.Active() {
		return fmt.Errorf("%w: %w", stage.ErrPrecondition, scan.ErrInProgress)
	}
	return nil
}

// startScan starts points in the background. It refuses while a manual
// operation holds the stage.
func startScan(points []scan.Point) error {
	if !manualOp.TryLock() {
		return stage.ErrBusy
	}
	defer manualOp.Unlock()
	if controller.State().Busy() {
		return stage.ErrBusy
	}

	if !controller.Position().Known {
		return stage.ErrNotHomed
	}
	return runner.Start(points)
}

func stageStatusEvent(st stage.Status) events.StageStatusEvent {
	return events.StageStatusEvent{
		State:     string(st.State),
		X:         st.Position.X,
		Y:         st.Position.Y,
		Known:     st.Position.Known,
		LastError: st.LastError,
		Ts:        time.Now().Unix(),
	}
}

func publishStageStatus(st stage.Status) {
	sseHub.Publish(events.StageStatus, stageStatusEvent(st))
	logrus.WithField("event", events.StageStatus).Trace("new event")
}
