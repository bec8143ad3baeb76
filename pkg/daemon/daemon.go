package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tandempv/xystage/pkg/channel"
	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/events"
	"github.com/tandempv/xystage/pkg/scan"
	"github.com/tandempv/xystage/pkg/stage"
	"github.com/tandempv/xystage/pkg/telemetry"
)

var (
	conf       *config.Config
	controller *stage.Controller
	runner     *scan.Runner
	scheduler  *scan.Scheduler
	sseHub     *events.EventHub
	publisher  *telemetry.Publisher
	simulated  bool
)

// Options configures Run.
type Options struct {
	ConfigPath string
	SocketPath string
	// AllowNonRoot makes the socket world-writable.
	AllowNonRoot bool
	// Simulate replaces the serial device with an in-memory simulator.
	Simulate bool
}

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))

	router.GET("/position", getPosition)
	router.GET("/status", getStatus)
	router.GET("/config", getConfig)
	router.GET("/version", getVersion)
	router.POST("/connect", postConnect)
	router.POST("/disconnect", postDisconnect)
	router.POST("/home", postHome)
	router.PUT("/move", putMove)

	router.POST("/scan", postScan)
	router.GET("/scan", getScan)
	router.POST("/scan/pause", postScanPause)
	router.POST("/scan/resume", postScanResume)
	router.POST("/scan/cancel", postScanCancel)

	router.GET("/schedule", getSchedule)
	router.PUT("/schedule", putSchedule)
	router.DELETE("/schedule", deleteSchedule)
	router.POST("/schedule/skip", postScheduleSkip)

	router.GET("/events", getEvents)

	return router
}

// setup builds the daemon state around c and dial. It does not connect.
func setup(c *config.Config, dial channel.Dialer) {
	conf = c
	sseHub = events.NewEventHub()

	controller = stage.New(c.Hardware(), dial)
	controller.OnChange(publishStageStatus)

	runner = scan.NewRunner(controller, c.Bounds())
	runner.OnChange(publishScanStatus)

	scheduler = scan.NewScheduler(runScheduledScan, preCheckScheduledScan)
	scheduler.OnUpcoming = notifyUpcomingScan
	scheduler.OnError = notifyScheduleError
}

func dialer(c *config.Config, simulate bool) channel.Dialer {
	if simulate {
		return channel.NewSimulator().Dialer()
	}
	d := c.Device()
	return channel.SerialDialer(d.Path, d.VendorID, d.ProductID, c.Hardware().BaudRate)
}

func Run(opts Options) error {
	c, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	logrus.WithFields(c.LogrusFields()).Info("config loaded")

	simulated = opts.Simulate
	if simulated {
		logrus.Warn("simulation mode: no hardware will be driven")
	}
	setup(c, dialer(c, simulated))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if m := c.MQTT(); m.Broker != "" {
		publisher = telemetry.New(m)
		if err := publisher.Connect(); err != nil {
			logrus.WithError(err).Error("mqtt telemetry disabled")
			publisher = nil
		} else {
			go publisher.Run(ctx, sseHub.Subscribe())
		}
	}

	if err := controller.Connect(); err != nil {
		logrus.WithError(err).Warn("stage not connected at startup, waiting for a connect request")
	}

	if expr := c.Scan().Schedule; expr != "" {
		if c.Scan().PointsFile == "" {
			logrus.Warn("scan.schedule is set without scan.points_file, not scheduling")
		} else if err := scheduler.Schedule(expr); err != nil {
			logrus.WithError(err).Error("failed to schedule scans")
		} else {
			scheduler.Start()
		}
	}

	srv := &http.Server{
		Handler:           setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	_ = os.Remove(opts.SocketPath)
	l, err := net.Listen("unix", opts.SocketPath)
	if err != nil {
		return err
	}

	if opts.AllowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", opts.SocketPath)
		if err := os.Chmod(opts.SocketPath, 0777); err != nil {
			return err
		}
	}

	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	shutdown(srv)
	return nil
}

func shutdown(srv *http.Server) {
	logrus.Info("stopping scan scheduler")
	scheduler.Stop()

	if runner.Status().Phase.Active() {
		logrus.Info("cancelling running scan")
		_ = runner.Cancel()
		runner.Wait()
	}

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}

	logrus.Info("disconnecting stage")
	if err := controller.Disconnect(); err != nil {
		logrus.Errorf("failed to disconnect stage: %v", err)
	}

	if publisher != nil {
		publisher.Close()
	}
	sseHub.Close()

	logrus.Info("exiting")
}
