package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tandempv/xystage/pkg/client"
	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/stage"
)

var (
	logLevel       = "info"
	unixSocketPath = "/run/xystage.sock"
	configPath     = "/etc/xystage.yaml"
)

var apiClient *client.Client

var (
	gBasic        = "Basic:"
	gScan         = "Scanning:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gScan,
		gInstallation,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: xystage daemon is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Have you installed it?")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or reinstall the daemon with the '--allow-non-root-access' flag")
	case errors.Is(err, stage.ErrPrecondition):
		fmt.Fprintln(os.Stderr, "\nHint: run 'xystage connect' and 'xystage home' before moving the stage")
	case errors.Is(err, stage.ErrDeviceNotFound):
		fmt.Fprintln(os.Stderr, "\nHint: is the stage plugged in? Check 'vid', 'pid' or 'device' in the config file")
	case errors.Is(err, stage.ErrDeviceTimeout):
		fmt.Fprintln(os.Stderr, "\nHint: the stage did not answer in time, its position is no longer trusted")
	case errors.Is(err, config.ErrOutOfBounds):
		fmt.Fprintln(os.Stderr, "\nHint: 'xystage status' shows the travel bounds")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xystage",
		Short: "xystage drives a two-axis stepper stage over serial",
		Long: `xystage drives a two-axis stepper stage over serial.

A daemon owns the stage controller and serves a small API on a unix socket.
The other commands are clients of that daemon.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := setupLogger(); err != nil {
				return err
			}
			apiClient = client.NewClient(unixSocketPath)
			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "xystage daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewConnectCommand(),
		NewDisconnectCommand(),
		NewHomeCommand(),
		NewMoveCommand(),
		NewPositionCommand(),
		NewStatusCommand(),
		NewScanCommand(),
		NewScheduleCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
