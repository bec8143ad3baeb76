package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tandempv/xystage/pkg/daemon"
	"github.com/tandempv/xystage/pkg/version"
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	opts := daemon.Options{}

	cmd := &cobra.Command{
		Use:     "daemon",
		Hidden:  true,
		Short:   "Run xystage daemon in the foreground",
		GroupID: gInstallation,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("xystage daemon starting")
			opts.ConfigPath = configPath
			opts.SocketPath = unixSocketPath
			return daemon.Run(opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.AllowNonRoot, "allow-non-root-access", false,
		"Allow non-root users to access the daemon.")
	f.BoolVar(&opts.Simulate, "simulate", false,
		"Drive an in-memory simulated stage instead of the serial device.")

	return cmd
}
