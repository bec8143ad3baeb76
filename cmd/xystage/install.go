package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	daemonutils "github.com/tandempv/xystage/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false
	simulate := false

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install the xystage daemon as a systemd service",
		GroupID: gInstallation,
		Long: `Install the xystage daemon as a systemd service.

This makes the daemon run in the background and start on boot. You must run
this command as root.

By default, only root may use the daemon socket. Pass --allow-non-root-access
to let other users drive the stage without sudo.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args := []string{"--config", configPath, "--daemon-socket", unixSocketPath}
			if allowNonRootAccess {
				logrus.Info("non-root users are allowed to access the xystage daemon.")
				args = append(args, "--allow-non-root-access")
			} else {
				logrus.Info("only root user is allowed to access the xystage daemon.")
			}
			if simulate {
				args = append(args, "--simulate")
			}

			if err := daemonutils.Install(args); err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()
			cmd.Printf("systemd will run the current binary (%s), so do not move it. If it is moved or deleted, run `xystage install' again.\n", exePath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access the xystage daemon.")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Install the daemon in simulation mode.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall the xystage systemd service",
		GroupID: gInstallation,
		Long: `Stop the xystage daemon and remove its systemd service.

You must run this command as root.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := daemonutils.Uninstall(); err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}
			logrus.Infof("uninstallation succeeded")
			return nil
		},
	}
}
