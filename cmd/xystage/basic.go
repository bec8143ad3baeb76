package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tandempv/xystage/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
			if daemonVersion, err := apiClient.GetVersion(); err == nil && daemonVersion != version.Version {
				logrus.WithFields(logrus.Fields{
					"clientVersion": version.Version,
					"daemonVersion": daemonVersion,
				}).Warn("version mismatch between client and daemon")
			}
		},
	}
}

func NewConnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "connect",
		Short:   "Open the serial connection to the stage",
		GroupID: gBasic,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.Connect()
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			logrus.Infof("connected to %s", st.Device)
			return nil
		},
	}
}

func NewDisconnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "disconnect",
		Short:   "Close the serial connection to the stage",
		GroupID: gBasic,
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := apiClient.Disconnect(); err != nil {
				return fmt.Errorf("failed to disconnect: %w", err)
			}
			logrus.Info("disconnected")
			return nil
		},
	}
}

func NewHomeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "home",
		Short:   "Drive the stage to its reference point",
		GroupID: gBasic,
		Long: `Drive the stage to its reference point.

The position is (0, 0) afterwards. Moves are refused until the stage has been
homed. A failed home leaves the position unknown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pos, err := apiClient.Home()
			if err != nil {
				return fmt.Errorf("failed to home: %w", err)
			}
			cmd.Printf("Homed. Position: %s\n", positionText(pos))
			return nil
		},
	}
}

func NewMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "move X Y",
		Short:   "Move the stage to an absolute position in millimetres",
		GroupID: gBasic,
		Example: `  xystage move 10 25.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			xy, err := parseFloatArgs(args, "x", "y")
			if err != nil {
				return err
			}
			pos, err := apiClient.Move(xy[0], xy[1])
			if err != nil {
				return fmt.Errorf("failed to move: %w", err)
			}
			cmd.Printf("Position: %s\n", positionText(pos))
			return nil
		},
	}
}

func NewPositionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "position",
		Aliases: []string{"pos"},
		Short:   "Print the current position",
		GroupID: gBasic,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pos, err := apiClient.GetPosition()
			if err != nil {
				return err
			}
			cmd.Println(positionText(pos))
			return nil
		},
	}
}
