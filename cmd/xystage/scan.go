package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tandempv/xystage/pkg/client"
	"github.com/tandempv/xystage/pkg/scan"
)

func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scan",
		Short:   "Run and control scans over a list of points",
		GroupID: gScan,
		Long: `Run and control scans over a list of points.

A points file holds one "x,y" pair in millimetres per line. Blank lines and
lines starting with # are ignored. Every point is checked against the travel
bounds before the stage moves.`,
	}

	cmd.AddCommand(
		newScanStartCommand(),
		newScanStatusCommand(),
		newScanSaveCommand(),
		newScanActionCommand("pause", "Pause the scan before its next point", (*client.Client).PauseScan),
		newScanActionCommand("resume", "Resume a paused scan", (*client.Client).ResumeScan),
		newScanActionCommand("cancel", "Stop the scan before its next point", (*client.Client).CancelScan),
	)

	return cmd
}

func newScanStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start [points-file]",
		Short: "Start a scan",
		Long: `Start a scan of the points in points-file. Without a file, the daemon
scans its configured scan.points_file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var points []scan.Point
			if len(args) == 1 {
				var err error
				if points, err = scan.LoadPoints(args[0]); err != nil {
					return err
				}
				logrus.Debugf("loaded %d points from %s", len(points), args[0])
			}
			st, err := apiClient.StartScan(points)
			if err != nil {
				return fmt.Errorf("failed to start scan: %w", err)
			}
			cmd.Printf("Scan of %d points started.\n", st.Total)
			return nil
		},
	}
}

func newScanSaveCommand() *cobra.Command {
	replace := false

	cmd := &cobra.Command{
		Use:   "save <points-file> [x,y]...",
		Short: "Add points to a points file",
		Long: `Add points to the end of points-file, creating it if needed. Coordinates
are written in millimetres, rounded to 3 decimals.

Without points, the stage's current position is added, so a scan path can be
recorded by moving the stage and saving after every move.`,
		Example: `  xystage scan save grid.csv 10,10 20,10 20,20
  xystage move 35 12.5 && xystage scan save grid.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			var points []scan.Point
			if len(args) > 1 {
				var err error
				if points, err = scan.ParsePoints(args[1:]); err != nil {
					return err
				}
			} else {
				pos, err := apiClient.GetPosition()
				if err != nil {
					return err
				}
				if !pos.Known {
					return fmt.Errorf("stage position is unknown, home the stage first")
				}
				points = []scan.Point{{X: pos.X, Y: pos.Y}}
			}

			save := scan.AppendPoints
			if replace {
				save = scan.SavePoints
			}
			if err := save(path, points); err != nil {
				return err
			}
			cmd.Printf("Saved %d point(s) to %s.\n", len(points), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Replace the file instead of appending to it")

	return cmd
}

func newScanStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show scan progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.GetScan()
			if err != nil {
				return err
			}
			printScan(cmd, st)
			return nil
		},
	}
}

func newScanActionCommand(use, short string, action func(*client.Client) (scan.Status, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := action(apiClient)
			if err != nil {
				return fmt.Errorf("failed to %s scan: %w", use, err)
			}
			printScan(cmd, st)
			return nil
		},
	}
}
