package main

import (
	"encoding/json"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tandempv/xystage/pkg/scan"
	"github.com/tandempv/xystage/pkg/types"
)

func NewStatusCommand() *cobra.Command {
	asJSON := false

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of the stage",
		Long:    `Get stage state, position, hardware constants, scan progress and schedule.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.GetStatus()
			if err != nil {
				return err
			}

			if asJSON {
				b, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			printStatus(cmd, st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status as JSON")

	return cmd
}

func printStatus(cmd *cobra.Command, st types.Status) {
	cmd.Println(bold("Stage:"))
	cmd.Printf("  State: %s\n", stateText(st.Stage.State))
	cmd.Printf("  Connected: %s\n", bool2Text(st.Stage.State.Connected()))
	cmd.Printf("  Homed: %s\n", bool2Text(st.Stage.Position.Known))
	cmd.Printf("  Position: %s\n", positionText(st.Stage.Position))
	if st.Stage.Device != "" {
		cmd.Printf("  Device: %s\n", st.Stage.Device)
	}
	if st.Stage.LastError != "" {
		cmd.Printf("  Last error: %s\n", color.RedString(st.Stage.LastError))
	}
	if st.Simulated {
		cmd.Printf("  %s\n", color.YellowString("Simulated: no hardware is being driven"))
	}
	cmd.Println()

	hw := st.Hardware
	cmd.Println(bold("Hardware:"))
	cmd.Printf("  Pulses per revolution: %s\n", bold("%d", hw.PulsesPerRevolution))
	cmd.Printf("  Travel per revolution: %s\n", bold("%g mm", hw.MMPerRevolution))
	cmd.Printf("  Pulse width: %s\n", bold("%g µs", hw.PWMPulseWidthMicros))
	cmd.Printf("  Polling delay: %s\n", bold("%gs", hw.PollDelaySeconds))
	if hw.TimeoutSeconds > 0 {
		cmd.Printf("  Response timeout: %s\n", bold("%gs", hw.TimeoutSeconds))
	} else {
		cmd.Printf("  Response timeout: %s\n", bold("none"))
	}
	cmd.Printf("  Baud rate: %s\n", bold("%d", hw.BaudRate))
	cmd.Printf("  Configured device: %s\n", hw.Device)
	b := st.Bounds
	cmd.Printf("  Travel: %s\n", bold("x %g..%g mm, y %g..%g mm", b.XMin, b.XMax, b.YMin, b.YMax))
	cmd.Println()

	cmd.Println(bold("Scan:"))
	printScan(cmd, st.Scan)
	if st.Schedule.Enabled {
		cmd.Printf("  Schedule: %s\n", bold("%s", st.Schedule.Cron))
		if len(st.Schedule.NextRuns) > 0 {
			cmd.Printf("  Next scheduled scan: %s\n", st.Schedule.NextRuns[0].Local().Format(time.DateTime))
		}
	} else {
		cmd.Printf("  Schedule: %s\n", bool2Text(false))
	}

	if st.Telemetry.Broker != "" {
		cmd.Println()
		cmd.Println(bold("Telemetry:"))
		cmd.Printf("  MQTT broker: %s %s\n", st.Telemetry.Broker, bool2Text(st.Telemetry.Enabled))
	}
}

func printScan(cmd *cobra.Command, s scan.Status) {
	phase := string(s.Phase)
	switch s.Phase {
	case scan.PhaseRunning:
		phase = color.CyanString(phase)
	case scan.PhasePaused:
		phase = color.YellowString(phase)
	case scan.PhaseDone:
		phase = color.GreenString(phase)
	case scan.PhaseError, scan.PhaseCancelled:
		phase = color.RedString(phase)
	}
	cmd.Printf("  Phase: %s\n", phase)
	if s.Total > 0 {
		cmd.Printf("  Progress: %s\n", bold("%d/%d points", s.Index, s.Total))
	}
	if s.Current != nil && s.Phase.Active() {
		cmd.Printf("  Current point: %s\n", s.Current)
	}
	if !s.StartedAt.IsZero() {
		cmd.Printf("  Started: %s\n", s.StartedAt.Local().Format(time.DateTime))
	}
	if !s.FinishedAt.IsZero() && !s.Phase.Active() {
		cmd.Printf("  Finished: %s\n", s.FinishedAt.Local().Format(time.DateTime))
	}
	if s.Message != "" {
		cmd.Printf("  Message: %s\n", s.Message)
	}
}
