package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tandempv/xystage/pkg/types"
)

func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule [cron-expression]",
		Aliases: []string{"sch", "sched"},
		Short:   "Manage the scan schedule",
		Long: `Manage the scan schedule.

Scheduled scans run the daemon's configured scan.points_file. A scheduled scan
only starts when the stage is homed and no other scan is running.

The schedule command can be used in multiple ways:
  xystage schedule 'minute hour day month weekday' Set schedule with cron expression
  xystage schedule disable                         Disable the schedule
  xystage schedule skip                            Skip next run
  xystage schedule show                            Show current schedule

Schedules set here last until the daemon restarts. Set scan.schedule in the
config file to keep one.`,
		Example: `  xystage schedule '0 * * * *'   (Every hour)
  xystage schedule '30 8 * * 1-5' (At 08:30 on weekdays)
  xystage schedule '@every 15m'   (Every 15 minutes)`,
		GroupID: gScan,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runScheduleShow(cmd)
			}
			return runScheduleSet(cmd, args[0])
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "disable",
			Short: "Disable the scan schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if _, err := apiClient.DisableSchedule(); err != nil {
					return err
				}
				cmd.Println("Scan schedule disabled.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "skip",
			Short: "Skip the next scheduled scan",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := apiClient.SkipSchedule()
				if err != nil {
					return err
				}
				cmd.Println("Next scheduled scan skipped.")
				printNextRuns(cmd, s)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the current scan schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runScheduleShow(cmd)
			},
		},
	)

	return cmd
}

func runScheduleSet(cmd *cobra.Command, cronExpr string) error {
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	s, err := apiClient.SetSchedule(cronExpr)
	if err != nil {
		return err
	}
	cmd.Printf("Scans scheduled with %s.\n", bold("%s", s.Cron))
	printNextRuns(cmd, s)
	return nil
}

func runScheduleShow(cmd *cobra.Command) error {
	s, err := apiClient.GetSchedule()
	if err != nil {
		return err
	}
	if !s.Enabled {
		cmd.Println("Scan schedule is not set.")
		return nil
	}
	cmd.Printf("Schedule: %s\n", bold("%s", s.Cron))
	printNextRuns(cmd, s)
	return nil
}

func printNextRuns(cmd *cobra.Command, s types.Schedule) {
	if len(s.NextRuns) == 0 {
		return
	}
	cmd.Printf("Next %d run(s):\n", len(s.NextRuns))
	for _, run := range s.NextRuns {
		cmd.Printf("  - %s\n", run.Local().Format(time.DateTime))
	}
}
