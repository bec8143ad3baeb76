package scan

import "time"

// Phase of a scan run.
type Phase string

const (
	PhaseIdle      Phase = "Idle"
	PhaseRunning   Phase = "Running"
	PhasePaused    Phase = "Paused"
	PhaseDone      Phase = "Done"
	PhaseCancelled Phase = "Cancelled"
	PhaseError     Phase = "Error"
)

// Active reports whether a scan occupies the stage in phase p.
func (p Phase) Active() bool {
	return p == PhaseRunning || p == PhasePaused
}

// Action is a user action on a scan or its schedule.
type Action string

const (
	ActionStart           Action = "Start"
	ActionPause           Action = "Pause"
	ActionResume          Action = "Resume"
	ActionCancel          Action = "Cancel"
	ActionSchedule        Action = "Schedule"
	ActionScheduleDisable Action = "ScheduleDisable"
	ActionScheduleSkip    Action = "ScheduleSkip"
)

// Status is the view model of the current or last scan.
type Status struct {
	Phase Phase `json:"phase"`
	// Index is the zero-based point being moved to, or the number of points
	// completed once the scan has ended.
	Index      int       `json:"index"`
	Total      int       `json:"total"`
	Current    *Point    `json:"current,omitempty"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	Message    string    `json:"message,omitempty"`
	// ScheduledAt is the next scheduled run, zero when no schedule is active.
	ScheduledAt time.Time `json:"scheduledAt,omitempty"`
	CanPause    bool      `json:"canPause"`
	CanCancel   bool      `json:"canCancel"`
}
