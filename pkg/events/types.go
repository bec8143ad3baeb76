package events

import "encoding/json"

// Event names.
const (
	StageStatus      = "stage.status"
	ScanProgress     = "scan.progress"
	ScanAction       = "scan.action"
	ScheduleUpcoming = "schedule.upcoming"
	ScheduleError    = "schedule.error"
)

// Event is one published message.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// StageStatusEvent is the payload of stage.status, sent on every controller
// state or position change.
type StageStatusEvent struct {
	State     string  `json:"state"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Known     bool    `json:"known"`
	LastError string  `json:"lastError,omitempty"`
	Ts        int64   `json:"ts"`
}

// ScanProgressEvent is the payload of scan.progress.
type ScanProgressEvent struct {
	Phase   string   `json:"phase"`
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Message string   `json:"message,omitempty"`
	Ts      int64    `json:"ts"`
}

// ActionEvent is the payload of scan.action, schedule.upcoming and
// schedule.error.
type ActionEvent struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
	Ts      int64  `json:"ts"`
}

// DecodeAs decodes the event payload into T. Empty data yields the zero
// value of T.
//
// Example:
//
//	st, err := events.DecodeAs[events.StageStatusEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(st.State, st.X, st.Y)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
