package stage

// State is the controller lifecycle state.
type State string

const (
	StateDisconnected State = "Disconnected"
	// StateUnhomed is connected with the position unknown.
	StateUnhomed State = "Unhomed"
	StateHoming  State = "Homing"
	StateIdle    State = "Idle"
	StateMoving  State = "Moving"
)

// Connected reports whether the channel is open in state s.
func (s State) Connected() bool {
	return s != StateDisconnected && s != ""
}

// Busy reports whether a device operation is in flight.
func (s State) Busy() bool {
	return s == StateHoming || s == StateMoving
}
