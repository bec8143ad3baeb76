package stage

import "fmt"

// Position is the believed stage position in millimetres. X and Y are only
// meaningful when Known is set; an unknown position always reads as (0, 0).
type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Known bool    `json:"known"`
}

// Unknown is the position before homing and after disconnect.
var Unknown = Position{}

func At(x, y float64) Position {
	return Position{X: x, Y: y, Known: true}
}

func (p Position) String() string {
	if !p.Known {
		return "unknown"
	}
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}
