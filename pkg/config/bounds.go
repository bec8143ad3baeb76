package config

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned for a target outside the stage travel.
var ErrOutOfBounds = errors.New("coordinate out of bounds")

// Bounds is the travel envelope of the stage in millimetres, inclusive.
type Bounds struct {
	XMin float64 `json:"xMin"`
	XMax float64 `json:"xMax"`
	YMin float64 `json:"yMin"`
	YMax float64 `json:"yMax"`
}

// Check returns ErrOutOfBounds naming the first violated limit, X before Y
// and max before min.
func (b Bounds) Check(x, y float64) error {
	switch {
	case x > b.XMax:
		return fmt.Errorf("%w: invalid x-coordinate %.3f, max is %g", ErrOutOfBounds, x, b.XMax)
	case x < b.XMin:
		return fmt.Errorf("%w: invalid x-coordinate %.3f, min is %g", ErrOutOfBounds, x, b.XMin)
	case y > b.YMax:
		return fmt.Errorf("%w: invalid y-coordinate %.3f, max is %g", ErrOutOfBounds, y, b.YMax)
	case y < b.YMin:
		return fmt.Errorf("%w: invalid y-coordinate %.3f, min is %g", ErrOutOfBounds, y, b.YMin)
	}
	return nil
}

func (b Bounds) String() string {
	return fmt.Sprintf("x=[%g, %g] y=[%g, %g]", b.XMin, b.XMax, b.YMin, b.YMax)
}
