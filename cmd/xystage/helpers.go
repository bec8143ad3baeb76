package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"

	"github.com/tandempv/xystage/pkg/stage"
)

// parseFloatArgs parses exactly len(names) arguments as millimetre values.
func parseFloatArgs(args []string, names ...string) ([]float64, error) {
	if len(args) != len(names) {
		return nil, fmt.Errorf("invalid number of arguments: want %d, got %d", len(names), len(args))
	}

	values := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %v", names[i], err)
		}
		values[i] = v
	}
	return values, nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

func positionText(p stage.Position) string {
	if !p.Known {
		return color.YellowString("unknown (home the stage first)")
	}
	return bold("x=%.3f mm, y=%.3f mm", p.X, p.Y)
}

func stateText(s stage.State) string {
	switch {
	case s == stage.StateIdle:
		return color.GreenString(string(s))
	case s.Busy():
		return color.CyanString(string(s))
	case s == stage.StateUnhomed:
		return color.YellowString(string(s))
	}
	return color.RedString(string(s))
}
