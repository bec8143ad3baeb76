package stepper

import (
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// HomeCommand asks the firmware to drive both axes to their reference switches.
const HomeCommand = "HOME"

// Encode renders cmd as "<xRevs>,<xMod> <yRevs>,<yMod>". No terminator is
// appended; the firmware reads until the serial line goes idle.
func Encode(cmd MoveCommand) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(cmd.XRevolutions))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(cmd.XRemainder))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(cmd.YRevolutions))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(cmd.YRemainder))
	return b.String()
}

// ParseCommand is the inverse of Encode. It is what the firmware does with a
// move line and is used by the simulated device.
func ParseCommand(s string) (MoveCommand, error) {
	pairs := strings.Split(strings.TrimSpace(s), " ")
	if len(pairs) != 2 {
		return MoveCommand{}, pkgerrors.Errorf("malformed move command %q: want two space separated pairs", s)
	}

	xRevs, xMod, err := parsePair(pairs[0])
	if err != nil {
		return MoveCommand{}, pkgerrors.Wrapf(err, "malformed x pair in %q", s)
	}
	yRevs, yMod, err := parsePair(pairs[1])
	if err != nil {
		return MoveCommand{}, pkgerrors.Wrapf(err, "malformed y pair in %q", s)
	}

	return MoveCommand{
		XRevolutions: xRevs,
		XRemainder:   xMod,
		YRevolutions: yRevs,
		YRemainder:   yMod,
	}, nil
}

func parsePair(s string) (int, int, error) {
	revsStr, modStr, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, pkgerrors.Errorf("missing comma in %q", s)
	}
	revs, err := strconv.Atoi(revsStr)
	if err != nil {
		return 0, 0, err
	}
	mod, err := strconv.Atoi(modStr)
	if err != nil {
		return 0, 0, err
	}
	return revs, mod, nil
}

// Pulses returns the signed pulse totals carried by cmd for a drive with ppr
// pulses per revolution.
func (cmd MoveCommand) Pulses(ppr int) (x, y int) {
	return cmd.XRevolutions*ppr + cmd.XRemainder, cmd.YRevolutions*ppr + cmd.YRemainder
}
