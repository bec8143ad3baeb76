// Package stepper converts stage coordinates into the pulse commands
// understood by the X/Y stepper firmware, and decodes its replies.
//
// Sign convention: a delta is always current minus target, so a positive
// delta drives the stage towards the negative-configured direction. The same
// inversion is applied when the controller advances its position after a
// move (see Displacement).
package stepper

import (
	"math"
	"time"
)

// MoveCommand is the payload of one move on the wire. Each axis is split into
// whole revolutions plus remaining pulses. Both fields of an axis carry the
// direction sign.
type MoveCommand struct {
	XRevolutions int `json:"xRevolutions"`
	XRemainder   int `json:"xRemainder"`
	YRevolutions int `json:"yRevolutions"`
	YRemainder   int `json:"yRemainder"`
}

// Move is a MoveCommand plus the signed pulse totals it was derived from.
// The totals are used for the dwell estimate and the position update.
type Move struct {
	Command MoveCommand
	PulsesX int
	PulsesY int
}

// ComputeMove converts a move from (currentX, currentY) to (targetX, targetY),
// all in millimetres, into a Move for a drive with ppr pulses per revolution
// and mmPerRev millimetres of travel per revolution.
//
// X treats an exactly-zero delta as the negative branch (<= 0) while Y treats
// it as positive (< 0). Both yield all-zero fields, but the two checks are
// kept distinct to match the firmware host this replaces.
func ComputeMove(currentX, currentY, targetX, targetY float64, ppr int, mmPerRev float64) Move {
	turnsX := (currentX - targetX) / mmPerRev
	turnsY := (currentY - targetY) / mmPerRev

	revsX, modX, pulsesX := split(turnsX, ppr)
	revsY, modY, pulsesY := split(turnsY, ppr)

	if turnsX <= 0 {
		revsX, modX, pulsesX = -revsX, -modX, -pulsesX
	}
	if turnsY < 0 {
		revsY, modY, pulsesY = -revsY, -modY, -pulsesY
	}

	return Move{
		Command: MoveCommand{
			XRevolutions: revsX,
			XRemainder:   modX,
			YRevolutions: revsY,
			YRemainder:   modY,
		},
		PulsesX: pulsesX,
		PulsesY: pulsesY,
	}
}

// split returns unsigned revolutions, remainder and pulse magnitude for turns.
func split(turns float64, ppr int) (revs, mod, pulses int) {
	// int() truncates toward zero.
	pulses = int(turns * float64(ppr))
	if pulses < 0 {
		pulses = -pulses
	}
	return pulses / ppr, pulses % ppr, pulses
}

// Displacement is the change in position, in millimetres, that a signed pulse
// count produces. It is the negation of the commanded direction, matching the
// current-minus-target convention of ComputeMove.
func Displacement(pulses int, ppr int, mmPerRev float64) float64 {
	return -1 * float64(pulses) * (1 / float64(ppr)) * mmPerRev
}

// DwellTime is the minimum time the firmware needs to emit all pulses of a
// move: 2 * |pulsesX + pulsesY| * pulse width (µs).
func DwellTime(pulsesX, pulsesY int, pwmWidthMicros float64) time.Duration {
	micros := math.Abs(float64(pulsesX+pulsesY)) * pwmWidthMicros * 2
	return time.Duration(micros * float64(time.Microsecond))
}
