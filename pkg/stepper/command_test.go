package stepper

import (
	"math/rand"
	"regexp"
	"testing"
)

var commandGrammar = regexp.MustCompile(`^-?[0-9]+,-?[0-9]+ -?[0-9]+,-?[0-9]+$`)

func TestEncode(t *testing.T) {
	tests := []struct {
		cmd  MoveCommand
		want string
	}{
		{MoveCommand{}, "0,0 0,0"},
		{MoveCommand{XRevolutions: -2}, "-2,0 0,0"},
		{MoveCommand{XRevolutions: 1, XRemainder: 50, YRevolutions: -3, YRemainder: -199}, "1,50 -3,-199"},
	}
	for _, tt := range tests {
		if got := Encode(tt.cmd); got != tt.want {
			t.Errorf("Encode(%+v) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestEncodeGrammar(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		cmd := MoveCommand{
			XRevolutions: rng.Intn(2001) - 1000,
			XRemainder:   rng.Intn(399) - 199,
			YRevolutions: rng.Intn(2001) - 1000,
			YRemainder:   rng.Intn(399) - 199,
		}
		s := Encode(cmd)
		if !commandGrammar.MatchString(s) {
			t.Fatalf("Encode(%+v) = %q does not match the command grammar", cmd, s)
		}
		if s != Encode(cmd) {
			t.Fatalf("Encode(%+v) is not deterministic", cmd)
		}
		parsed, err := ParseCommand(s)
		if err != nil {
			t.Fatalf("ParseCommand(%q) error: %v", s, err)
		}
		if parsed != cmd {
			t.Fatalf("ParseCommand(%q) = %+v, want %+v", s, parsed, cmd)
		}
	}
}

func TestEncodeComputedMove(t *testing.T) {
	got := Encode(ComputeMove(0, 0, 10, 0, 200, 5).Command)
	if got != "-2,0 0,0" {
		t.Errorf("Encode(ComputeMove(0,0 -> 10,0)) = %q, want %q", got, "-2,0 0,0")
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, s := range []string{"", "HOME", "1,2", "1,2 3", "1,2 a,4", "1;2 3,4", "1,2 3,4 5,6"} {
		if _, err := ParseCommand(s); err == nil {
			t.Errorf("ParseCommand(%q) expected error", s)
		}
	}
}
