package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tandempv/xystage/pkg/channel"
	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/scan"
	"github.com/tandempv/xystage/pkg/stage"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("boom"), ""},
		{stage.ErrNotHomed, KindPrecondition},
		{stage.ErrBusy, KindPrecondition},
		{fmt.Errorf("%w: %w", stage.ErrPrecondition, scan.ErrInProgress), KindScanInProgress},
		{fmt.Errorf("move: %w", stage.ErrDeviceTimeout), KindTimeout},
		{channel.ErrClosed, KindTransport},
		{fmt.Errorf("connect: %w", channel.ErrDeviceNotFound), KindNotFound},
		{fmt.Errorf("point 2: %w", config.ErrOutOfBounds), KindOutOfBounds},
		{scan.ErrNoSchedule, KindNoSchedule},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestSentinelOfRoundTrip(t *testing.T) {
	for _, k := range kinds {
		if got := SentinelOf(k.kind); got != k.sentinel {
			t.Errorf("SentinelOf(%q) = %v, want %v", k.kind, got, k.sentinel)
		}
		if got := KindOf(k.sentinel); got != k.kind {
			t.Errorf("KindOf(%v) = %q, want %q", k.sentinel, got, k.kind)
		}
	}
	if SentinelOf("nope") != nil {
		t.Errorf("SentinelOf() of unknown kind is not nil")
	}
}
