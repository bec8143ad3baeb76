package scan

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/stage"
)

var testBounds = config.Bounds{XMin: 0, XMax: 200, YMin: 0, YMax: 200}

// fakeMover records moves. If gate is set, every move blocks until it
// receives a value.
type fakeMover struct {
	mu     sync.Mutex
	moves  []Point
	failAt int
	gate   chan struct{}
	moving chan int
}

func (m *fakeMover) MoveTo(x, y float64) (stage.Position, error) {
	m.mu.Lock()
	m.moves = append(m.moves, Point{x, y})
	n := len(m.moves)
	m.mu.Unlock()

	if m.moving != nil {
		m.moving <- n
	}
	if m.gate != nil {
		<-m.gate
	}
	if n == m.failAt {
		return stage.Position{}, stage.ErrDeviceTimeout
	}
	return stage.At(x, y), nil
}

func (m *fakeMover) recorded() []Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Point(nil), m.moves...)
}

var grid = []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

func TestRunnerCompletes(t *testing.T) {
	m := &fakeMover{}
	r := NewRunner(m, testBounds)

	var mu sync.Mutex
	var seen []Status
	r.OnChange(func(st Status, _ Action) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, st)
	})

	if err := r.Start(grid); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if got := m.recorded(); len(got) != len(grid) {
		t.Fatalf("moves = %v, want %v", got, grid)
	}
	st := r.Status()
	if st.Phase != PhaseDone || st.Index != len(grid) || st.Total != len(grid) {
		t.Errorf("Status() = %+v", st)
	}
	if st.CanPause || st.CanCancel {
		t.Errorf("finished scan reports pause/cancel available")
	}

	mu.Lock()
	defer mu.Unlock()
	// start, one per point, done
	if len(seen) != len(grid)+2 {
		t.Errorf("got %d status updates, want %d", len(seen), len(grid)+2)
	}
}

func TestRunnerRejects(t *testing.T) {
	r := NewRunner(&fakeMover{}, testBounds)
	if err := r.Start(nil); !errors.Is(err, ErrNoPoints) {
		t.Errorf("Start(nil) = %v, want ErrNoPoints", err)
	}
	if err := r.Start([]Point{{1, 1}, {1, 201}}); !errors.Is(err, config.ErrOutOfBounds) {
		t.Errorf("Start() out of bounds = %v, want ErrOutOfBounds", err)
	}
	if r.Status().Phase != PhaseIdle {
		t.Errorf("rejected scan changed phase to %s", r.Status().Phase)
	}
	if err := r.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Pause() = %v, want ErrNotRunning", err)
	}
	if err := r.Cancel(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Cancel() = %v, want ErrNotRunning", err)
	}
}

func TestRunnerStopsOnFailure(t *testing.T) {
	m := &fakeMover{failAt: 2}
	r := NewRunner(m, testBounds)

	if err := r.Start(grid); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := r.Wait(); !errors.Is(err, stage.ErrDeviceTimeout) {
		t.Fatalf("Wait() = %v, want ErrDeviceTimeout", err)
	}
	if n := len(m.recorded()); n != 2 {
		t.Errorf("moves = %d, want 2", n)
	}
	st := r.Status()
	if st.Phase != PhaseError || st.Index != 1 || st.Message == "" {
		t.Errorf("Status() = %+v", st)
	}

	// A failed scan does not block the next one.
	m.failAt = 0
	if err := r.Start(grid); err != nil {
		t.Fatalf("second Start() error: %v", err)
	}
	if err := r.Wait(); err != nil {
		t.Errorf("second scan error: %v", err)
	}
}

func TestRunnerPauseResumeCancel(t *testing.T) {
	m := &fakeMover{gate: make(chan struct{}), moving: make(chan int)}
	r := NewRunner(m, testBounds)

	if err := r.Start(grid); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := r.Start(grid); !errors.Is(err, ErrInProgress) {
		t.Errorf("second Start() = %v, want ErrInProgress", err)
	}

	<-m.moving
	if err := r.Pause(); err != nil {
		t.Fatalf("Pause() error: %v", err)
	}
	m.gate <- struct{}{}

	// The first move completes but the second must not start while paused.
	select {
	case n := <-m.moving:
		t.Fatalf("move %d started while paused", n)
	case <-time.After(50 * time.Millisecond):
	}
	if st := r.Status(); st.Phase != PhasePaused || st.CanPause || !st.CanCancel {
		t.Errorf("Status() while paused = %+v", st)
	}

	if err := r.Resume(); err != nil {
		t.Fatalf("Resume() error: %v", err)
	}
	<-m.moving
	if err := r.Cancel(); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	m.gate <- struct{}{}
	r.Wait()

	st := r.Status()
	if st.Phase != PhaseCancelled || st.Index != 2 {
		t.Errorf("Status() after cancel = %+v", st)
	}
	if n := len(m.recorded()); n != 2 {
		t.Errorf("moves = %d, want 2", n)
	}
}

func TestRunnerCancelWhilePaused(t *testing.T) {
	m := &fakeMover{gate: make(chan struct{}), moving: make(chan int)}
	r := NewRunner(m, testBounds)
	if err := r.Start(grid); err != nil {
		t.Fatal(err)
	}
	<-m.moving
	_ = r.Pause()
	m.gate <- struct{}{}
	if err := r.Cancel(); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	r.Wait()
	if r.Status().Phase != PhaseCancelled {
		t.Errorf("Phase = %s, want %s", r.Status().Phase, PhaseCancelled)
	}
}
