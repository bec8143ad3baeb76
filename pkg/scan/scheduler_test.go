package scan

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestParser(t *testing.T) {
	for _, expr := range []string{"@every 10m", "0 9 * * 1-5", "30 0 9 * * *", "@daily"} {
		if _, err := Parser.Parse(expr); err != nil {
			t.Errorf("Parse(%q) error: %v", expr, err)
		}
	}
	if _, err := Parser.Parse("every day"); err == nil {
		t.Errorf("Parse() accepted garbage")
	}
}

func TestSchedulerScheduleStatus(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil)

	if err := s.Schedule("not cron"); err == nil {
		t.Fatalf("Schedule() accepted an invalid expression")
	}
	if err := s.Schedule("@every 1m"); err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}

	expr, next, running := s.Status()
	if running {
		t.Errorf("scheduler should not be running")
	}
	if expr != "@every 1m" || next.IsZero() {
		t.Errorf("Status() = %q, %v", expr, next)
	}

	runs := s.Upcoming(3)
	if len(runs) != 3 || !runs[0].Equal(next) || runs[2].Sub(runs[1]) != time.Minute {
		t.Errorf("Upcoming(3) = %v", runs)
	}
}

func TestSchedulerSkip(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil)
	if err := s.Skip(); !errors.Is(err, ErrNoSchedule) {
		t.Errorf("Skip() without schedule = %v, want ErrNoSchedule", err)
	}
	if err := s.Schedule("@every 10m"); err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	_, orig, _ := s.Status()
	if err := s.Skip(); err != nil {
		t.Fatalf("Skip() error: %v", err)
	}
	_, skipped, _ := s.Status()
	if skipped.Sub(orig) != 10*time.Minute {
		t.Errorf("Skip() moved next run from %v to %v", orig, skipped)
	}
}

func TestSchedulerDisableAndRestart(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil)
	if err := s.Schedule("@every 10m"); err != nil {
		t.Fatal(err)
	}
	s.Start()
	s.Disable()

	expr, next, running := s.Status()
	if expr != "" || !next.IsZero() || running {
		t.Errorf("after Disable: %q %v running=%t", expr, next, running)
	}

	if err := s.Schedule("@every 5m"); err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()
	if _, _, running := s.Status(); !running {
		t.Errorf("scheduler did not restart after Disable")
	}
}

func TestSchedulerRunCycle(t *testing.T) {
	upcoming := make(chan time.Time, 1)
	ran := make(chan struct{}, 1)
	var preChecks int32

	s := NewScheduler(func() error {
		ran <- struct{}{}
		return nil
	}, func() error {
		atomic.AddInt32(&preChecks, 1)
		return nil
	})
	s.OnUpcoming = func(at time.Time) { upcoming <- at }
	s.OnError = func(err error) { t.Errorf("unexpected error: %v", err) }

	if err := s.Schedule("@every 1h"); err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	s.nextRun = time.Now().Add(50 * time.Millisecond)
	s.mu.Unlock()

	s.Start()
	defer s.Stop()

	select {
	case <-upcoming:
	case <-time.After(time.Second):
		t.Fatalf("no upcoming notification")
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not run")
	}
	if atomic.LoadInt32(&preChecks) != 1 {
		t.Errorf("prechecks = %d, want 1", preChecks)
	}

	// The next run comes from the schedule again.
	_, next, _ := s.Status()
	if time.Until(next) < 59*time.Minute {
		t.Errorf("next run %v was not advanced by the schedule", next)
	}
}

func TestSchedulerPreCheckGivesUp(t *testing.T) {
	ran := make(chan struct{}, 1)
	errs := make(chan error, 8)

	s := NewScheduler(func() error {
		ran <- struct{}{}
		return nil
	}, func() error {
		return errors.New("stage not homed")
	})
	s.OnError = func(err error) { errs <- err }
	s.PreCheckRetries = 2
	s.PreCheckInterval = 10 * time.Millisecond

	if err := s.Schedule("@every 1h"); err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	forced := time.Now().Add(20 * time.Millisecond)
	s.nextRun = forced
	s.mu.Unlock()

	s.Start()
	defer s.Stop()

	select {
	case <-errs:
	case <-time.After(time.Second):
		t.Fatalf("expected a precheck error")
	}

	deadline := time.Now().Add(time.Second)
	for {
		_, next, _ := s.Status()
		if next.After(forced) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run was not given up")
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-ran:
		t.Fatalf("job ran although precheck failed")
	default:
	}
	// Identical precheck errors are reported once.
	if len(errs) != 0 {
		t.Errorf("got %d repeated precheck errors", len(errs))
	}
}
