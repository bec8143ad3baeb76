package scan

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	defaultLead             = 5 * time.Minute
	defaultPreCheckRetries  = 30
	defaultPreCheckInterval = 10 * time.Second
	idleWait                = 10000 * time.Hour
)

var ErrNoSchedule = errors.New("no active schedule")

// Parser accepts standard five-field cron, an optional leading seconds
// field, and descriptors such as @hourly and @every 10m.
var Parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is a scheduled unit of work.
type Job func() error

// Scheduler runs a Job on a cron schedule. Before each run it calls
// OnUpcoming Lead ahead of time; at run time PreCheck must pass, and is
// retried PreCheckRetries times PreCheckInterval apart before the run is
// given up. The Job runs on its own goroutine.
type Scheduler struct {
	Job        Job
	PreCheck   Job
	OnUpcoming func(runAt time.Time)
	OnError    func(err error)

	Lead             time.Duration
	PreCheckRetries  int
	PreCheckInterval time.Duration

	mu       sync.Mutex
	expr     string
	schedule cron.Schedule
	nextRun  time.Time
	running  bool
	stopCh   chan struct{}
	kick     chan struct{}
}

func NewScheduler(job, preCheck Job) *Scheduler {
	if job == nil {
		panic("scan: scheduler job cannot be nil")
	}
	return &Scheduler{
		Job:              job,
		PreCheck:         preCheck,
		Lead:             defaultLead,
		PreCheckRetries:  defaultPreCheckRetries,
		PreCheckInterval: defaultPreCheckInterval,
		kick:             make(chan struct{}, 1),
	}
}

// Schedule parses expr and makes it the active schedule. An empty expr
// disables scheduling. The loop must be started separately.
func (s *Scheduler) Schedule(expr string) error {
	if expr == "" {
		s.Disable()
		return nil
	}
	sh, err := Parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	s.mu.Lock()
	s.expr = expr
	s.schedule = sh
	s.nextRun = sh.Next(time.Now())
	s.mu.Unlock()

	s.poke()
	return nil
}

// Disable clears the schedule and stops the loop.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	s.expr = ""
	s.schedule = nil
	s.nextRun = time.Time{}
	s.mu.Unlock()
	s.Stop()
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	go s.loop(s.stopCh)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

// Skip drops the next scheduled run.
func (s *Scheduler) Skip() error {
	s.mu.Lock()
	if s.schedule == nil || s.nextRun.IsZero() {
		s.mu.Unlock()
		return ErrNoSchedule
	}
	s.nextRun = s.schedule.Next(s.nextRun)
	s.mu.Unlock()

	s.poke()
	return nil
}

// Status returns the active cron expression, the next run time, and whether
// the loop is running.
func (s *Scheduler) Status() (expr string, nextRun time.Time, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expr, s.nextRun, s.running
}

// Upcoming returns the next n run times, starting with the pending one.
func (s *Scheduler) Upcoming(n int) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil || s.nextRun.IsZero() {
		return nil
	}
	runs := make([]time.Time, 0, n)
	next := s.nextRun
	for i := 0; i < n; i++ {
		runs = append(runs, next)
		next = s.schedule.Next(next)
	}
	return runs
}

func (s *Scheduler) poke() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Scheduler) snapshot() (cron.Schedule, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule, s.nextRun
}

func (s *Scheduler) advance(from time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A Skip or Schedule may already have moved nextRun.
	if s.schedule == nil || !s.nextRun.Equal(from) {
		return
	}
	s.nextRun = s.schedule.Next(from)
}

func (s *Scheduler) loop(stop chan struct{}) {
	logrus.Debug("scan scheduler started")
	defer logrus.Debug("scan scheduler stopped")

	for {
		schedule, nextRun := s.snapshot()

		wait := idleWait
		if schedule != nil && !nextRun.IsZero() {
			wait = max(time.Until(nextRun)-s.Lead, 0)
		}
		timer := time.NewTimer(wait)
		announced := false
		attempts := 0
		var lastPreCheckErr error

	timing:
		for {
			select {
			case <-stop:
				timer.Stop()
				return
			case <-s.kick:
				timer.Stop()
				break timing
			case <-timer.C:
				if schedule == nil || nextRun.IsZero() {
					break timing
				}

				if !announced {
					announced = true
					logrus.WithField("runAt", nextRun.Format(time.DateTime)).Debug("upcoming scheduled scan")
					if s.OnUpcoming != nil {
						go s.OnUpcoming(nextRun)
					}
					timer.Reset(max(time.Until(nextRun), 0))
					continue
				}

				if s.PreCheck != nil {
					if err := s.PreCheck(); err != nil {
						if lastPreCheckErr == nil || err.Error() != lastPreCheckErr.Error() {
							lastPreCheckErr = err
							s.report(fmt.Errorf("scheduled scan precheck failed: %w", err))
						}
						attempts++
						if attempts <= s.PreCheckRetries {
							logrus.WithError(err).Debugf("precheck failed (%d/%d), retrying in %s", attempts, s.PreCheckRetries, s.PreCheckInterval)
							timer.Reset(s.PreCheckInterval)
							continue
						}
						logrus.WithField("runAt", nextRun.Format(time.DateTime)).Warn("giving up scheduled scan")
						s.advance(nextRun)
						break timing
					}
				}

				logrus.WithField("runAt", nextRun.Format(time.DateTime)).Info("running scheduled scan")
				go func() {
					if err := s.Job(); err != nil {
						s.report(fmt.Errorf("scheduled scan failed: %w", err))
					}
				}()
				s.advance(nextRun)
				break timing
			}
		}
	}
}

func (s *Scheduler) report(err error) {
	if s.OnError != nil {
		go s.OnError(err)
	}
}
