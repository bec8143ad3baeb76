package scan

import (
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tandempv/xystage/pkg/config"
	"github.com/tandempv/xystage/pkg/stage"
)

var (
	ErrInProgress = errors.New("scan already in progress")
	ErrNotRunning = errors.New("scan not running")
	ErrNoPoints   = errors.New("no points to scan")
)

// Mover is the part of the stage controller a scan drives.
type Mover interface {
	MoveTo(x, y float64) (stage.Position, error)
}

// Runner moves through a list of points, one scan at a time. Pause and
// Cancel take effect between points; a move in flight always completes.
type Runner struct {
	mover  Mover
	bounds config.Bounds

	mu        sync.Mutex
	wake      *sync.Cond
	status    Status
	cancelled bool
	done      chan struct{}
	err       error
	onChange  func(Status, Action)
}

func NewRunner(m Mover, b config.Bounds) *Runner {
	r := &Runner{
		mover:  m,
		bounds: b,
		status: Status{Phase: PhaseIdle},
	}
	r.wake = sync.NewCond(&r.mu)
	return r
}

// OnChange registers fn to receive every status change. action is empty for
// progress updates that no user action caused. fn runs with the runner locked
// and must not call back into it.
func (r *Runner) OnChange(fn func(Status, Action)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

func (r *Runner) statusLocked() Status {
	st := r.status
	st.CanPause = st.Phase == PhaseRunning
	st.CanCancel = st.Phase.Active()
	return st
}

// Start validates points and runs them in the background.
func (r *Runner) Start(points []Point) error {
	if err := r.begin(points); err != nil {
		return err
	}
	go r.run(points)
	return nil
}

// Wait blocks until the current scan, if any, has ended and returns the move
// error that stopped it. A completed or cancelled scan returns nil.
func (r *Runner) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Runner) begin(points []Point) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	if err := Validate(points, r.bounds); err != nil {
		return err
	}

	r.mu.Lock()
	if r.status.Phase.Active() {
		r.mu.Unlock()
		return ErrInProgress
	}
	r.cancelled = false
	r.err = nil
	r.done = make(chan struct{})
	r.status = Status{
		Phase:     PhaseRunning,
		Total:     len(points),
		StartedAt: time.Now(),
	}
	r.notifyLocked(ActionStart)
	r.mu.Unlock()

	logrus.WithField("points", len(points)).Info("scan started")
	return nil
}

func (r *Runner) run(points []Point) {
	for i, p := range points {
		r.mu.Lock()
		for r.status.Phase == PhasePaused && !r.cancelled {
			r.wake.Wait()
		}
		if r.cancelled {
			r.finishLocked(PhaseCancelled, i, "cancelled")
			return
		}
		cur := p
		r.status.Index = i
		r.status.Current = &cur
		r.notifyLocked("")
		r.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"point": i + 1,
			"total": len(points),
			"x":     p.X,
			"y":     p.Y,
		}).Debug("scan moving to point")

		if _, err := r.mover.MoveTo(p.X, p.Y); err != nil {
			err = pkgerrors.Wrapf(err, "point %d %s", i+1, p)
			logrus.WithError(err).Error("scan failed")
			r.mu.Lock()
			r.err = err
			r.finishLocked(PhaseError, i, err.Error())
			return
		}
	}

	r.mu.Lock()
	r.finishLocked(PhaseDone, len(points), "scanning complete")
	logrus.WithField("points", len(points)).Info("scan complete")
}

// finishLocked ends the scan and releases r.mu.
func (r *Runner) finishLocked(phase Phase, index int, msg string) {
	r.status.Phase = phase
	r.status.Index = index
	r.status.Message = msg
	r.status.FinishedAt = time.Now()
	action := Action("")
	if phase == PhaseCancelled {
		action = ActionCancel
	}
	r.notifyLocked(action)
	done := r.done
	r.mu.Unlock()
	close(done)
}

func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.status.Phase {
	case PhasePaused:
		return nil
	case PhaseRunning:
		r.status.Phase = PhasePaused
		r.notifyLocked(ActionPause)
		return nil
	}
	return ErrNotRunning
}

func (r *Runner) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.status.Phase {
	case PhaseRunning:
		return nil
	case PhasePaused:
		r.status.Phase = PhaseRunning
		r.notifyLocked(ActionResume)
		r.wake.Broadcast()
		return nil
	}
	return ErrNotRunning
}

// Cancel stops the scan before its next point. It does not wait for the
// scan to end.
func (r *Runner) Cancel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.status.Phase.Active() {
		return ErrNotRunning
	}
	r.cancelled = true
	r.wake.Broadcast()
	return nil
}

func (r *Runner) notifyLocked(action Action) {
	if r.onChange != nil {
		r.onChange(r.statusLocked(), action)
	}
}
