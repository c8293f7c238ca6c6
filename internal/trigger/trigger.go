// Package trigger is the single "Download All" control: it starts a harvest, shows progress through its label, and
// refuses to start a second harvest while one is running.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/interview-archiver"
	"github.com/alanbriolat/interview-archiver/async"
	"github.com/alanbriolat/interview-archiver/generic"
	"github.com/alanbriolat/interview-archiver/internal/pubsub"
	"github.com/alanbriolat/interview-archiver/internal/sync_"
)

const DefaultLabel = "Download All"

var (
	ErrBusy = errors.New("harvest already running")
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
	StateError   State = "error"
)

// Status is everything observable about the control.
type Status struct {
	State   State
	Label   string
	Enabled bool
	// Number of videos harvested by the last successful run.
	Count int
	// Error of the last failed run.
	Error string
}

// StatusChanged is published on every change to the control's Status.
type StatusChanged struct {
	Old Status
	New Status
}

// RunFunc performs one harvest, reporting progress as it goes, and returns how many videos were harvested.
type RunFunc func(ctx context.Context, progress func(interview_archiver.HarvestProgress)) (int, error)

type Config struct {
	DefaultLabel string
	// How long the "done" label stays before the control reverts to idle.
	RevertDelay time.Duration
}

var DefaultConfig = Config{
	DefaultLabel: DefaultLabel,
	RevertDelay:  3000 * time.Millisecond,
}

type Trigger struct {
	config Config
	run    RunFunc
	log    *zap.SugaredLogger

	status *sync_.Mutexed[Status]
	events pubsub.Publisher[StatusChanged]
	// Held across a status change and its publication, so subscribers see changes in the order they were made.
	publishing sync.Mutex

	running sync_.Event
	stopped sync_.Event

	revertMu sync.Mutex
	revert   *time.Timer
}

func New(config Config, run RunFunc) *Trigger {
	if config.DefaultLabel == "" {
		config.DefaultLabel = DefaultLabel
	}
	t := &Trigger{
		config: config,
		run:    run,
		log:    zap.S().Named("trigger"),
		status: sync_.NewMutexed(Status{
			State:   StateIdle,
			Label:   config.DefaultLabel,
			Enabled: true,
		}),
		events: pubsub.NewPublisher[StatusChanged](),
	}
	t.stopped.Set()
	return t
}

func (t *Trigger) Status() Status {
	return t.status.Get()
}

// Subscribe returns a receiver of StatusChanged events. Subscribers must keep receiving, or the control stalls.
func (t *Trigger) Subscribe() (pubsub.ReceiverCloser[StatusChanged], error) {
	return t.events.SubscribeBufSize(16)
}

// Running returns a channel that is closed while a harvest is running.
func (t *Trigger) Running() <-chan struct{} {
	return t.running.Wait()
}

// Stopped returns a channel that is closed while no harvest is running.
func (t *Trigger) Stopped() <-chan struct{} {
	return t.stopped.Wait()
}

// Activate starts a harvest in a goroutine, delivering its result on the returned channel. It fails with ErrBusy if
// a harvest is already running.
func (t *Trigger) Activate(ctx context.Context) (<-chan generic.Result[int], error) {
	var started bool
	t.update(func(s *Status) {
		if s.State == StateRunning || !s.Enabled {
			return
		}
		started = true
		s.State = StateRunning
		s.Enabled = false
		s.Label = "Starting..."
		s.Error = ""
	})
	if !started {
		return nil, ErrBusy
	}
	t.cancelRevert()
	t.stopped.Clear()
	t.running.Set()

	return async.RunResult(func() (n int, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("harvest panicked: %v", r)
			}
			t.finish(n, err)
		}()
		return t.run(ctx, t.onProgress)
	}), nil
}

// Close stops any pending label revert and closes all subscribers.
func (t *Trigger) Close() {
	t.cancelRevert()
	t.events.Close()
}

func (t *Trigger) onProgress(p interview_archiver.HarvestProgress) {
	t.update(func(s *Status) {
		if s.State == StateRunning {
			s.Label = p.Label()
		}
	})
}

func (t *Trigger) finish(n int, err error) {
	t.update(func(s *Status) {
		s.Enabled = true
		s.Label = t.config.DefaultLabel
		switch {
		case err != nil:
			s.State = StateError
			s.Error = err.Error()
		case n == 0:
			s.State = StateIdle
			s.Count = 0
		default:
			s.State = StateDone
			s.Count = n
			s.Label = fmt.Sprintf("Done! %d videos", n)
		}
	})
	switch {
	case err != nil:
		t.log.Errorf("Harvest failed: %v", err)
		t.scheduleRevert()
	case n == 0:
		t.log.Warn("No videos found!")
	default:
		t.log.Infof("Harvest complete: %d videos", n)
		t.scheduleRevert()
	}
	t.running.Clear()
	t.stopped.Set()
}

func (t *Trigger) scheduleRevert() {
	t.revertMu.Lock()
	defer t.revertMu.Unlock()
	if t.revert != nil {
		t.revert.Stop()
	}
	t.revert = time.AfterFunc(t.config.RevertDelay, func() {
		t.update(func(s *Status) {
			if s.State == StateDone || s.State == StateError {
				s.State = StateIdle
				s.Label = t.config.DefaultLabel
			}
		})
	})
}

func (t *Trigger) cancelRevert() {
	t.revertMu.Lock()
	defer t.revertMu.Unlock()
	if t.revert != nil {
		t.revert.Stop()
		t.revert = nil
	}
}

// update applies f to the status under the lock, and publishes the change if there was one.
func (t *Trigger) update(f func(s *Status)) {
	t.publishing.Lock()
	defer t.publishing.Unlock()
	var before, after Status
	_ = t.status.Locked(func(s *Status) error {
		before = *s
		f(s)
		after = *s
		return nil
	})
	if before != after {
		t.events.Send(StatusChanged{Old: before, New: after})
	}
}
