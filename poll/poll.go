// Package poll repeatedly evaluates a condition until it yields a value, for readiness signals that can only be
// observed by looking rather than by waiting on an event.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/alanbriolat/interview-archiver/generic"
)

var (
	ErrTimeout = errors.New("condition not met before timeout")
)

// A Func is evaluated once per poll. Returning None means "not ready yet"; returning an error stops polling.
type Func[T any] func(ctx context.Context) (generic.Option[T], error)

type Poller struct {
	Interval time.Duration
	// Bound on the total wait. Zero means poll until the context is done.
	Timeout time.Duration
}

// Until evaluates f immediately and then every p.Interval until it returns a value, returns an error, the timeout
// elapses (ErrTimeout) or the context is done.
func Until[T any](ctx context.Context, p Poller, f Func[T]) (T, error) {
	var zero T
	start := time.Now()
	for {
		result, err := f(ctx)
		if err != nil {
			return zero, err
		}
		if value, ok := result.Get(); ok {
			return value, nil
		}
		wait := p.Interval
		if p.Timeout > 0 {
			remaining := p.Timeout - time.Since(start)
			if remaining <= 0 {
				return zero, ErrTimeout
			}
			if remaining < wait {
				wait = remaining
			}
		}
		if err := Sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// Sleep pauses for d, returning early with the context's error if it is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
