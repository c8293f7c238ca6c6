package harvest

import (
	"context"
	"errors"
	"time"

	"github.com/alanbriolat/interview-archiver"
	"github.com/alanbriolat/interview-archiver/generic"
	"github.com/alanbriolat/interview-archiver/poll"
)

// VideoChangeDetector waits for the shared player to switch to a new source. The player element is reused between
// questions and its source changes some time after activation, so the only usable readiness signal is its value.
type VideoChangeDetector struct {
	page   interview_archiver.Page
	poller poll.Poller
}

func NewVideoChangeDetector(page interview_archiver.Page, interval time.Duration, timeout time.Duration) *VideoChangeDetector {
	return &VideoChangeDetector{
		page:   page,
		poller: poll.Poller{Interval: interval, Timeout: timeout},
	}
}

// Wait returns the player's source as soon as it is non-empty and differs from previous, or None if that doesn't
// happen within the timeout. Only page read failures and context cancellation are errors.
func (d *VideoChangeDetector) Wait(ctx context.Context, previous interview_archiver.VideoSourceID) (generic.Option[interview_archiver.VideoSourceID], error) {
	source, err := poll.Until(ctx, d.poller, func(ctx context.Context) (generic.Option[interview_archiver.VideoSourceID], error) {
		current, err := d.page.VideoSource(ctx)
		if err != nil {
			return generic.None[interview_archiver.VideoSourceID](), err
		}
		if current == "" || current == previous {
			return generic.None[interview_archiver.VideoSourceID](), nil
		}
		return generic.Some(current), nil
	})
	if errors.Is(err, poll.ErrTimeout) {
		return generic.None[interview_archiver.VideoSourceID](), nil
	} else if err != nil {
		return generic.None[interview_archiver.VideoSourceID](), err
	}
	return generic.Some(source), nil
}
