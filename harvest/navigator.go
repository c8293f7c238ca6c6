package harvest

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanbriolat/interview-archiver"
)

// Navigator activates questions by ordinal. It re-enumerates the page's question handles on every lookup, since the
// page may rebuild its question list after an activation.
type Navigator struct {
	page interview_archiver.Page
}

func NewNavigator(page interview_archiver.Page) *Navigator {
	return &Navigator{page: page}
}

// Count returns how many questions the page currently lists.
func (n *Navigator) Count(ctx context.Context) (int, error) {
	handles, err := n.page.QuestionHandles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list questions: %w", err)
	}
	return len(handles), nil
}

// Lookup finds the question at a 1-based ordinal. The bool result is false if the page no longer has a question
// at that position.
func (n *Navigator) Lookup(ctx context.Context, ordinal int) (interview_archiver.Question, bool, error) {
	handles, err := n.page.QuestionHandles(ctx)
	if err != nil {
		return interview_archiver.Question{}, false, fmt.Errorf("failed to list questions: %w", err)
	}
	if ordinal < 1 || ordinal > len(handles) {
		return interview_archiver.Question{}, false, nil
	}
	handle := handles[ordinal-1]
	return interview_archiver.Question{
		Ordinal: ordinal,
		Label:   strings.TrimSpace(handle.Label),
		Handle:  handle,
	}, true, nil
}

// Activate selects the question on the page and returns without waiting for its video to load.
func (n *Navigator) Activate(ctx context.Context, q interview_archiver.Question) error {
	if err := n.page.Activate(ctx, q.Handle); err != nil {
		return fmt.Errorf("failed to activate question %d: %w", q.Ordinal, err)
	}
	return nil
}
