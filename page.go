package interview_archiver

import "context"

// A QuestionHandle identifies one clickable question entry on the interview page. Index is the 0-based position of
// the entry in document order at the time the handles were enumerated.
type QuestionHandle struct {
	Index int
	Label string
}

// Page is the interview page as seen by the harvester. The harvester only reads from it and activates question
// handles; it never changes the page layout.
type Page interface {
	// QuestionHandles enumerates the question entries currently present, in display order. Implementations must
	// query the page on every call rather than caching, since the page may replace its tree between activations.
	QuestionHandles(ctx context.Context) ([]QuestionHandle, error)
	// Activate simulates a user selecting the question. It returns as soon as the activation is dispatched.
	Activate(ctx context.Context, handle QuestionHandle) error
	// VideoSource reads the current source of the shared video player, or "" if there is no player or no source.
	VideoSource(ctx context.Context) (VideoSourceID, error)
	// TranscriptPanel returns the HTML of the visible transcript panel, or "" if it is absent.
	TranscriptPanel(ctx context.Context) (string, error)
	// CandidateName returns the candidate name label, or "" if it is absent.
	CandidateName(ctx context.Context) (string, error)
}
