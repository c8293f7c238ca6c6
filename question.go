package interview_archiver

import "fmt"

// VideoSourceID is the opaque identifier of the video currently loaded in the shared player. In practice it is the
// player's source URL, which is also what gets fetched.
type VideoSourceID string

// A Question is one interview prompt, as enumerated at the start of a harvest.
type Question struct {
	// 1-based position in the question list.
	Ordinal int
	Label   string
	Handle  QuestionHandle
}

// Padded returns the ordinal zero-padded to two digits, as used in entry names and transcript headings.
func (q Question) Padded() string {
	return PadOrdinal(q.Ordinal)
}

func PadOrdinal(ordinal int) string {
	return fmt.Sprintf("%02d", ordinal)
}

// HarvestedQuestion is the result of processing one Question. It is consumed immediately by the archive builder.
type HarvestedQuestion struct {
	Question
	Source     VideoSourceID
	Transcript string
	Video      []byte
}

type HarvestStage string

const (
	HarvestStageNavigating HarvestStage = "navigating"
	HarvestStageFetching   HarvestStage = "fetching"
	HarvestStageArchiving  HarvestStage = "archiving"
)

// HarvestProgress is a snapshot of a running harvest, overwritten on every step.
type HarvestProgress struct {
	Stage HarvestStage
	// Ordinal of the question being processed.
	Current int
	Total   int
	// Number of questions whose video has been observed so far, including the current one.
	Harvested int
}

// Label renders the progress the way the trigger control displays it.
func (p HarvestProgress) Label() string {
	switch p.Stage {
	case HarvestStageNavigating:
		return fmt.Sprintf("Opening question %d/%d...", p.Current, p.Total)
	case HarvestStageFetching:
		return fmt.Sprintf("Fetching video %d/%d...", p.Harvested, p.Total)
	case HarvestStageArchiving:
		return "Creating ZIP..."
	default:
		return string(p.Stage)
	}
}
