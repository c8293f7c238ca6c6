// Package harvest drives an interview page question by question, collecting each question's video and transcript
// into a single archive.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/alanbriolat/interview-archiver"
	"github.com/alanbriolat/interview-archiver/archive"
	"github.com/alanbriolat/interview-archiver/generic"
	"github.com/alanbriolat/interview-archiver/poll"
	"github.com/alanbriolat/interview-archiver/transcript"
	"github.com/alanbriolat/interview-archiver/util"
)

var (
	ErrQuestionMissing = errors.New("question no longer on page")
	ErrVideoNotLoaded  = errors.New("video did not change")
)

// A Fetcher retrieves the payload of a video source.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ProgressFunc receives a progress snapshot at each step of a harvest.
type ProgressFunc func(progress interview_archiver.HarvestProgress)

// Entry describes one video written to the archive.
type Entry struct {
	Ordinal       int
	Label         string
	Name          string
	Size          int
	Source        interview_archiver.VideoSourceID
	HasTranscript bool
}

// Outcome summarises a finished harvest. A zero Count means nothing was harvested and no archive was produced.
type Outcome struct {
	HarvestID string
	Candidate string
	Total     int
	Entries   []Entry
	// Why questions were left out, if any were (a *multierror.Error).
	Skipped error
	// Suggested archive filename, and where the Deliverer put it.
	ArchiveName string
	Location    string
}

func (o *Outcome) Count() int {
	return len(o.Entries)
}

type Harvester struct {
	config    interview_archiver.Config
	page      interview_archiver.Page
	navigator *Navigator
	detector  *VideoChangeDetector
	fetcher   Fetcher
	deliverer archive.Deliverer
}

func New(config interview_archiver.Config, page interview_archiver.Page, fetcher Fetcher, deliverer archive.Deliverer) *Harvester {
	return &Harvester{
		config:    config,
		page:      page,
		navigator: NewNavigator(page),
		detector:  NewVideoChangeDetector(page, config.PollInterval, config.VideoChangeTimeout),
		fetcher:   fetcher,
		deliverer: deliverer,
	}
}

// Run harvests every question in order, one at a time. Questions whose video never loads are skipped; any fetch
// failure aborts the whole run without producing an archive.
func (h *Harvester) Run(ctx context.Context, report ProgressFunc) (*Outcome, error) {
	if report == nil {
		report = func(interview_archiver.HarvestProgress) {}
	}
	outcome := &Outcome{HarvestID: generic.Unwrap(uuid.NewRandom()).String()}
	log := interview_archiver.Logger(ctx).Sugar().Named("harvest").With("harvest_id", outcome.HarvestID)

	total, err := h.navigator.Count(ctx)
	if err != nil {
		return nil, err
	}
	candidate, err := h.page.CandidateName(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate name: %w", err)
	}
	outcome.Total = total
	outcome.Candidate = strings.TrimSpace(candidate)
	log.Infof("Harvesting %d questions for %q", total, outcome.Candidate)

	builder := archive.NewBuilder()
	doc := transcript.NewDocument(outcome.Candidate)
	var previous interview_archiver.VideoSourceID
	var skipped error

	for ordinal := 1; ordinal <= total; ordinal++ {
		q, ok, err := h.navigator.Lookup(ctx, ordinal)
		if err != nil {
			return nil, err
		} else if !ok {
			log.Warnf("Question %d disappeared from the page, skipping", ordinal)
			skipped = multierror.Append(skipped, fmt.Errorf("question %d: %w", ordinal, ErrQuestionMissing))
			continue
		}

		report(interview_archiver.HarvestProgress{
			Stage:     interview_archiver.HarvestStageNavigating,
			Current:   ordinal,
			Total:     total,
			Harvested: outcome.Count(),
		})
		if err := h.navigator.Activate(ctx, q); err != nil {
			return nil, err
		}
		changed, err := h.detector.Wait(ctx, previous)
		if err != nil {
			return nil, fmt.Errorf("question %d: failed waiting for video: %w", ordinal, err)
		}
		source, ok := changed.Get()
		if !ok {
			log.Warnf("Video for question %d (%q) did not load within %v, skipping", ordinal, q.Label, h.config.VideoChangeTimeout)
			skipped = multierror.Append(skipped, fmt.Errorf("question %d (%s): %w", ordinal, q.Label, ErrVideoNotLoaded))
			continue
		}
		previous = source

		report(interview_archiver.HarvestProgress{
			Stage:     interview_archiver.HarvestStageFetching,
			Current:   ordinal,
			Total:     total,
			Harvested: outcome.Count() + 1,
		})
		hq, err := h.collect(ctx, log, q, source)
		if err != nil {
			return nil, err
		}
		entry, err := h.add(builder, doc, hq)
		if err != nil {
			return nil, err
		}
		outcome.Entries = append(outcome.Entries, entry)
	}
	outcome.Skipped = skipped

	if outcome.Count() == 0 {
		log.Warn("No videos found")
		return outcome, nil
	}

	report(interview_archiver.HarvestProgress{
		Stage:     interview_archiver.HarvestStageArchiving,
		Current:   total,
		Total:     total,
		Harvested: outcome.Count(),
	})
	if err := builder.SetTranscript(doc.String()); err != nil {
		return nil, err
	}
	data, err := (<-builder.Finalize(ctx)).Parts()
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	outcome.ArchiveName = archive.Name(outcome.Candidate, h.config.FallbackArchiveName)
	if outcome.Location, err = h.deliverer.Deliver(ctx, outcome.ArchiveName, data); err != nil {
		return nil, fmt.Errorf("failed to deliver archive: %w", err)
	}
	log.Infof("Harvested %d/%d videos into %s", outcome.Count(), total, outcome.Location)
	return outcome, nil
}

// collect captures the transcript and video of the question that is now active.
func (h *Harvester) collect(ctx context.Context, log *zap.SugaredLogger, q interview_archiver.Question, source interview_archiver.VideoSourceID) (*interview_archiver.HarvestedQuestion, error) {
	// The transcript panel repopulates some time after the video changes
	if err := poll.Sleep(ctx, h.config.SettleDelay); err != nil {
		return nil, err
	}
	hq := &interview_archiver.HarvestedQuestion{Question: q, Source: source}
	if panel, err := h.page.TranscriptPanel(ctx); err != nil {
		log.Warnf("Failed to read transcript for question %d: %v", q.Ordinal, err)
	} else {
		hq.Transcript = transcript.Extract(panel, h.config.Selectors.TranscriptParagraph)
	}

	video, err := h.fetcher.Fetch(ctx, string(source))
	if err != nil {
		return nil, fmt.Errorf("question %d: %w", q.Ordinal, err)
	}
	hq.Video = video
	return hq, nil
}

func (h *Harvester) add(builder *archive.Builder, doc *transcript.Document, hq *interview_archiver.HarvestedQuestion) (Entry, error) {
	name, err := h.config.EntryName(interview_archiver.EntryNameArgs{
		Ordinal: hq.Padded(),
		Label:   util.SanitizeFilename(hq.Label),
		Ext:     util.VideoExtension(string(hq.Source), h.config.VideoExtension),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("failed to name entry for question %d: %w", hq.Ordinal, err)
	}
	if err := builder.AddFile(name, hq.Video); err != nil {
		return Entry{}, err
	}
	doc.Add(hq.Padded(), hq.Label, hq.Transcript)
	return Entry{
		Ordinal:       hq.Ordinal,
		Label:         hq.Label,
		Name:          name,
		Size:          len(hq.Video),
		Source:        hq.Source,
		HasTranscript: hq.Transcript != "",
	}, nil
}
