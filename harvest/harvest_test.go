package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/interview-archiver"
	"github.com/alanbriolat/interview-archiver/archive"
	"github.com/alanbriolat/interview-archiver/fetch"
)

type fakeQuestion struct {
	label string
	// Source the player switches to after activation; "" means the player keeps its previous source.
	source string
	// Number of VideoSource reads after activation before the new source shows up.
	delay      int
	transcript string
	// How long after the source change the transcript panel takes to fill in.
	transcriptAfter time.Duration
}

// fakePage models the shared player: activating a question changes the player source after a number of reads.
type fakePage struct {
	questions []fakeQuestion
	candidate string
	// Number of handles returned after the first enumeration, if non-zero.
	shrinkTo int

	current     int
	reads       int
	source      interview_archiver.VideoSourceID
	changedAt   time.Time
	enumerated  int
	activations []int
}

func newFakePage(candidate string, questions ...fakeQuestion) *fakePage {
	return &fakePage{questions: questions, candidate: candidate, current: -1}
}

func (p *fakePage) QuestionHandles(ctx context.Context) ([]interview_archiver.QuestionHandle, error) {
	p.enumerated++
	n := len(p.questions)
	if p.shrinkTo > 0 && p.enumerated > 1 {
		n = p.shrinkTo
	}
	handles := make([]interview_archiver.QuestionHandle, n)
	for i := 0; i < n; i++ {
		handles[i] = interview_archiver.QuestionHandle{Index: i, Label: "  " + p.questions[i].label + "\n"}
	}
	return handles, nil
}

func (p *fakePage) Activate(ctx context.Context, handle interview_archiver.QuestionHandle) error {
	p.current = handle.Index
	p.reads = 0
	p.activations = append(p.activations, handle.Index+1)
	return nil
}

func (p *fakePage) VideoSource(ctx context.Context) (interview_archiver.VideoSourceID, error) {
	if p.current >= 0 {
		q := p.questions[p.current]
		p.reads++
		if q.source != "" && p.reads > q.delay && p.source != interview_archiver.VideoSourceID(q.source) {
			p.source = interview_archiver.VideoSourceID(q.source)
			p.changedAt = time.Now()
		}
	}
	return p.source, nil
}

func (p *fakePage) TranscriptPanel(ctx context.Context) (string, error) {
	if p.current < 0 {
		return "", nil
	}
	q := p.questions[p.current]
	if time.Since(p.changedAt) < q.transcriptAfter {
		return "", nil
	}
	return q.transcript, nil
}

func (p *fakePage) CandidateName(ctx context.Context) (string, error) {
	return p.candidate, nil
}

type fakeFetcher struct {
	videos  map[string]string
	failing map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.fetched = append(f.fetched, url)
	if err, ok := f.failing[url]; ok {
		return nil, err
	}
	if v, ok := f.videos[url]; ok {
		return []byte(v), nil
	}
	return nil, &fetch.StatusError{URL: url, StatusCode: 404, Status: "404 Not Found"}
}

type fakeDeliverer struct {
	name string
	data []byte
	n    int
}

func (d *fakeDeliverer) Deliver(ctx context.Context, name string, data []byte) (string, error) {
	d.n++
	d.name = name
	d.data = data
	return "/downloads/" + name, nil
}

func testConfig() interview_archiver.Config {
	config := interview_archiver.DefaultConfig
	config.PollInterval = time.Millisecond
	config.VideoChangeTimeout = 25 * time.Millisecond
	config.SettleDelay = 0
	return config
}

func panel(lines ...string) string {
	var b bytes.Buffer
	b.WriteString(`<div class="react-aria-ListBox">`)
	for _, line := range lines {
		fmt.Fprintf(&b, `<div class="hf-paragraph">%s</div>`, line)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func unzip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	contents := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		contents[f.Name] = string(b)
	}
	return contents
}

func keys(m map[string]string) []string {
	var k []string
	for key := range m {
		k = append(k, key)
	}
	sort.Strings(k)
	return k
}

func TestHarvestNoQuestions(t *testing.T) {
	assert := assert_.New(t)
	deliverer := &fakeDeliverer{}
	var progress []interview_archiver.HarvestProgress

	h := New(testConfig(), newFakePage("Ada"), &fakeFetcher{}, deliverer)
	outcome, err := h.Run(context.Background(), func(p interview_archiver.HarvestProgress) {
		progress = append(progress, p)
	})
	assert.NoError(err)
	assert.Equal(0, outcome.Count())
	assert.Equal(0, outcome.Total)
	assert.Equal(0, deliverer.n)
	assert.Empty(progress)
	assert.NotEmpty(outcome.HarvestID)
}

func TestHarvestNoVideoChanges(t *testing.T) {
	assert := assert_.New(t)
	deliverer := &fakeDeliverer{}
	page := newFakePage("Ada", fakeQuestion{label: "Intro"}, fakeQuestion{label: "Why us?"})

	outcome, err := New(testConfig(), page, &fakeFetcher{}, deliverer).Run(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(0, outcome.Count())
	assert.Equal(2, outcome.Total)
	assert.Equal(0, deliverer.n)
	assert.ErrorIs(outcome.Skipped, ErrVideoNotLoaded)
}

func TestHarvestSkipsUnchangedVideo(t *testing.T) {
	assert := assert_.New(t)
	require := require.New(t)

	page := newFakePage("Ada Lovelace Jr.",
		fakeQuestion{label: "Introduce yourself", source: "https://cdn.example.com/q1.mp4", transcript: panel("0:01Hello", "0:05I am Ada")},
		fakeQuestion{label: "Why us?", transcript: panel("0:01stale")},
		fakeQuestion{label: "Any questions?", source: "https://cdn.example.com/q3.webm", delay: 3},
	)
	fetcher := &fakeFetcher{videos: map[string]string{
		"https://cdn.example.com/q1.mp4":  "video one",
		"https://cdn.example.com/q3.webm": "video three",
	}}
	deliverer := &fakeDeliverer{}
	var labels []string

	outcome, err := New(testConfig(), page, fetcher, deliverer).Run(context.Background(), func(p interview_archiver.HarvestProgress) {
		labels = append(labels, p.Label())
	})
	require.NoError(err)

	assert.Equal(2, outcome.Count())
	assert.Equal([]int{1, 2, 3}, page.activations)
	assert.Equal([]string{"https://cdn.example.com/q1.mp4", "https://cdn.example.com/q3.webm"}, fetcher.fetched)
	assert.ErrorIs(outcome.Skipped, ErrVideoNotLoaded)
	assert.Equal("ada-lovelace-jr.zip", outcome.ArchiveName)
	assert.Equal("/downloads/ada-lovelace-jr.zip", outcome.Location)
	assert.Equal([]string{
		"Opening question 1/3...",
		"Fetching video 1/3...",
		"Opening question 2/3...",
		"Opening question 3/3...",
		"Fetching video 2/3...",
		"Creating ZIP...",
	}, labels)

	require.Equal(1, deliverer.n)
	contents := unzip(t, deliverer.data)
	assert.Equal([]string{"01-introduce-yourself.mp4", "03-any-questions.webm", "transcript.txt"}, keys(contents))
	assert.Equal("video one", contents["01-introduce-yourself.mp4"])
	assert.Equal("video three", contents["03-any-questions.webm"])

	wantTranscript := "# Interview Transcript: Ada Lovelace Jr.\n\n" +
		"## 01 - Introduce yourself\n\n[0:01] Hello\n\n[0:05] I am Ada" +
		"\n\n---\n\n" +
		"## 03 - Any questions?\n\n(No transcript available)"
	if diff := cmp.Diff(wantTranscript, contents["transcript.txt"]); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}

	assert.Equal([]Entry{
		{Ordinal: 1, Label: "Introduce yourself", Name: "01-introduce-yourself.mp4", Size: 9, Source: "https://cdn.example.com/q1.mp4", HasTranscript: true},
		{Ordinal: 3, Label: "Any questions?", Name: "03-any-questions.webm", Size: 11, Source: "https://cdn.example.com/q3.webm"},
	}, outcome.Entries)
}

func TestHarvestRepeatedSourceIsSkipped(t *testing.T) {
	assert := assert_.New(t)
	page := newFakePage("",
		fakeQuestion{label: "One", source: "https://cdn.example.com/same.mp4"},
		fakeQuestion{label: "Two", source: "https://cdn.example.com/same.mp4"},
	)
	fetcher := &fakeFetcher{videos: map[string]string{"https://cdn.example.com/same.mp4": "v"}}
	deliverer := &fakeDeliverer{}

	outcome, err := New(testConfig(), page, fetcher, deliverer).Run(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(1, outcome.Count())
	assert.Equal("hireflix-videos.zip", deliverer.name)
	assert.Contains(unzip(t, deliverer.data)["transcript.txt"], "# Interview Transcript: Unknown Candidate")
}

func TestHarvestFetchFailureAborts(t *testing.T) {
	assert := assert_.New(t)
	page := newFakePage("Ada",
		fakeQuestion{label: "One", source: "https://cdn.example.com/q1.mp4"},
		fakeQuestion{label: "Two", source: "https://cdn.example.com/q2.mp4"},
		fakeQuestion{label: "Three", source: "https://cdn.example.com/q3.mp4"},
	)
	fetcher := &fakeFetcher{videos: map[string]string{
		"https://cdn.example.com/q1.mp4": "one",
		"https://cdn.example.com/q3.mp4": "three",
	}}
	deliverer := &fakeDeliverer{}

	outcome, err := New(testConfig(), page, fetcher, deliverer).Run(context.Background(), nil)
	assert.Nil(outcome)
	assert.ErrorIs(err, fetch.ErrFetchFailed)
	var statusErr *fetch.StatusError
	if assert.True(errors.As(err, &statusErr)) {
		assert.Equal(404, statusErr.StatusCode)
	}
	assert.Equal(0, deliverer.n)
	// Question 3 is never reached
	assert.Equal([]int{1, 2}, page.activations)
}

func TestHarvestQuestionDisappears(t *testing.T) {
	assert := assert_.New(t)
	page := newFakePage("Ada",
		fakeQuestion{label: "One", source: "https://cdn.example.com/q1.mp4"},
		fakeQuestion{label: "Two", source: "https://cdn.example.com/q2.mp4"},
	)
	page.shrinkTo = 1
	fetcher := &fakeFetcher{videos: map[string]string{"https://cdn.example.com/q1.mp4": "one"}}

	outcome, err := New(testConfig(), page, fetcher, &fakeDeliverer{}).Run(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(1, outcome.Count())
	assert.Equal(2, outcome.Total)
	assert.ErrorIs(outcome.Skipped, ErrQuestionMissing)
}

func TestHarvestCancelled(t *testing.T) {
	page := newFakePage("Ada", fakeQuestion{label: "One"})
	config := testConfig()
	config.VideoChangeTimeout = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(config, page, &fakeFetcher{}, &fakeDeliverer{}).Run(ctx, nil)
	assert_.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestVideoChangeDetector(t *testing.T) {
	assert := assert_.New(t)
	page := newFakePage("", fakeQuestion{label: "One", source: "https://cdn.example.com/q1.mp4", delay: 2})
	d := NewVideoChangeDetector(page, time.Millisecond, 50*time.Millisecond)

	// Nothing activated yet, so nothing changes
	got, err := d.Wait(context.Background(), "")
	assert.NoError(err)
	assert.True(got.IsNone())

	assert.NoError(page.Activate(context.Background(), interview_archiver.QuestionHandle{Index: 0}))
	got, err = d.Wait(context.Background(), "")
	assert.NoError(err)
	assert.Equal(interview_archiver.VideoSourceID("https://cdn.example.com/q1.mp4"), got.Or(""))

	// Same source as before counts as no change
	got, err = d.Wait(context.Background(), "https://cdn.example.com/q1.mp4")
	assert.NoError(err)
	assert.True(got.IsNone())
}

func TestNavigator(t *testing.T) {
	assert := assert_.New(t)
	page := newFakePage("", fakeQuestion{label: "One"}, fakeQuestion{label: "Two"})
	n := NewNavigator(page)

	count, err := n.Count(context.Background())
	assert.NoError(err)
	assert.Equal(2, count)

	q, ok, err := n.Lookup(context.Background(), 2)
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(interview_archiver.Question{Ordinal: 2, Label: "Two", Handle: interview_archiver.QuestionHandle{Index: 1, Label: "  Two\n"}}, q)
	assert.Equal("02", q.Padded())

	_, ok, err = n.Lookup(context.Background(), 3)
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(n.Activate(context.Background(), q))
	assert.Equal([]int{2}, page.activations)
	// Every lookup re-enumerates the page
	assert.Equal(3, page.enumerated)
}

var _ archive.Deliverer = &fakeDeliverer{}
var _ Fetcher = &fakeFetcher{}
var _ Fetcher = &fetch.Client{}

func TestHarvestWaitsForTranscript(t *testing.T) {
	newPage := func() *fakePage {
		return newFakePage("Ada", fakeQuestion{
			label:           "Introduce yourself",
			source:          "https://cdn.example.com/q1.mp4",
			transcript:      panel("0:01Hello"),
			transcriptAfter: 30 * time.Millisecond,
		})
	}
	fetcher := func() *fakeFetcher {
		return &fakeFetcher{videos: map[string]string{"https://cdn.example.com/q1.mp4": "one"}}
	}

	t.Run("without settle delay", func(t *testing.T) {
		assert := assert_.New(t)
		deliverer := &fakeDeliverer{}
		outcome, err := New(testConfig(), newPage(), fetcher(), deliverer).Run(context.Background(), nil)
		assert.NoError(err)
		if assert.Len(outcome.Entries, 1) {
			assert.False(outcome.Entries[0].HasTranscript)
		}
		assert.Contains(unzip(t, deliverer.data)["transcript.txt"], "(No transcript available)")
	})

	t.Run("with settle delay", func(t *testing.T) {
		assert := assert_.New(t)
		config := testConfig()
		config.SettleDelay = 100 * time.Millisecond
		deliverer := &fakeDeliverer{}
		outcome, err := New(config, newPage(), fetcher(), deliverer).Run(context.Background(), nil)
		assert.NoError(err)
		if assert.Len(outcome.Entries, 1) {
			assert.True(outcome.Entries[0].HasTranscript)
		}
		assert.Contains(unzip(t, deliverer.data)["transcript.txt"], "## 01 - Introduce yourself\n\n[0:01] Hello")
	})
}
