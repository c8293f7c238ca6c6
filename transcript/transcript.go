// Package transcript turns the interview page's transcript panel into plain text.
package transcript

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// Separator between lines of one question's transcript.
	LineSeparator = "\n\n"
	// Separator between sections of the transcript document.
	SectionSeparator = "\n\n---\n\n"
	// Text used for a section with no transcript.
	Placeholder      = "(No transcript available)"
	UnknownCandidate = "Unknown Candidate"
)

var leadingTimestamp = regexp.MustCompile(`^(\d+:\d+(?::\d+)?)\s*`)

// A Line is one caption paragraph: an optional timestamp label (e.g. "0:01") and the spoken text.
type Line struct {
	Timestamp string
	Text      string
}

// ParseLine trims the paragraph text and splits off a leading "m:ss" (or "h:mm:ss", or unpadded "m:s") run, which the page renders
// directly against the text ("0:01Hello").
func ParseLine(text string) Line {
	text = strings.TrimSpace(text)
	m := leadingTimestamp.FindStringSubmatchIndex(text)
	if m == nil {
		return Line{Text: text}
	}
	return Line{
		Timestamp: text[m[2]:m[3]],
		Text:      text[m[1]:],
	}
}

// String renders the line with a bracketed timestamp prefix, e.g. "[0:01] Hello". Lines without a timestamp are
// returned unchanged.
func (l Line) String() string {
	if l.Timestamp == "" {
		return l.Text
	}
	if l.Text == "" {
		return fmt.Sprintf("[%s]", l.Timestamp)
	}
	return fmt.Sprintf("[%s] %s", l.Timestamp, l.Text)
}

// NormalizeLine is a shortcut for ParseLine(text).String().
func NormalizeLine(text string) string {
	return ParseLine(text).String()
}

// Lines parses the transcript panel HTML and returns the paragraphs matched by selector, in document order. Empty
// paragraphs are dropped.
func Lines(panelHTML string, selector string) ([]Line, error) {
	if strings.TrimSpace(panelHTML) == "" {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(panelHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcript panel: %w", err)
	}
	var lines []Line
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		line := ParseLine(s.Text())
		if line.Timestamp == "" && line.Text == "" {
			return
		}
		lines = append(lines, line)
	})
	return lines, nil
}

// Extract returns the normalized transcript text of the panel, one line per paragraph separated by blank lines. An
// absent or unparseable panel gives "".
func Extract(panelHTML string, selector string) string {
	lines, err := Lines(panelHTML, selector)
	if err != nil || len(lines) == 0 {
		return ""
	}
	rendered := make([]string, len(lines))
	for i, line := range lines {
		rendered[i] = line.String()
	}
	return strings.Join(rendered, LineSeparator)
}
