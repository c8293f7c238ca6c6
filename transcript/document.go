package transcript

import (
	"fmt"
	"strings"
)

type Section struct {
	// Zero-padded question ordinal.
	Ordinal string
	Label   string
	Text    string
}

func (s Section) String() string {
	text := s.Text
	if strings.TrimSpace(text) == "" {
		text = Placeholder
	}
	return fmt.Sprintf("## %s - %s\n\n%s", s.Ordinal, s.Label, text)
}

// Document accumulates one section per harvested question, kept in the order they were added.
type Document struct {
	Candidate string
	sections  []Section
}

func NewDocument(candidate string) *Document {
	return &Document{Candidate: candidate}
}

func (d *Document) Add(ordinal string, label string, text string) {
	d.sections = append(d.sections, Section{Ordinal: ordinal, Label: label, Text: text})
}

func (d *Document) Len() int {
	return len(d.sections)
}

func (d *Document) String() string {
	candidate := d.Candidate
	if candidate == "" {
		candidate = UnknownCandidate
	}
	parts := make([]string, len(d.sections))
	for i, section := range d.sections {
		parts[i] = section.String()
	}
	return fmt.Sprintf("# Interview Transcript: %s\n\n%s", candidate, strings.Join(parts, SectionSeparator))
}
