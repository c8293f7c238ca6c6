package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alanbriolat/interview-archiver"
)

// parseQuestions finds the question entries in a page snapshot. Indexes follow document order, matching
// querySelectorAll in the live page.
func parseQuestions(html string, selector string) ([]interview_archiver.QuestionHandle, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	var handles []interview_archiver.QuestionHandle
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		handles = append(handles, interview_archiver.QuestionHandle{
			Index: i,
			Label: strings.TrimSpace(s.Text()),
		})
	})
	return handles, nil
}

// parseText returns the trimmed text of the first element matching selector, or "" if there is none.
func parseText(html string, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	return strings.TrimSpace(doc.Find(selector).First().Text()), nil
}
