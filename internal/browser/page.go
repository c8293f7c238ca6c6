package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/alanbriolat/interview-archiver"
	"github.com/alanbriolat/interview-archiver/generic"
	"github.com/alanbriolat/interview-archiver/poll"
)

var (
	ErrHandleGone = errors.New("question entry no longer on page")
)

// Page is the interview page in a chromedp tab. Every method must be called with a context descending from the tab's
// context.
type Page struct {
	selectors interview_archiver.Selectors
}

func NewPage(selectors interview_archiver.Selectors) *Page {
	return &Page{selectors: selectors}
}

var _ interview_archiver.Page = (*Page)(nil)

func (p *Page) QuestionHandles(ctx context.Context) ([]interview_archiver.QuestionHandle, error) {
	html, err := p.documentHTML(ctx)
	if err != nil {
		return nil, err
	}
	return parseQuestions(html, p.selectors.QuestionThumbnail)
}

func (p *Page) Activate(ctx context.Context, handle interview_archiver.QuestionHandle) error {
	var clicked bool
	script := fmt.Sprintf(`(function(el) {
		if (!el) return false;
		el.click();
		return true;
	})(document.querySelectorAll(%s)[%d])`, jsString(p.selectors.QuestionThumbnail), handle.Index)
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("failed to activate question %q: %w", handle.Label, err)
	}
	if !clicked {
		return fmt.Errorf("%w: %d (%s)", ErrHandleGone, handle.Index, handle.Label)
	}
	return nil
}

func (p *Page) VideoSource(ctx context.Context) (interview_archiver.VideoSourceID, error) {
	var src string
	script := fmt.Sprintf(`(v => (v && v.src) ? v.src : "")(document.querySelector(%s))`, jsString(p.selectors.VideoPlayer))
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &src)); err != nil {
		return "", fmt.Errorf("failed to read video source: %w", err)
	}
	return interview_archiver.VideoSourceID(src), nil
}

func (p *Page) TranscriptPanel(ctx context.Context) (string, error) {
	var html string
	script := fmt.Sprintf(`(el => el ? el.outerHTML : "")(document.querySelector(%s))`, jsString(p.selectors.TranscriptBox))
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &html)); err != nil {
		return "", fmt.Errorf("failed to read transcript panel: %w", err)
	}
	return html, nil
}

func (p *Page) CandidateName(ctx context.Context) (string, error) {
	html, err := p.documentHTML(ctx)
	if err != nil {
		return "", err
	}
	return parseText(html, p.selectors.CandidateName)
}

// WaitReady blocks until the question list has rendered. There is no timeout; cancel the context to give up.
func (p *Page) WaitReady(ctx context.Context, interval time.Duration) error {
	script := fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(p.selectors.QuestionList))
	_, err := poll.Until(ctx, poll.Poller{Interval: interval}, func(ctx context.Context) (generic.Option[bool], error) {
		var present bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &present)); err != nil {
			return generic.None[bool](), err
		}
		if !present {
			return generic.None[bool](), nil
		}
		return generic.Some(true), nil
	})
	if err != nil {
		return fmt.Errorf("question list never appeared: %w", err)
	}
	interview_archiver.Logger(ctx).Sugar().Named("browser").Info("Interview page ready")
	return nil
}

// SuppressAutoplay installs a script in the page that pauses the player once it appears and again every time its
// source changes.
func (p *Page) SuppressAutoplay(ctx context.Context, interval time.Duration) error {
	script := fmt.Sprintf(`(function(selector, intervalMs) {
		const observer = new MutationObserver(() => {
			const video = document.querySelector(selector);
			if (video) video.pause();
		});
		const check = setInterval(() => {
			const video = document.querySelector(selector);
			if (video) {
				video.pause();
				observer.observe(video, { attributes: true, attributeFilter: ['src'] });
				clearInterval(check);
			}
		}, intervalMs);
		return true;
	})(%s, %d)`, jsString(p.selectors.VideoPlayer), interval.Milliseconds())
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("failed to suppress autoplay: %w", err)
	}
	return nil
}

func (p *Page) documentHTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html)); err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return html, nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	return string(generic.Unwrap(json.Marshal(s)))
}
