// Package fetch retrieves video payloads over HTTP.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"

	"github.com/alanbriolat/interview-archiver"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

var (
	ErrFetchFailed = errors.New("fetch failed")
)

// StatusError is returned for a non-success HTTP response. It matches ErrFetchFailed with errors.Is.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %s", e.URL, e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrFetchFailed
}

// ProgressFunc receives the bytes downloaded so far and the expected total (-1 if unknown).
type ProgressFunc func(downloaded int64, expected int64)

type Option func(*Client)

// WithCookieSource looks up the cookies for every fetched URL when the request is made. Only cookies whose domain,
// path and secure flag allow them to be sent to that URL are attached.
func WithCookieSource(source CookieSource) Option {
	return func(c *Client) {
		c.cookies = source
	}
}

func WithProgress(f ProgressFunc) Option {
	return func(c *Client) {
		c.progress = f
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.http.SetHeader("User-Agent", userAgent)
	}
}

// Client fetches each resource with a single attempt; there is no retry.
type Client struct {
	http     *resty.Client
	progress ProgressFunc
	cookies  CookieSource
}

func NewClient(opts ...Option) *Client {
	c := &Client{http: resty.New()}
	c.http.SetHeader("User-Agent", DefaultUserAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the whole payload at url. Any failure, including a non-success response, wraps ErrFetchFailed.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	log := interview_archiver.Logger(ctx).Sugar().Named("fetch")
	req := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if c.cookies != nil {
		cookies, err := c.requestCookies(ctx, url)
		if err != nil {
			return nil, err
		}
		req.SetCookies(cookies)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	body := resp.RawBody()
	defer body.Close()
	if !resp.IsSuccess() {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	p := &progress{expected: resp.RawResponse.ContentLength, callback: c.progress}
	p.report()
	var buf bytes.Buffer
	if p.expected > 0 {
		buf.Grow(int(p.expected))
	}
	// Count bytes last, so failed writes aren't counted
	if _, err := io.Copy(io.MultiWriter(&buf, p), interview_archiver.NewContextReader(ctx, body)); err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", ErrFetchFailed, err)
	}
	log.Debugf("Fetched %s from %s", humanize.Bytes(uint64(buf.Len())), url)
	return buf.Bytes(), nil
}

// progress is an io.Writer that discards the data but counts it.
type progress struct {
	downloaded int64
	expected   int64
	callback   ProgressFunc
}

func (p *progress) Write(b []byte) (int, error) {
	p.downloaded += int64(len(b))
	p.report()
	return len(b), nil
}

func (p *progress) report() {
	if p.callback != nil {
		p.callback(p.downloaded, p.expected)
	}
}
