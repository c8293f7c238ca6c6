package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// CookieSource returns the cookies a browser would send with a request for rawURL.
type CookieSource func(ctx context.Context, rawURL string) ([]*http.Cookie, error)

func (c *Client) requestCookies(ctx context.Context, rawURL string) ([]*http.Cookie, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	cookies, err := c.cookies(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read cookies: %w", ErrFetchFailed, err)
	}
	var result []*http.Cookie
	for _, cookie := range cookies {
		if cookieApplies(cookie, u) {
			result = append(result, cookie)
		}
	}
	return result, nil
}

// cookieApplies follows the RFC 6265 domain, path and secure rules. A cookie without a Domain is host-only and was
// already looked up for this URL, so it is kept.
func cookieApplies(cookie *http.Cookie, u *url.URL) bool {
	if cookie.Secure && u.Scheme != "https" {
		return false
	}
	if domain := strings.ToLower(strings.TrimPrefix(cookie.Domain, ".")); domain != "" {
		host := strings.ToLower(u.Hostname())
		if host != domain && !strings.HasSuffix(host, "."+domain) {
			return false
		}
	}
	return pathMatches(cookie.Path, u.EscapedPath())
}

func pathMatches(cookiePath string, requestPath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	if requestPath == "" {
		requestPath = "/"
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return len(requestPath) == len(cookiePath) ||
		strings.HasSuffix(cookiePath, "/") ||
		requestPath[len(cookiePath)] == '/'
}
