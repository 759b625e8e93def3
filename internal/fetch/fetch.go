// Package fetch downloads the source documents. It wraps http.Client with
// a user agent, bounded retries on transient failures, conditional
// revalidation against the on-disk cache, and content-type gating for the
// two document kinds the pipeline consumes (HTML pages and PDF bulletins).
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/sagakore/pharmagarde/internal/cache"
)

// DefaultUserAgent identifies the collector to the source sites.
const DefaultUserAgent = "pharmagarde/1.0 (+https://github.com/sagakore/pharmagarde)"

// Client issues GET requests with retry and optional disk caching.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each attempt.
	PerRequestTimeout time.Duration
	// Cache, when set, serves 304 revalidations and stores fresh bodies.
	Cache *cache.DocCache
	// BypassCache skips conditional headers but still writes fresh
	// responses through to the cache.
	BypassCache bool
	// InsecureTLS disables certificate verification. The bulletin host
	// has served an incomplete chain for years; downloads from it fail
	// without this.
	InsecureTLS bool

	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests per client. Zero means
	// unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

// Result is one fetched document.
type Result struct {
	Body        []byte
	ContentType string
	FromCache   bool
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	hc := &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
	if c.InsecureTLS {
		hc.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return hc
}

// Get fetches url, revalidating against the cache when possible.
func (c *Client) Get(ctx context.Context, url string) (*Result, error) {
	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.Meta(ctx, url); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		body, ct, newEtag, newLastMod, status, err := c.tryOnce(ctx, url, etag, lastMod)
		if err == nil {
			if status == http.StatusNotModified && c.Cache != nil {
				if cached, cerr := c.Cache.Body(ctx, url); cerr == nil {
					return &Result{Body: cached, ContentType: ct, FromCache: true}, nil
				}
				// Meta survived but body is gone. Refetch without
				// conditional headers.
				etag, lastMod = "", ""
				continue
			}
			if c.Cache != nil && status == http.StatusOK {
				_ = c.Cache.Put(ctx, url, ct, newEtag, newLastMod, body)
			}
			if isHTMLContentType(ct) {
				body = decodeHTML(body)
			}
			return &Result{Body: body, ContentType: ct}, nil
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(i)):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("fetch: no attempts made")
	}
	return nil, lastErr
}

// backoff doubles per retry: 500ms, 1s, 2s, ...
func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * 500 * time.Millisecond
}

type statusError struct {
	Status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Status)
}

var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func (c *Client) tryOnce(ctx context.Context, rawURL, etag, lastMod string) ([]byte, string, string, string, int, error) {
	c.acquire()
	defer c.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", "", 0, fmt.Errorf("new request: %w", err)
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return nil, "", "", "", 0, fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	httpClient := c.getHTTPClient()
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", "", "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, resp.Header.Get("Content-Type"), "", "", resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", "", "", resp.StatusCode, &statusError{Status: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isAllowedContentType(contentType) {
		return nil, "", "", "", resp.StatusCode, fmt.Errorf("unsupported content type: %s", contentType)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", "", "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return b, contentType, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), resp.StatusCode, nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return retryStatuses[se.Status]
	}
	return false
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// decodeHTML converts a page body to UTF-8. The source sites historically
// serve Latin-1; bodies that are not already valid UTF-8 are decoded as
// Windows-1252, which covers ISO-8859-1, rather than having their accented
// characters dropped.
func decodeHTML(body []byte) []byte {
	if utf8.Valid(body) {
		return body
	}
	if decoded, err := charmap.Windows1252.NewDecoder().Bytes(body); err == nil {
		return decoded
	}
	return []byte(strings.ToValidUTF8(string(body), ""))
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func isAllowedContentType(ct string) bool {
	if isHTMLContentType(ct) {
		return true
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	// Some servers label PDFs as octet-stream.
	return strings.HasPrefix(ct, "application/pdf") ||
		strings.HasPrefix(ct, "application/octet-stream")
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
