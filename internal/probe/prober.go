// Package probe checks whether a URL serves an image, with a verdict cache.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/showmore/internal/logging"
)

// DefaultTimeout bounds a single probe request.
const DefaultTimeout = 3 * time.Second

// DefaultUserAgent is sent with every probe.
const DefaultUserAgent = "showmore/0.1 (+https://github.com/abelbrown/showmore)"

// maxDrain caps how much of a GET body is read before closing.
const maxDrain = 64 << 10

// ErrScheme is returned for URLs that are not http or https.
var ErrScheme = errors.New("probe: unsupported URL scheme")

// Config configures a Prober.
type Config struct {
	Timeout   time.Duration // per request. Default: 3s.
	UserAgent string
	// RequestsPerSecond throttles probes across all callers. 0 means unlimited.
	RequestsPerSecond float64
	MaxRedirects      int // Default: 5.
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 5
	}
}

// Result is the detailed outcome of a probe.
type Result struct {
	URL         string
	Exists      bool
	StatusCode  int
	ContentType string
	Method      string // last method sent; empty when served from cache
	Cached      bool
	Err         error
}

// Prober answers "does this URL resolve to an image".
// Thread-safety: safe for concurrent use.
type Prober struct {
	client    *http.Client
	cache     *Cache
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
}

// New creates a Prober. cache may be nil to disable caching.
func New(cfg Config, cache *Cache) *Prober {
	cfg.defaults()

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	maxRedirects := cfg.MaxRedirects
	return &Prober{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		},
		cache:     cache,
		limiter:   rate.NewLimiter(limit, 1),
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
	}
}

// Exists reports whether rawURL is a retrievable image.
// Any failure counts as "does not exist".
func (p *Prober) Exists(ctx context.Context, rawURL string) bool {
	return p.Check(ctx, rawURL).Exists
}

// Check probes rawURL, consulting and then filling the cache.
// HEAD is tried first; servers that reject it get a one-byte ranged GET.
func (p *Prober) Check(ctx context.Context, rawURL string) Result {
	if p.cache != nil {
		if exists, ok := p.cache.Get(rawURL); ok {
			return Result{URL: rawURL, Exists: exists, Cached: true}
		}
	}

	res := p.check(ctx, rawURL)

	// A cancelled caller is not a verdict on the URL.
	if p.cache != nil && ctx.Err() == nil {
		p.cache.Put(rawURL, res.Exists)
	}
	if res.Err != nil {
		logging.Debug("probe failed", "url", rawURL, "method", res.Method, "err", res.Err)
	}
	return res
}

func (p *Prober) check(ctx context.Context, rawURL string) Result {
	if err := validateURL(rawURL); err != nil {
		return Result{URL: rawURL, Err: err}
	}

	res := p.do(ctx, http.MethodHead, rawURL)
	if res.Err == nil && headRejected(res.StatusCode) {
		return p.do(ctx, http.MethodGet, rawURL)
	}
	if res.Err != nil {
		var pe *http.ProtocolError
		if errors.As(res.Err, &pe) {
			return p.do(ctx, http.MethodGet, rawURL)
		}
	}
	return res
}

func (p *Prober) do(ctx context.Context, method, rawURL string) Result {
	res := Result{URL: rawURL, Method: method}

	if err := p.limiter.Wait(ctx); err != nil {
		res.Err = fmt.Errorf("rate limit: %w", err)
		return res
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, nil)
	if err != nil {
		res.Err = fmt.Errorf("new request: %w", err)
		return res
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "image/*")
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("%s request: %w", method, err)
		return res
	}
	defer resp.Body.Close()

	if method == http.MethodGet {
		_, _ = io.CopyN(io.Discard, resp.Body, maxDrain)
	}

	res.StatusCode = resp.StatusCode
	res.ContentType = resp.Header.Get("Content-Type")
	res.Exists = resp.StatusCode >= 200 && resp.StatusCode < 300 && isImage(res.ContentType)
	return res
}

// headRejected lists statuses servers use to refuse HEAD.
func headRejected(status int) bool {
	switch status {
	case http.StatusMethodNotAllowed, http.StatusNotImplemented, http.StatusBadRequest:
		return true
	}
	return false
}

func isImage(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return strings.HasPrefix(mediaType, "image/")
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrScheme, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("parse url: missing host in %q", rawURL)
	}
	return nil
}
