package scrape

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/sells-group/ticker-linker/internal/resilience"
)

// browserUserAgent is sent on every fetch; plenty of news sites serve
// empty shells to obvious bots.
const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0"

// maxBodyBytes bounds how much of a response is read regardless of
// Content-Length claims.
const maxBodyBytes = 1 << 20

// Options configures the scraper.
type Options struct {
	// Timeout is the per-fetch deadline. Default 10s.
	Timeout time.Duration
	// MaxContentLength truncates extracted text. Default 50000.
	MaxContentLength int
	// PerHostRPS throttles requests per host. Default 1.
	PerHostRPS float64
	// MaxAttempts is the per-URL attempt count for transient failures.
	// Default 1: a failed fetch is swallowed by the pipeline rather than
	// retried within the run; operators can opt in to a retry.
	MaxAttempts int
	// BlockedHosts extends the built-in host blocklist.
	BlockedHosts []string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxContentLength <= 0 {
		o.MaxContentLength = 50000
	}
	if o.PerHostRPS <= 0 {
		o.PerHostRPS = 1
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	return o
}

// Scraper fetches a URL and extracts readable article text. Safe for
// concurrent use; limiter state is per host.
type Scraper struct {
	client *http.Client
	filter *URLFilter
	opts   Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewScraper creates a Scraper with the given options.
func NewScraper(opts Options) *Scraper {
	opts = opts.withDefaults()
	return &Scraper{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: opts.Timeout,
				}).DialContext,
				TLSHandshakeTimeout: opts.Timeout,
			},
		},
		filter:   NewURLFilter(opts.BlockedHosts...),
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch retrieves targetURL and reduces it to article text. When
// MaxAttempts allows it, transient failures (throttling, 5xx, network
// flakes) are retried with backoff. Every remaining failure mode comes
// back as an error; callers treat any error as "no content available" and
// move on.
func (s *Scraper) Fetch(ctx context.Context, targetURL string) (string, error) {
	if !s.filter.Allowed(targetURL) {
		return "", eris.Errorf("scrape: url filtered: %s", targetURL)
	}

	if err := s.waitHost(ctx, targetURL); err != nil {
		return "", eris.Wrap(err, "scrape: rate limit wait")
	}

	page, err := resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts: s.opts.MaxAttempts,
	}, func(ctx context.Context) (string, error) {
		return s.fetchPage(ctx, targetURL)
	})
	if err != nil {
		return "", err
	}

	text, ok := ExtractArticle(page)
	if !ok {
		return "", eris.Errorf("scrape: no extractable article text at %s", targetURL)
	}
	if len(text) > s.opts.MaxContentLength {
		text = text[:s.opts.MaxContentLength]
	}
	return text, nil
}

// fetchPage performs one HTTP attempt and returns the decoded page.
func (s *Scraper) fetchPage(ctx context.Context, targetURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "scrape: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := eris.Errorf("scrape: status %d for %s", resp.StatusCode, targetURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return "", statusErr
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(contentType)
	if mediaType != "" && mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return "", eris.Errorf("scrape: unsupported content type %q", mediaType)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "scrape: read body")
	}

	return decodeCharset(raw, params["charset"]), nil
}

// waitHost blocks on the per-host limiter.
func (s *Scraper) waitHost(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	host := strings.ToLower(u.Hostname())

	s.mu.Lock()
	limiter, ok := s.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.opts.PerHostRPS), 1)
		s.limiters[host] = limiter
	}
	s.mu.Unlock()

	return limiter.Wait(ctx)
}

// decodeCharset converts the raw bytes to UTF-8 using the declared charset.
// Unknown or missing charsets fall back to interpreting the bytes as-is;
// UTF-8 pages (the overwhelming majority) pass through untouched.
func decodeCharset(raw []byte, charset string) string {
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return string(raw)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(raw)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
