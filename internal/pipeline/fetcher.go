package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/entorg/internal/cache"
	"github.com/ppiankov/entorg/internal/logger"
	"github.com/ppiankov/entorg/internal/model"
	"github.com/ppiankov/entorg/internal/util"
	"github.com/ppiankov/entorg/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// ErrTooLarge is returned when a body exceeds the configured size limit.
// Truncated CSV would silently lose rows, so it is never returned partially.
var ErrTooLarge = errors.New("response body exceeds size limit")

// Fetcher downloads reporting tables and transformed snapshots
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	robots   *util.RobotsChecker // nil unless robots.txt is respected
	limiter  *worker.Limiter     // nil disables pacing
	cache    cache.Cache         // nil disables caching
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewFetcher creates a Fetcher. Empty proxy settings fall back to the environment.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, respectRobots bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(httpProxy, httpsProxy, noProxy)

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		log:        logger.Nop(),
	}
	if respectRobots {
		f.robots = util.NewRobotsChecker(client, userAgent)
	}
	return f
}

// WithLimiter paces requests per host
func (f *Fetcher) WithLimiter(l *worker.Limiter) *Fetcher {
	f.limiter = l
	return f
}

// WithCache serves repeated downloads from c for ttl
func (f *Fetcher) WithCache(c cache.Cache, ttl time.Duration) *Fetcher {
	f.cache = c
	f.cacheTTL = ttl
	return f
}

// WithLogger sets the logger used for retry and cache messages
func (f *Fetcher) WithLogger(log *logger.Logger) *Fetcher {
	if log != nil {
		f.log = log
	}
	return f
}

// FetchResult is a downloaded body and where it came from
type FetchResult struct {
	Body        []byte
	StatusCode  int
	ContentType string
	FinalURL    string
	FromCache   bool
}

// Fetch downloads rawURL once
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.Key(rawURL)
	if f.cache != nil {
		if body, ok := f.cache.Get(key); ok {
			f.log.Debug("cache hit", "url", rawURL)
			return &FetchResult{Body: body, StatusCode: http.StatusOK, FinalURL: rawURL, FromCache: true}, nil
		}
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("check robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		if f.limiter != nil && delay > 0 {
			if host, err := hostOf(rawURL); err == nil {
				f.limiter.SlowHost(host, delay)
			}
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/csv,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := f.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(key, body, f.cacheTTL); err != nil {
			f.log.Warn("cache write failed", "url", rawURL, "error", err)
		}
	}

	return &FetchResult{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, f.maxBytes)
	}
	return body, nil
}

const maxFetchAttempts = 3

// fetchSleepFunc is swapped out by tests
var fetchSleepFunc = time.Sleep

// FetchWithRetry fetches with exponential backoff on transient failures
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	backoff := time.Second

	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == maxFetchAttempts {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		f.log.Debug("retrying fetch", "url", rawURL, "attempt", attempt, "error", err)
		fetchSleepFunc(backoff)
		backoff *= 2
	}

	return nil, lastErr
}

// isRetryableFetchError reports whether err is worth another attempt:
// server errors, throttling and dropped connections
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		code, convErr := strconv.Atoi(strings.Fields(rest + " ")[0])
		if convErr != nil {
			return false
		}
		return code == http.StatusTooManyRequests || code >= 500
	}

	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		(strings.HasPrefix(msg, "fetch:") && strings.HasSuffix(msg, "EOF"))
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Host, nil
}

// FetcherFromConfig builds the fetcher described by cfg with its limiter and cache
func FetcherFromConfig(cfg *model.Config, log *logger.Logger) *Fetcher {
	f := NewFetcher(
		cfg.HTTP.Timeout,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.RespectRobots,
		cfg.HTTP.HTTPProxy,
		cfg.HTTP.HTTPSProxy,
		cfg.HTTP.NoProxy,
	).WithLogger(log)

	f.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize))
	if cfg.Cache.Enabled {
		f.WithCache(cache.New(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL), cfg.Cache.DiskTTL)
	}
	return f
}
