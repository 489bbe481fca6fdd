package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces requests per host so a batch never hammers one reporting
// service, whatever the worker count
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a request to rawURL's host may proceed
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// Allow reports whether a request may proceed now, consuming a token if so
func (l *Limiter) Allow(rawURL string) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	return l.forHost(host).Allow()
}

// SlowHost lowers a host's rate to one request per delay, as asked for by a
// robots.txt Crawl-delay. It never raises the configured rate.
func (l *Limiter) SlowHost(host string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	limit := rate.Every(delay)

	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.limiters[host]
	if ok && current.Limit() <= limit {
		return
	}
	if !ok && l.defaultRate <= limit {
		return
	}
	l.limiters[host] = rate.NewLimiter(limit, 1)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[host]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[host]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = limiter
	return limiter
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in URL %q", rawURL)
	}
	return parsed.Host, nil
}
