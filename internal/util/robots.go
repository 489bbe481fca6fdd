package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker answers whether a reporting host permits fetching a path.
// robots.txt is fetched once per host and kept for the checker's lifetime.
type RobotsChecker struct {
	client *http.Client
	agent  string

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

// NewRobotsChecker creates a checker sharing the downloader's HTTP client
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		client: client,
		agent:  productToken(userAgent),
		hosts:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether rawURL may be fetched and the host's crawl delay.
// An unreachable robots.txt allows everything.
func (r *RobotsChecker) Allowed(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}

	data := r.robotsFor(ctx, parsed)
	if data == nil {
		return true, 0, nil
	}

	group := data.FindGroup(r.agent)
	if group == nil {
		return true, 0, nil
	}
	return group.Test(parsed.Path), group.CrawlDelay, nil
}

func (r *RobotsChecker) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	r.mu.Lock()
	data, ok := r.hosts[u.Host]
	r.mu.Unlock()
	if ok {
		return data
	}

	data = r.fetch(ctx, fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host))

	r.mu.Lock()
	r.hosts[u.Host] = data
	r.mu.Unlock()
	return data
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}

// productToken reduces a User-Agent to the token robots.txt groups match on
func productToken(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ua
	}
	return strings.Split(fields[0], "/")[0]
}
