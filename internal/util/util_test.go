package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewProxyFunc_Explicit(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.internal:3128", "http://secure-proxy.internal:3128", "files.planning.data.gov.uk")

	req, _ := http.NewRequest(http.MethodGet, "https://datasette.planning.data.gov.uk/x.csv", nil)
	u, err := proxy(req)
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}
	if u == nil || u.Host != "secure-proxy.internal:3128" {
		t.Errorf("Expected HTTPS proxy, got %v", u)
	}

	req, _ = http.NewRequest(http.MethodGet, "https://files.planning.data.gov.uk/y.csv", nil)
	u, err = proxy(req)
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}
	if u != nil {
		t.Errorf("Expected NO_PROXY host to go direct, got %v", u)
	}
}

func TestRobotsChecker(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: entorg\nDisallow: /performance/\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rc := NewRobotsChecker(server.Client(), "entorg/0.1 (+https://github.com/ppiankov/entorg)")

	allowed, delay, err := rc.Allowed(context.Background(), server.URL+"/performance/x.csv")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if allowed {
		t.Error("Expected /performance/ to be disallowed")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected 2s crawl delay, got %v", delay)
	}

	allowed, _, err = rc.Allowed(context.Background(), server.URL+"/files/y.csv")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if !allowed {
		t.Error("Expected /files/ to be allowed for entorg")
	}

	if robotsHits.Load() != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", robotsHits.Load())
	}
}

func TestRobotsChecker_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	rc := NewRobotsChecker(&http.Client{Timeout: time.Second}, "entorg")
	allowed, _, err := rc.Allowed(context.Background(), url+"/x.csv")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if !allowed {
		t.Error("Expected unreachable robots.txt to allow everything")
	}
}

func TestProductToken(t *testing.T) {
	tests := map[string]string{
		"entorg/0.1 (+https://github.com/ppiankov/entorg)": "entorg",
		"entorg":  "entorg",
		"":        "",
		"Foo/1.0": "Foo",
	}
	for in, want := range tests {
		if got := productToken(in); got != want {
			t.Errorf("productToken(%q) = %q, want %q", in, got, want)
		}
	}
}
