package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc creates a proxy function from explicit settings.
// With no proxy URLs configured it falls back to the environment.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	cfg := &httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}
	proxyFor := cfg.ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return proxyFor(req.URL)
	}
}
