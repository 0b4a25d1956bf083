package vox

import (
	"net"
	"net/http"
	"time"
)

// httpDoer is the slice of *http.Client the services use. Tests substitute
// the server's client via WithHTTPClient.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// newDefaultHTTPClient configures transport-level timeouts while keeping the
// overall request lifetime controlled by context deadlines.
func newDefaultHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	return &http.Client{Transport: transport}
}
