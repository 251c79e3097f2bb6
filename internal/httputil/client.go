package httputil

import (
	"net/http"
	"time"
)

const DefaultTimeout = 10 * time.Second

// UserAgent identifies skycast to upstream APIs.
const UserAgent = "skycast/1.0 (+https://github.com/lox/skycast)"

// NewClient returns an HTTP client with standard timeout configuration that
// sends UserAgent on every request.
func NewClient() *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &userAgentTransport{base: http.DefaultTransport},
	}
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}
	return t.base.RoundTrip(req)
}
