package util

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoggingTransport is an http.RoundTripper that traces outbound requests.
type LoggingTransport struct {
	Base http.RoundTripper
	Log  *zap.SugaredLogger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.Log == nil {
		return base.RoundTrip(req)
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	if err != nil {
		t.Log.Debugw("outbound request failed",
			"method", req.Method, "url", req.URL.Redacted(), "err", err)
		return resp, err
	}

	t.Log.Debugw("outbound request",
		"method", req.Method, "url", req.URL.Redacted(),
		"status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}

// RetryTransport retries idempotent requests on transport errors and 5xx
// responses with a doubling backoff. This is the operational transient
// handling layer; boundary conditions of the search API are handled above
// it by the resolver.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	Backoff    time.Duration
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return base.RoundTrip(req)
	}

	backoff := t.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var resp *http.Response
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = base.RoundTrip(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt >= t.MaxRetries {
			return resp, err
		}
		if resp != nil {
			resp.Body.Close()
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
