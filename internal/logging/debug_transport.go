package logging

import (
	"net/http"
	"time"
)

// DebugTransport is an http.RoundTripper that logs each request and
// response through a Logger. It is attached to the remote store's HTTP
// client when --debug is set. Headers are never logged, only method,
// URL, status and timing.
type DebugTransport struct {
	logger Logger
	next   http.RoundTripper
}

// NewDebugTransport wraps next (http.DefaultTransport when nil).
func NewDebugTransport(logger Logger, next http.RoundTripper) *DebugTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &DebugTransport{logger: logger, next: next}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("http request",
		F("method", req.Method),
		F("url", redactSensitiveData(req.URL.Redacted())),
	)

	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.Debug("http error",
			F("method", req.Method),
			F("duration_ms", duration.Milliseconds()),
			F("error", err.Error()),
		)
		return nil, err
	}

	t.logger.Debug("http response",
		F("method", req.Method),
		F("status", resp.StatusCode),
		F("duration_ms", duration.Milliseconds()),
	)
	return resp, nil
}
