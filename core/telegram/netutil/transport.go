package netutil

import (
	"io"
	"net/http"
	"time"
)

// RetryTransport retries transient network errors and, for GET/HEAD, the configured statuses.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	Backoff    time.Duration
	statuses   map[int]struct{}
}

// NewRetryTransport wraps base. A nil base means http.DefaultTransport.
func NewRetryTransport(base http.RoundTripper, maxRetries int, backoff time.Duration, statuses ...int) *RetryTransport {
	set := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return &RetryTransport{Base: base, MaxRetries: maxRetries, Backoff: backoff, statuses: set}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.MaxRetries + 1
	idempotent := req.Method == http.MethodGet || req.Method == http.MethodHead
	// A consumed body can only be resent when the request can recreate it.
	rewindable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		curr := req
		if attempt > 1 {
			curr = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				curr.Body = body
			}
		}

		resp, lastErr = base.RoundTrip(curr)
		retry := false
		switch {
		case lastErr != nil:
			retry = ShouldRetry(lastErr)
		case idempotent:
			_, retry = t.statuses[resp.StatusCode]
		}
		if !retry || !rewindable || attempt == attempts {
			return resp, lastErr
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			resp = nil
		}

		delay := t.Backoff * time.Duration(attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return resp, lastErr
}
