package httpclient

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// retryPolicy controls the single retry the client performs on throttling
// and transient server errors. 4xx other than 429 are never retried.
type retryPolicy struct {
	retry429   bool
	max429Wait time.Duration
	retry5xx   bool
	backoff5xx time.Duration
}

var defaultRetryPolicy = retryPolicy{
	retry429:   true,
	max429Wait: 60 * time.Second,
	retry5xx:   true,
	backoff5xx: time.Second,
}

// retryDelay reports whether status warrants one retry and how long to wait
// first. retryAfter is the raw Retry-After header of the failed response.
func (p retryPolicy) retryDelay(status int, retryAfter string) (time.Duration, bool) {
	switch {
	case status == 429 && p.retry429:
		return parseRetryAfter(retryAfter, p.max429Wait), true
	case status >= 500 && p.retry5xx:
		return p.backoff5xx, true
	}
	return 0, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseRetryAfter parses Retry-After (seconds or HTTP-date), capped at max.
func parseRetryAfter(s string, max time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Second
	}
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		d := time.Duration(sec) * time.Second
		if d > max {
			return max
		}
		return d
	}
	t, err := time.Parse(time.RFC1123, s)
	if err != nil {
		return time.Second
	}
	until := time.Until(t)
	if until <= 0 {
		return 0
	}
	if until > max {
		return max
	}
	return until
}
