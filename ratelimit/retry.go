// Package ratelimit interprets server-issued rate-limit signals and suspends
// callers for exactly the advertised window. The server's stated value is
// authoritative: no jitter, no backoff growth.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// HeaderResetAfter carries fractional seconds until the bucket resets.
	// It takes precedence over the generic Retry-After header.
	HeaderResetAfter = "X-RateLimit-Reset-After"
	HeaderRetryAfter = "Retry-After"
)

// Throttled reports whether the status code signals a rate-limited call.
func Throttled(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests
}

// RetryAfter extracts the server-advertised wait from response headers.
// Header names are matched case-insensitively. A missing or unparseable
// signal yields ok=false; callers decide their own fallback.
func RetryAfter(headers map[string]string, now time.Time) (time.Duration, bool) {
	if raw := headerValue(headers, HeaderResetAfter); raw != "" {
		if seconds, err := strconv.ParseFloat(raw, 64); err == nil && seconds > 0 {
			return time.Duration(seconds * float64(time.Second)), true
		}
	}

	raw := headerValue(headers, HeaderRetryAfter)
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if retryAt, err := httpDate(raw); err == nil {
		if retryAt.After(now) {
			return retryAt.Sub(now), true
		}
	}
	return 0, false
}

// Wait suspends the calling task for the given duration without busy
// polling. Context cancellation cuts the wait short and is returned.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func httpDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("ratelimit: empty date")
	}
	if parsed, err := time.Parse(time.RFC1123, value); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.Parse(time.RFC1123Z, value); err == nil {
		return parsed.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("ratelimit: invalid http date")
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
