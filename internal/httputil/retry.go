// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the lookup client and
// the downloader.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 1 * time.Second

// MaxRetryDelay caps a single backoff wait, including server-provided
// Retry-After values.
var MaxRetryDelay = 30 * time.Second

const defaultMaxRetries = 3

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests). The wait honours a Retry-After header when present; otherwise
// it starts at RetryBaseDelay and doubles each attempt, capped at
// MaxRetryDelay.
//
// When maxRetries is 0 the default (3) is used; a negative value disables
// retries. On each 429 the response body is drained and closed before
// sleeping. If the context is cancelled during a backoff wait the function
// returns ctx.Err(). After exhausting retries the last 429 response is
// returned so the caller can inspect it. Retries are logged through the
// zerolog logger attached to ctx, if any.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		backoff := RetryAfter(resp.Header.Get("Retry-After"))
		if backoff <= 0 {
			backoff = backoffDelay(attempt)
		}
		if backoff > MaxRetryDelay {
			backoff = MaxRetryDelay
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		zerolog.Ctx(ctx).Debug().
			Str("url", req.URL.Redacted()).
			Dur("backoff", backoff).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Msg("rate limited, retrying")

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// backoffDelay returns RetryBaseDelay doubled attempt times, capped at
// MaxRetryDelay. Doubling stops at the cap so large attempts cannot overflow.
func backoffDelay(attempt int) time.Duration {
	d := RetryBaseDelay
	for i := 0; i < attempt && d > 0 && d < MaxRetryDelay; i++ {
		d *= 2
	}
	if d <= 0 || d > MaxRetryDelay {
		return MaxRetryDelay
	}
	return d
}

// RetryAfter parses a Retry-After header value given either as seconds or
// as an HTTP date. It returns 0 when the value is absent or unusable.
func RetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return 0
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
