// Package llm holds the pieces the completion adapters share: mapping HTTP
// failures onto the completion error classes.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

// maxMessageLen bounds how much of a response body ends up in an error.
const maxMessageLen = 300

// now is replaced in tests.
var now = time.Now

// StatusError classifies an unsuccessful response. 429, 503 and 529 are
// rate limits, 408, 500, 502 and 504 are timeouts and anything else is
// unrecoverable. A Retry-After header is attached to rate limits.
func StatusError(provider string, resp *http.Response, body []byte) error {
	var class error
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
		class = domain.ErrRateLimited
	case http.StatusRequestTimeout, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusGatewayTimeout:
		class = domain.ErrTimeout
	default:
		class = domain.ErrUnrecoverable
	}

	err := fmt.Errorf("%w: %s returned status %d: %s", class, provider, resp.StatusCode, ErrorMessage(body))
	if class == domain.ErrRateLimited {
		if after := RetryAfter(resp.Header.Get("Retry-After")); after > 0 {
			return &domain.RetryAfterError{After: after, Err: err}
		}
	}
	return err
}

// TransportError classifies a failure to get any response. Cancellation is
// passed through unclassified; every other transport failure may succeed on
// retry.
func TransportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s request timed out: %w", domain.ErrTimeout, provider, err)
	}
	return fmt.Errorf("%w: %s unreachable: %w", domain.ErrTimeout, provider, err)
}

// DecodeError reports a 2xx response whose body could not be used.
func DecodeError(provider string, err error) error {
	return fmt.Errorf("%w: %s response: %w", domain.ErrUnrecoverable, provider, err)
}

// RetryAfter parses a Retry-After value given in seconds or as an HTTP date.
// Unparseable or past values yield zero.
func RetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now()); d > 0 {
			return d
		}
	}
	return 0
}

// ErrorMessage extracts a readable message from an error body. Providers
// use {"error": {"message": ...}}, {"error": "..."} or {"message": ...}.
func ErrorMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if len(payload.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var text string
			if json.Unmarshal(payload.Error, &text) == nil && text != "" {
				return text
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty body"
	}
	if r := []rune(msg); len(r) > maxMessageLen {
		msg = string(r[:maxMessageLen]) + "..."
	}
	return msg
}
