package failure

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// FromResponse builds the HTTPError for a non-2xx response whose body has
// already been read.
func FromResponse(resp *http.Response, body []byte) *HTTPError {
	return &HTTPError{
		Status:     resp.StatusCode,
		Body:       body,
		RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
}

// ParseRetryAfter accepts delay-seconds or an HTTP date. Unparseable or
// past values yield zero.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
