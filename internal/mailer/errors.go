package mailer

import (
	"context"
	"errors"
	"net"
	"strings"
)

// IsRateLimit reports whether err looks like a transport rate limit. The
// queue worker counts these separately from generic failures so the health
// monitor can tell throttling apart from a broken transport.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, s := range []string{
		"rate limit",
		"rate_limit",
		"too many requests",
		"throttl",
		"429",
	} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is worth retrying at all: network hiccups,
// timeouts, rate limits and 5xx-shaped transport errors. Everything else is
// treated as permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimit(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, s := range []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"502",
		"503",
		"504",
		"try again",
	} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}
