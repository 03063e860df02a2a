package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// transientFragments match the error text the Anthropic SDK and the
// transport surface for failures that clear on their own. Auth and
// request validation errors are deliberately absent.
var transientFragments = []string{
	"429",
	"rate limit",
	"overloaded",
	"internal server error",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"tls handshake timeout",
	"no such host",
	"temporary failure in name resolution",
}

// IsTransient reports whether err looks like a failure a later attempt
// could survive.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
