package reliability

import (
	"errors"
	"net"
	"strings"
)

// resultRetryKeywords are substrings in a tool-level failure message (success=false)
// that mark the failure as worth retrying. Checked case-insensitively.
var resultRetryKeywords = []string{
	"timeout",
	"transient",
	"temporary",
	"retry",
	"connection",
}

// infraRetryPatterns identify the transient-network error class for
// infrastructure-level errors (errors returned from the Go call itself,
// not a tool result with success=false).
var infraRetryPatterns = []string{
	"connection refused",
	"connection reset",
	"timed out",
	"timeout",
	"broken pipe",
	"network unreachable",
	"host unreachable",
	"no such host",
}

// classifyResult reports whether a tool-level failure message is retryable.
func classifyResult(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range resultRetryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// classifyInfraError reports whether an infrastructure-level error belongs to
// the transient network class.
func classifyInfraError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	lower := strings.ToLower(err.Error())
	for _, p := range infraRetryPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
