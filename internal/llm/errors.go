package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a single gateway call failure.
type ErrorKind string

const (
	ErrKindNetwork     ErrorKind = "network"
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindMalformed   ErrorKind = "malformed"
	ErrKindUpstream4xx ErrorKind = "upstream_4xx"
	ErrKindUpstream5xx ErrorKind = "upstream_5xx"
)

// GatewayError is the typed failure of one best-effort model call.
type GatewayError struct {
	Kind   ErrorKind
	Status int // HTTP status for upstream_4xx/upstream_5xx, 0 otherwise
	Detail string
}

func (e *GatewayError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Retryable reports whether a failed attempt is worth repeating.
// Network faults, timeouts, 5xx and rate-limit responses are transient;
// other 4xx and malformed responses will fail the same way every time.
func Retryable(err error) bool {
	var ge *GatewayError
	if !errors.As(err, &ge) {
		return false
	}
	switch ge.Kind {
	case ErrKindNetwork, ErrKindTimeout, ErrKindUpstream5xx:
		return true
	case ErrKindUpstream4xx:
		return ge.Status == 429
	default:
		return false
	}
}
