package llm

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"network", &GatewayError{Kind: ErrKindNetwork}, true},
		{"timeout", &GatewayError{Kind: ErrKindTimeout}, true},
		{"upstream 500", &GatewayError{Kind: ErrKindUpstream5xx, Status: 500}, true},
		{"upstream 503", &GatewayError{Kind: ErrKindUpstream5xx, Status: 503}, true},
		{"rate limited", &GatewayError{Kind: ErrKindUpstream4xx, Status: 429}, true},
		{"unauthorized", &GatewayError{Kind: ErrKindUpstream4xx, Status: 401}, false},
		{"bad request", &GatewayError{Kind: ErrKindUpstream4xx, Status: 400}, false},
		{"malformed", &GatewayError{Kind: ErrKindMalformed}, false},
		{"plain error", errors.New("boom"), false},
		{"wrapped gateway error", fmt.Errorf("attempt: %w", &GatewayError{Kind: ErrKindTimeout}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.retryable {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestGatewayError_Message(t *testing.T) {
	withStatus := &GatewayError{Kind: ErrKindUpstream5xx, Status: 502, Detail: "bad gateway"}
	if withStatus.Error() != "upstream_5xx (HTTP 502): bad gateway" {
		t.Errorf("unexpected message: %q", withStatus.Error())
	}
	withoutStatus := &GatewayError{Kind: ErrKindNetwork, Detail: "conn refused"}
	if withoutStatus.Error() != "network: conn refused" {
		t.Errorf("unexpected message: %q", withoutStatus.Error())
	}
}
