package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("fetch token: %w", New(CodeQuotaExceeded, "credits exhausted"))

	if !errors.Is(err, ErrQuotaExceeded) {
		t.Error("wrapped quota error should match ErrQuotaExceeded")
	}
	if errors.Is(err, ErrInvalidCredential) {
		t.Error("quota error should not match ErrInvalidCredential")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(Upstream(503, "busy")); got != CodeUpstream {
		t.Errorf("CodeOf(upstream) = %q, want %q", got, CodeUpstream)
	}
	if got := CodeOf(errors.New("socket closed")); got != CodeCapability {
		t.Errorf("CodeOf(plain) = %q, want %q", got, CodeCapability)
	}
}

func TestUpstreamCarriesStatusAndBody(t *testing.T) {
	err := Upstream(503, `{"detail":"overloaded"}`)
	if err.Status != 503 {
		t.Errorf("status = %d, want 503", err.Status)
	}
	if err.Body != `{"detail":"overloaded"}` {
		t.Errorf("body = %q", err.Body)
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("dial unix: no such file")
	err := Wrap(CodeCapability, "connect", cause)
	if !errors.Is(err, cause) {
		t.Error("Wrap should expose its cause")
	}
	if err.Error() != "CAPABILITY_ERROR: connect (cause: dial unix: no such file)" {
		t.Errorf("Error() = %q", err.Error())
	}
}
