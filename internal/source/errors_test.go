package source

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyKeepsTypedError(t *testing.T) {
	orig := NewAuthError("key rejected")
	got := Classify(fmt.Errorf("fetch: %w", orig))
	if got.Kind != ErrAuth {
		t.Fatalf("Classify kind = %s, want %s", got.Kind, ErrAuth)
	}
}

func TestClassifyDeadlineExceeded(t *testing.T) {
	got := Classify(context.DeadlineExceeded)
	if got.Kind != ErrTimeout {
		t.Fatalf("Classify kind = %s, want %s", got.Kind, ErrTimeout)
	}
}

func TestClassifyGenericErrorIsNetwork(t *testing.T) {
	got := Classify(errors.New("connection refused"))
	if got.Kind != ErrNetwork {
		t.Fatalf("Classify kind = %s, want %s", got.Kind, ErrNetwork)
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Fatalf("Classify(nil) = %v, want nil", got)
	}
}

func TestErrorStringIncludesKind(t *testing.T) {
	e := NewParseError("bad shape")
	if got := e.Error(); got != "parse: bad shape" {
		t.Fatalf("Error() = %q", got)
	}

	wrapped := NewNetworkError(errors.New("dial tcp: refused"))
	if got := wrapped.Error(); got != "network: network request failed: dial tcp: refused" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  *Error
		want bool
	}{
		{NewNetworkError(errors.New("x")), true},
		{NewTimeoutError(context.DeadlineExceeded), true},
		{NewParseError("x"), false},
		{NewAuthError("x"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Fatalf("Retryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := NewNetworkError(cause)
	if !errors.Is(e, cause) {
		t.Fatalf("errors.Is should reach the cause")
	}
}
