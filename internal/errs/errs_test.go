package errs

import (
	"errors"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"bad spec", &BadVersionSpec{Input: "bogus"}, ExitUsage},
		{"no version", &NoVersion{}, ExitUsage},
		{"usage error", &UsageError{Message: "missing required version argument"}, ExitUsage},
		{"unknown version", &UnknownVersion{Spec: "9.9.9"}, ExitRecoverable},
		{"shasum mismatch", &ShasumMismatch{URL: "http://x", Expected: "a", Actual: "b"}, ExitRecoverable},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("%s: ExitCode() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestIndexFetchFailedUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &IndexFetchFailed{URL: "https://example.test", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to match inner error")
	}
}

func TestAllMirrorsFailedMessage(t *testing.T) {
	err := &AllMirrorsFailed{
		Spec: "0.13.0",
		Failures: []MirrorFailure{
			{Mirror: "https://a.test", Reason: errors.New("http 500")},
			{Mirror: "https://b.test", Reason: errors.New("shasum mismatch")},
		},
	}
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
	for _, want := range []string{"0.13.0", "https://a.test", "http 500", "https://b.test"} {
		if !contains(msg, want) {
			t.Errorf("expected message to contain %q, got %q", want, msg)
		}
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (sub == "" || indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
