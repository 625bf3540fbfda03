package util

import (
	"errors"
	"testing"
	"time"
)

func TestBackoffDoublesUntilMax(t *testing.T) {
	b := NewBackoff(time.Second, 10*time.Second)

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second, // capped
		10 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() call %d = %v, want %v", i, got, w)
		}
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute)
	b.Next()
	b.Next()
	b.Reset()

	if got := b.Next(); got != time.Second {
		t.Errorf("Next after Reset = %v, want 1s", got)
	}
}

func TestWrapError(t *testing.T) {
	base := errors.New("connection refused")
	err := WrapError("reach endpoint", base)

	if !errors.Is(err, base) {
		t.Error("wrapped error loses the cause")
	}
	if want := "failed to reach endpoint: connection refused"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestIsConfigured(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   bool
	}{
		{"all set", []string{"a", "b"}, true},
		{"one empty", []string{"a", ""}, false},
		{"all empty", []string{"", ""}, false},
		{"no values", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConfigured(tt.values...); got != tt.want {
				t.Errorf("IsConfigured(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}
