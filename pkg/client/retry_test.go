package client

import (
	"math"
	"net/http"
	"testing"
	"time"
)

func TestBackoffPolicy_Ceiling(t *testing.T) {
	p := BackoffPolicy{Base: 750 * time.Millisecond, Cap: 60 * time.Second}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{attempt: -1, expected: 750 * time.Millisecond},
		{attempt: 0, expected: 750 * time.Millisecond},
		{attempt: 1, expected: 1500 * time.Millisecond},
		{attempt: 2, expected: 3 * time.Second},
		{attempt: 6, expected: 48 * time.Second},
		{attempt: 7, expected: 60 * time.Second},
		{attempt: 5000, expected: 60 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Ceiling(tt.attempt); got != tt.expected {
			t.Errorf("Ceiling(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestBackoffPolicy_CeilingIsMonotonic(t *testing.T) {
	p := BackoffPolicy{Base: 100 * time.Millisecond, Cap: 10 * time.Second}

	prev := time.Duration(0)
	for attempt := 0; attempt < 64; attempt++ {
		c := p.Ceiling(attempt)
		if c < prev {
			t.Fatalf("Ceiling(%d) = %v < Ceiling(%d) = %v", attempt, c, attempt-1, prev)
		}
		if c > p.Cap {
			t.Fatalf("Ceiling(%d) = %v exceeds cap %v", attempt, c, p.Cap)
		}
		prev = c
	}
}

func TestBackoffPolicy_NextDelayWithinBounds(t *testing.T) {
	p := NewSeededBackoffPolicy(750*time.Millisecond, 60*time.Second, 42)

	for attempt := 0; attempt < 20; attempt++ {
		for i := 0; i < 50; i++ {
			d := p.NextDelay(attempt, nil)
			if d < 0 || d > p.Ceiling(attempt) {
				t.Fatalf("NextDelay(%d) = %v, want within [0, %v]", attempt, d, p.Ceiling(attempt))
			}
		}
	}
}

func TestBackoffPolicy_SeededIsReproducible(t *testing.T) {
	a := NewSeededBackoffPolicy(time.Second, time.Minute, 7)
	b := NewSeededBackoffPolicy(time.Second, time.Minute, 7)

	for attempt := 0; attempt < 10; attempt++ {
		if da, db := a.NextDelay(attempt, nil), b.NextDelay(attempt, nil); da != db {
			t.Fatalf("NextDelay(%d) = %v vs %v with same seed", attempt, da, db)
		}
	}
}

func TestBackoffPolicy_HintOverrides(t *testing.T) {
	p := NewBackoffPolicy(750*time.Millisecond, 60*time.Second)

	tests := []struct {
		name     string
		hint     time.Duration
		expected time.Duration
	}{
		{name: "hint within cap", hint: 5 * time.Second, expected: 5 * time.Second},
		{name: "hint beyond cap", hint: 120 * time.Second, expected: 120 * time.Second},
		{name: "zero hint", hint: 0, expected: 0},
		{name: "negative hint clamps", hint: -3 * time.Second, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := tt.hint
			if got := p.NextDelay(3, &hint); got != tt.expected {
				t.Errorf("NextDelay() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    string
		expected time.Duration
		wantOK   bool
	}{
		{name: "empty", value: "", wantOK: false},
		{name: "integer seconds", value: "120", expected: 120 * time.Second, wantOK: true},
		{name: "fractional seconds", value: "1.5", expected: 1500 * time.Millisecond, wantOK: true},
		{name: "padded", value: "  30 ", expected: 30 * time.Second, wantOK: true},
		{name: "negative clamps", value: "-5", expected: 0, wantOK: true},
		{name: "not a number", value: "soon", wantOK: false},
		{name: "infinity", value: "Inf", wantOK: false},
		{name: "huge clamps", value: "1e300", expected: time.Duration(math.MaxInt64), wantOK: true},
		{name: "future date", value: now.Add(90 * time.Second).Format(http.TimeFormat), expected: 90 * time.Second, wantOK: true},
		{name: "past date", value: now.Add(-time.Hour).Format(http.TimeFormat), expected: 0, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryAfter(tt.value, now)
			if ok != tt.wantOK {
				t.Fatalf("ParseRetryAfter(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.expected {
				t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}
