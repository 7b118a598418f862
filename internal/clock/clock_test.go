package clock

import (
	"testing"
	"time"
)

func TestDeduct(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lastMove := now.Add(-7 * time.Second)

	got := Deduct(60*time.Second, lastMove, now)
	if got != 53*time.Second {
		t.Fatalf("Deduct = %v, want 53s", got)
	}
}

func TestDeductGoesNegative(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lastMove := now.Add(-90 * time.Second)

	got := Deduct(60*time.Second, lastMove, now)
	if got >= 0 {
		t.Fatalf("Deduct = %v, want negative", got)
	}
}

func TestSeconds(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{90 * time.Second, 90},
		{1500 * time.Millisecond, 1},
		{999 * time.Millisecond, 0},
		{0, 0},
		{-5 * time.Second, 0},
	}
	for _, c := range cases {
		if got := Seconds(c.in); got != c.want {
			t.Errorf("Seconds(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestWaitSeconds(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if got := WaitSeconds(now.Add(15*time.Second), now); got != 15 {
		t.Fatalf("WaitSeconds = %d, want 15", got)
	}
	if got := WaitSeconds(now.Add(-time.Second), now); got != 0 {
		t.Fatalf("WaitSeconds past eta = %d, want 0", got)
	}
}

func TestMicrosRoundTrip(t *testing.T) {
	d := 5*time.Minute + 123456*time.Microsecond

	if got := ParseMicros(FormatMicros(d)); got != d {
		t.Fatalf("round trip = %v, want %v", got, d)
	}
}

func TestParseMicrosBadInput(t *testing.T) {
	if got := ParseMicros(""); got != 0 {
		t.Fatalf("ParseMicros(empty) = %v, want 0", got)
	}
	if got := ParseMicros("abc"); got != 0 {
		t.Fatalf("ParseMicros(garbage) = %v, want 0", got)
	}
}
