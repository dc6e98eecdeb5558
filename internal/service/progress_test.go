package service

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{59*time.Second + 600*time.Millisecond, "59s"},
		{time.Minute + 999*time.Millisecond, "1m 1s"},
		{3*time.Minute + 4*time.Second, "3m 4s"},
		{time.Hour + 2*time.Minute + 30*time.Second, "1h 2m"},
		{-time.Second, "0s"},
	}
	for _, c := range cases {
		if got := formatDuration(c.in); got != c.want {
			t.Fatalf("formatDuration(%v)=%q want=%q", c.in, got, c.want)
		}
	}
}

func TestEstimateRemaining(t *testing.T) {
	eta, ok := estimateRemaining(10, 30, 20*time.Second)
	if !ok || eta != 40*time.Second {
		t.Fatalf("eta=%v ok=%v want=40s", eta, ok)
	}
	if _, ok := estimateRemaining(0, 30, time.Second); ok {
		t.Fatalf("expected no estimate before progress")
	}
}
