package gate

import (
	"testing"
	"time"
)

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "zero", d: 0, want: "00:00:00"},
		{name: "one hour one minute one second", d: 3661 * time.Second, want: "01:01:01"},
		{name: "negative clamps to zero", d: -500 * time.Millisecond, want: "00:00:00"},
		{name: "sub second rounds down", d: 999 * time.Millisecond, want: "00:00:00"},
		{name: "just under a day", d: 24*time.Hour - time.Second, want: "23:59:59"},
		{name: "hours pass 24 uncapped", d: 36*time.Hour + 30*time.Minute, want: "36:30:00"},
		{name: "hours widen past 100", d: 361 * time.Hour, want: "361:00:00"},
		{name: "single digit zero padded", d: 5*time.Hour + 7*time.Minute + 9*time.Second, want: "05:07:09"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRemaining(tt.d); got != tt.want {
				t.Errorf("FormatRemaining(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}
