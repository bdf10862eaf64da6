package gate

import (
	"fmt"
	"time"
)

// FormatRemaining renders a remaining duration as "HH:MM:SS". Negative
// input clamps to zero. Hours are not capped at 24; a wait beyond 100
// hours simply widens the field.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
