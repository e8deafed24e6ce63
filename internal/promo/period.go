// Package promo holds the promotional-period rules for draws: validation of a
// candidate period set and the read-side multiplier preview.
package promo

import (
	"fmt"
	"time"
)

// Layout is the wire format of period timestamps: minute precision, no zone.
// It matches the value of an HTML datetime-local input.
const Layout = "2006-01-02T15:04"

// Period is a window during which purchased entries are multiplied.
// Start and End are local times in the draw's configured timezone.
type Period struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	Multiplier int    `json:"multiplier"`
}

// Complete reports whether both bounds are filled in.
func (p Period) Complete() bool {
	return p.Start != "" && p.End != ""
}

// ParseLocal parses a Layout timestamp without attaching any zone offset.
// The returned time carries UTC as a neutral location; its wall clock equals s.
func ParseLocal(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse local timestamp %q: %w", s, err)
	}
	return t, nil
}

// FormatLocal renders the wall clock of t in Layout, ignoring its location.
func FormatLocal(t time.Time) string {
	return t.Format(Layout)
}
