package promo

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// LoadZone resolves an IANA name, falling back to time.Local when the name is
// blank or unknown.
func LoadZone(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// NowInZone formats the clock's current instant as a local Layout timestamp in
// the given zone, so it compares directly against period bounds.
func NowInZone(clock Clock, timezone string) string {
	if clock == nil {
		clock = SystemClock{}
	}
	return clock.Now().In(LoadZone(timezone)).Format(Layout)
}
