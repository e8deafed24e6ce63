package promo

// Preview is the multiplier in effect at a point in time. It is advisory: the
// draw backend decides what was actually applied to a purchase.
type Preview struct {
	Multiplier int     `json:"multiplier"`
	Matched    *Period `json:"matchedPeriod,omitempty"`
}

// ActiveMultiplier finds the period containing at, using half-open windows
// [Start, End). If periods overlap, the earliest start wins.
func ActiveMultiplier(periods []Period, at string) Preview {
	for _, p := range sortedComplete(periods) {
		if p.Start <= at && at < p.End {
			matched := p
			return Preview{Multiplier: p.Multiplier, Matched: &matched}
		}
	}
	return Preview{Multiplier: 1}
}

// Entries converts a ticket count into entries under the previewed multiplier.
func Entries(tickets int, p Preview) int {
	if p.Multiplier < 1 {
		return tickets
	}
	return tickets * p.Multiplier
}
