package promo

import (
	"errors"
	"sort"
)

// Validation messages. Only the first violated rule is ever reported.
const (
	MsgStartBeforeEnd   = "Start date must be before end date."
	MsgStartInFuture    = "Start date must be in the future."
	MsgEndInFuture      = "End date must be in the future."
	MsgEndAfterDrawDate = "End date cannot be after the draw date."
	MsgMultiplierMin    = "Multiplier must be at least 1."
	MsgOverlap          = "Promotional periods cannot overlap."
)

// Options configures a Validate call.
type Options struct {
	// DrawDate and RunAt bound every period end. Callers supply one of them;
	// RunAt wins if both are set.
	DrawDate string
	RunAt    string
	// Timezone is the IANA zone "now" is computed in. Blank means local.
	Timezone string
	// IsUpdateMode disables the past-date checks for in-flight promotions.
	IsUpdateMode bool
	// ValidateNotInPast enables the past-date checks. Set it on submit only.
	ValidateNotInPast bool
	// Clock defaults to SystemClock.
	Clock Clock
}

func (o Options) compareDate() string {
	if o.RunAt != "" {
		return o.RunAt
	}
	return o.DrawDate
}

// Result is the outcome of Validate.
type Result struct {
	Valid        bool   `json:"isValid"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Err returns nil for a valid result and the message as an error otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return errors.New(r.ErrorMessage)
}

func invalid(msg string) Result {
	return Result{ErrorMessage: msg}
}

// Validate checks periods in their given order and reports the first broken
// rule. The overlap check runs only once every period passed on its own.
func Validate(periods []Period, opts Options) Result {
	checkPast := opts.ValidateNotInPast && !opts.IsUpdateMode
	compareDate := opts.compareDate()

	var now string
	if checkPast {
		now = NowInZone(opts.Clock, opts.Timezone)
	}

	for _, p := range periods {
		if p.Complete() {
			if p.Start >= p.End {
				return invalid(MsgStartBeforeEnd)
			}
			if checkPast {
				if p.Start < now {
					return invalid(MsgStartInFuture)
				}
				if p.End < now {
					return invalid(MsgEndInFuture)
				}
			}
			if compareDate != "" && p.End > compareDate {
				return invalid(MsgEndAfterDrawDate)
			}
		}
		if p.Multiplier < 1 {
			return invalid(MsgMultiplierMin)
		}
	}

	if overlaps(periods) {
		return invalid(MsgOverlap)
	}
	return Result{Valid: true}
}

// overlaps reports whether any two complete periods intersect. Touching
// bounds (prev.End == curr.Start) do not count.
func overlaps(periods []Period) bool {
	sorted := sortedComplete(periods)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			return true
		}
	}
	return false
}

// sortedComplete copies the complete periods and orders them by start.
// Layout strings are fixed width, so byte order is chronological order.
func sortedComplete(periods []Period) []Period {
	out := make([]Period, 0, len(periods))
	for _, p := range periods {
		if p.Complete() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
