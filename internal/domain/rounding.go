package domain

import "time"

// Rounding describes how booked durations snap to a step size.
type Rounding struct {
	// Minimum is the step size in minutes. Zero disables rounding.
	Minimum int
	// Limit is the percentage of a step at which a remainder rounds up.
	Limit int
}

// DefaultRounding matches the plugin defaults: quarter hours, round half up.
func DefaultRounding() Rounding {
	return Rounding{Minimum: 15, Limit: 50}
}

// Apply returns the rounded stop time for the span [start, stop].
// The result is never before start.
func (r Rounding) Apply(start, stop time.Time) time.Time {
	if r.Minimum <= 0 || !stop.After(start) {
		return stop
	}
	step := time.Duration(r.Minimum) * time.Minute
	d := stop.Sub(start)
	whole := d / step
	rest := d % step
	threshold := step * time.Duration(r.Limit) / 100
	if rest >= threshold && rest > 0 {
		whole++
	}
	return start.Add(whole * step)
}
