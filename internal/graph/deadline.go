package graph

import "time"

// Deadline is a pollable wall-clock cutoff. Search primitives check it
// every few nodes rather than relying on goroutine interruption, per the
// spec's design note: "Avoid interrupt-based cooperative cancellation if
// possible; instead, have the graph primitives poll a deadline flag every
// N nodes visited."
type Deadline struct {
	at time.Time
}

// NewDeadline returns a Deadline expiring after d.
func NewDeadline(d time.Duration) *Deadline {
	return &Deadline{at: time.Now().Add(d)}
}

// Expired reports whether the deadline has passed.
func (d *Deadline) Expired() bool {
	if d == nil {
		return false
	}
	return time.Now().After(d.at)
}

// pollEvery is how many visited nodes elapse between deadline checks in
// the cycle-search primitives.
const pollEvery = 256
