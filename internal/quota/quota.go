// Package quota implements per-actor, per-calendar-day counters.
package quota

import (
	"errors"
	"time"
)

// Kind names an action whose frequency is limited.
type Kind string

const (
	KindTaskCreate Kind = "task_create"
	KindBidPlace   Kind = "bid_place"
)

var ErrExceeded = errors.New("daily quota exceeded")

// Quota is a day-bounded counter. The window is the local calendar day of
// WindowStart in the location of the time passed to its methods.
type Quota struct {
	Count       int
	WindowStart time.Time
	Limit       int
}

// SameDay compares calendar dates in now's location.
func SameDay(a, now time.Time) bool {
	a = a.In(now.Location())
	ay, am, ad := a.Date()
	ny, nm, nd := now.Date()
	return ay == ny && am == nm && ad == nd
}

// Reset returns q with its count cleared when the window is from another day.
func (q Quota) Reset(now time.Time) Quota {
	if q.WindowStart.IsZero() || !SameDay(q.WindowStart, now) {
		q.Count = 0
		q.WindowStart = now
	}
	return q
}

// Allows reports whether one more action fits in the current window.
func (q Quota) Allows(now time.Time) bool {
	return q.Reset(now).Count < q.Limit
}

// Increment records one action at now.
func (q Quota) Increment(now time.Time) Quota {
	q = q.Reset(now)
	q.Count++
	q.WindowStart = now
	return q
}

// Take checks and increments in one step.
func (q Quota) Take(now time.Time) (Quota, error) {
	if !q.Allows(now) {
		return q.Reset(now), ErrExceeded
	}
	return q.Increment(now), nil
}

// NextMidnight is the start of the calendar day after now, in now's location.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
