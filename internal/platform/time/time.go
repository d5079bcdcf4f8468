// Package time contains time related helpers
package time

import "time"

// UTCPtr returns t in UTC as a pointer, or nil if t is zero
func UTCPtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
