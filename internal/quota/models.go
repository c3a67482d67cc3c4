// Package quota enforces per-entity monthly query limits. Periods are
// calendar months in the gateway's local time; consumption is tracked in an
// upsert-incremented counter row per (entity, period).
package quota

import (
	"time"

	id "burogate/pkg/domain"
)

// Usage is one consumption counter row.
type Usage struct {
	EntityID         id.EntityID
	PeriodStart      time.Time
	QueriesPerformed int
}

// Status is the result of a limit check. Denial is a result, not an error.
type Status struct {
	Allowed     bool
	Limit       int
	Used        int
	Remaining   int
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// PeriodStart truncates t to the first instant of its calendar month.
func PeriodStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// PeriodEnd returns the first instant of the following month.
func PeriodEnd(t time.Time) time.Time {
	return PeriodStart(t).AddDate(0, 1, 0)
}
