package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Closed range of calendar days
// =============================================================================

// Period is the inclusive day range [Start, End]. Quotas, reports and
// processing runs are all scoped to a Period.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod returns [start, end] or ErrInvalidPeriod when end precedes start.
func NewPeriod(start, end TimePoint) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the day is within [Start, End].
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Overlaps returns true if the two periods share at least one day.
func (p Period) Overlaps(o Period) bool {
	return p.Start.BeforeOrEqual(o.End) && o.Start.BeforeOrEqual(p.End)
}

// Len returns the number of days in the period.
func (p Period) Len() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period.
func (p Period) Days() []TimePoint {
	days := make([]TimePoint, 0, p.Len())
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PERIOD TYPES
// =============================================================================

type PeriodType string

const (
	PeriodCalendarYear PeriodType = "calendar_year" // Jan 1 - Dec 31
	PeriodHalfYear     PeriodType = "half_year"     // Jan 1 - Jun 30, Jul 1 - Dec 31
	PeriodMonth        PeriodType = "month"         // calendar month
)

// PeriodFor returns the period of the given type that contains date.
func (pt PeriodType) PeriodFor(date TimePoint) Period {
	switch pt {
	case PeriodHalfYear:
		return HalfYearOf(date).Period(date.Year())
	case PeriodMonth:
		return Period{
			Start: StartOfMonth(date.Year(), date.Month()),
			End:   EndOfMonth(date.Year(), date.Month()),
		}
	default:
		return Period{Start: StartOfYear(date.Year()), End: EndOfYear(date.Year())}
	}
}

// Split cuts p at the boundaries of the period type, returning the pieces in
// chronological order. A month period split by half-year returns itself.
func (pt PeriodType) Split(p Period) []Period {
	var out []Period
	for start := p.Start; start.BeforeOrEqual(p.End); {
		bucket := pt.PeriodFor(start)
		end := bucket.End
		if end.After(p.End) {
			end = p.End
		}
		out = append(out, Period{Start: start, End: end})
		start = end.AddDays(1)
	}
	return out
}

// =============================================================================
// HALF-YEAR - Fixed calendar halves used for leave quotas
// =============================================================================

type HalfYear int

const (
	H1 HalfYear = 1 // January - June
	H2 HalfYear = 2 // July - December
)

// HalfYearOf returns the half containing date. The boundary is fixed at
// June 30 / July 1 regardless of when the question is asked.
func HalfYearOf(date TimePoint) HalfYear {
	if date.Month() <= time.June {
		return H1
	}
	return H2
}

// Period returns the half's day range in the given year.
func (h HalfYear) Period(year int) Period {
	if h == H1 {
		return Period{Start: NewTimePoint(year, time.January, 1), End: NewTimePoint(year, time.June, 30)}
	}
	return Period{Start: NewTimePoint(year, time.July, 1), End: NewTimePoint(year, time.December, 31)}
}

func (h HalfYear) String() string {
	return fmt.Sprintf("H%d", int(h))
}
