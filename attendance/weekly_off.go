package attendance

// WeeklyOffCounter is the rolling attendance count since the start of the
// window or the last weekly off, whichever is later. It is a value: each
// step returns the next counter.
//
// Known limitation: a window that opens mid-week has no count from before
// the window, so its first weekly off is judged on in-window days only and
// may come out unpaid where a full calendar would have paid it.
type WeeklyOffCounter struct {
	Attended int
	Settled  int // weekly offs evaluated so far in the window
}

// Attend records one attendance day.
func (c WeeklyOffCounter) Attend() WeeklyOffCounter {
	c.Attended++
	return c
}

// Settle classifies a weekly-off day and resets the count whatever the
// outcome; eligibility never carries into the next week.
func (c WeeklyOffCounter) Settle(threshold int) (DayCategory, WeeklyOffCounter) {
	category := WeeklyOffUnpaid
	if c.Attended >= threshold {
		category = WeeklyOffPaid
	}
	return category, WeeklyOffCounter{Attended: 0, Settled: c.Settled + 1}
}

// First reports whether no weekly off has been settled in the window yet.
func (c WeeklyOffCounter) First() bool {
	return c.Settled == 0
}
