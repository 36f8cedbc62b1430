package revenue

import "time"

// Period is a half-open calendar window [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthOf returns the calendar month containing t, in loc.
func MonthOf(t time.Time, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// TrailingMonths returns n consecutive months ending with the month containing
// now, oldest first.
func TrailingMonths(now time.Time, n int, loc *time.Location) []Period {
	if n <= 0 {
		return nil
	}
	out := make([]Period, n)
	cur := MonthOf(now, loc)
	for i := n - 1; i >= 0; i-- {
		out[i] = cur
		cur = cur.Prev()
	}
	return out
}

func (p Period) Prev() Period {
	start := p.Start.AddDate(0, -1, 0)
	return Period{Start: start, End: p.Start}
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Label formats the period as YYYY-MM.
func (p Period) Label() string {
	return p.Start.Format("2006-01")
}
