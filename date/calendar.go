package date

import (
	"iter"
	"slices"
	"sort"
)

// Calendar is a sorted set of valid trading days. It drives partition
// enumeration for assets keyed by trade date rather than calendar date.
type Calendar struct {
	days []Date
}

// NewCalendar builds a calendar from the given days, deduplicated and sorted.
func NewCalendar(days ...Date) *Calendar {
	c := &Calendar{days: slices.Clone(days)}
	sort.Slice(c.days, func(i, j int) bool { return c.days[i].Before(c.days[j]) })
	c.days = slices.Compact(c.days)
	return c
}

// Len returns the number of days in the calendar.
func (c *Calendar) Len() int { return len(c.days) }

// Contains reports whether d is a trading day.
func (c *Calendar) Contains(d Date) bool {
	i := sort.Search(len(c.days), func(i int) bool { return !c.days[i].Before(d) })
	return i < len(c.days) && c.days[i] == d
}

// Latest returns the most recent trading day not after d.
// The boolean is false when the calendar has no such day.
func (c *Calendar) Latest(d Date) (Date, bool) {
	i := sort.Search(len(c.days), func(i int) bool { return c.days[i].After(d) })
	if i == 0 {
		return Date{}, false
	}
	return c.days[i-1], true
}

// Between returns an iterator over trading days in [from, to], ascending.
func (c *Calendar) Between(from, to Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		i := sort.Search(len(c.days), func(i int) bool { return !c.days[i].Before(from) })
		for ; i < len(c.days) && !c.days[i].After(to); i++ {
			if !yield(c.days[i]) {
				return
			}
		}
	}
}

// Last returns an iterator over the n most recent trading days not after d,
// ascending. Fewer than n are yielded when the calendar is short.
func (c *Calendar) Last(n int, d Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		end := sort.Search(len(c.days), func(i int) bool { return c.days[i].After(d) })
		start := end - n
		if start < 0 {
			start = 0
		}
		for i := start; i < end; i++ {
			if !yield(c.days[i]) {
				return
			}
		}
	}
}

// Weekdays returns a calendar of all Monday-to-Friday days in [from, to].
// It is the fallback when no exchange calendar is supplied.
func Weekdays(from, to Date) *Calendar {
	var days []Date
	for d := from; !d.After(to); d = d.Add(1) {
		if wd := d.Weekday(); wd != 0 && wd != 6 {
			days = append(days, d)
		}
	}
	return NewCalendar(days...)
}
