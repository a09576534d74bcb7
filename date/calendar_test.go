package date

import (
	"slices"
	"testing"
	"time"
)

func TestCalendarBetween(t *testing.T) {
	c := NewCalendar(
		New(2020, time.January, 2),
		New(2020, time.January, 3),
		New(2020, time.January, 6),
		New(2020, time.January, 3), // duplicate, must be dropped
	)
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	var got []string
	for d := range c.Between(New(2020, time.January, 3), New(2020, time.January, 6)) {
		got = append(got, d.Key())
	}
	want := []string{"20200103", "20200106"}
	if !slices.Equal(got, want) {
		t.Errorf("Between() = %v, want %v", got, want)
	}
}

func TestCalendarLatest(t *testing.T) {
	c := NewCalendar(New(2020, time.January, 2), New(2020, time.January, 6))

	if d, ok := c.Latest(New(2020, time.January, 5)); !ok || d != New(2020, time.January, 2) {
		t.Errorf("Latest(jan 5) = %v, %v; want jan 2, true", d, ok)
	}
	if _, ok := c.Latest(New(2020, time.January, 1)); ok {
		t.Errorf("Latest(jan 1) = _, true; want false")
	}
}

func TestCalendarLast(t *testing.T) {
	c := NewCalendar(
		New(2020, time.January, 2),
		New(2020, time.January, 3),
		New(2020, time.January, 6),
		New(2020, time.January, 7),
	)
	var got []string
	for d := range c.Last(2, New(2020, time.January, 6)) {
		got = append(got, d.Key())
	}
	want := []string{"20200103", "20200106"}
	if !slices.Equal(got, want) {
		t.Errorf("Last(2) = %v, want %v", got, want)
	}
}

func TestWeekdays(t *testing.T) {
	// 2020-01-04 is a Saturday, 2020-01-05 a Sunday.
	c := Weekdays(New(2020, time.January, 2), New(2020, time.January, 7))
	if c.Contains(New(2020, time.January, 4)) {
		t.Error("Weekdays() contains a Saturday")
	}
	if !c.Contains(New(2020, time.January, 6)) {
		t.Error("Weekdays() is missing a Monday")
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
}
