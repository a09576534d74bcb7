package date

import (
	"slices"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2020-03-31", want: New(2020, time.March, 31)},
		{in: "2020-3-31", want: New(2020, time.March, 31)},
		{in: "20200331", want: New(2020, time.March, 31)},
		{in: "not-a-date", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if err == nil && got != tc.want {
				t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	d := New(2020, time.March, 31)
	if got := d.Key(); got != "20200331" {
		t.Errorf("Key() = %q, want %q", got, "20200331")
	}
}

func TestEndOfQuarter(t *testing.T) {
	testCases := []struct {
		name string
		in   Date
		want Date
	}{
		{name: "Q1", in: New(2020, time.February, 15), want: New(2020, time.March, 31)},
		{name: "Q2", in: New(2020, time.April, 1), want: New(2020, time.June, 30)},
		{name: "Q3", in: New(2020, time.September, 30), want: New(2020, time.September, 30)},
		{name: "Q4", in: New(2020, time.October, 1), want: New(2020, time.December, 31)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.EndOf(Quarterly); got != tc.want {
				t.Errorf("EndOf(Quarterly) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEnds_Quarterly(t *testing.T) {
	var got []string
	for d := range Ends(Quarterly, New(2020, time.January, 1), New(2020, time.December, 31)) {
		got = append(got, d.Key())
	}
	want := []string{"20200331", "20200630", "20200930", "20201231"}
	if !slices.Equal(got, want) {
		t.Errorf("Ends(Quarterly, 2020) = %v, want %v", got, want)
	}
}

func TestEnds_QuarterlyPartialRange(t *testing.T) {
	// The boundary quarters are included even when the range starts mid-quarter.
	var got []string
	for d := range Ends(Quarterly, New(2019, time.November, 12), New(2020, time.May, 3)) {
		got = append(got, d.Key())
	}
	want := []string{"20191231", "20200331", "20200630"}
	if !slices.Equal(got, want) {
		t.Errorf("Ends(Quarterly) = %v, want %v", got, want)
	}
}

func TestEnds_Daily(t *testing.T) {
	var got []string
	for d := range Ends(Daily, New(2020, time.January, 30), New(2020, time.February, 2)) {
		got = append(got, d.Key())
	}
	want := []string{"20200130", "20200131", "20200201", "20200202"}
	if !slices.Equal(got, want) {
		t.Errorf("Ends(Daily) = %v, want %v", got, want)
	}
}

func TestEnds_EmptyRange(t *testing.T) {
	for d := range Ends(Quarterly, New(2021, time.January, 1), New(2020, time.January, 1)) {
		t.Fatalf("unexpected date %v for inverted range", d)
	}
}

func TestQuarter(t *testing.T) {
	if q := New(2020, time.March, 31).Quarter(); q != 1 {
		t.Errorf("Quarter() = %d, want 1", q)
	}
	if q := New(2020, time.December, 1).Quarter(); q != 4 {
		t.Errorf("Quarter() = %d, want 4", q)
	}
}

func TestRangeIdentifier(t *testing.T) {
	testCases := []struct {
		name string
		in   Range
		want string
	}{
		{name: "quarter", in: NewRange(New(2020, time.February, 10), Quarterly), want: "2020Q1"},
		{name: "month", in: NewRange(New(2020, time.February, 10), Monthly), want: "2020-02"},
		{name: "day", in: NewRange(New(2020, time.February, 10), Daily), want: "2020-02-10"},
		{name: "year", in: NewRange(New(2020, time.February, 10), Yearly), want: "2020"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Identifier(); got != tc.want {
				t.Errorf("Identifier() = %q, want %q", got, tc.want)
			}
		})
	}
}
