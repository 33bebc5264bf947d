package schedule_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bhaskara2k/animelista-sub000/internal/schedule"
)

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		input string
		want  []int
	}{
		{input: "1,3,5", want: []int{1, 3, 5}},
		{input: "mon, wed fri", want: []int{1, 3, 5}},
		{input: "Sunday;6", want: []int{0, 6}},
		{input: "0,0,0", want: []int{0}},
		{input: "", want: []int{}},
	}
	for _, tc := range tests {
		set, err := schedule.ParseWeekdays(tc.input)
		if err != nil {
			t.Fatalf("%q: %v", tc.input, err)
		}
		if diff := cmp.Diff(tc.want, set.Ints()); diff != "" {
			t.Fatalf("%q mismatch (-want +got):\n%s", tc.input, diff)
		}
	}

	for _, bad := range []string{"7", "-1", "funday"} {
		if _, err := schedule.ParseWeekdays(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestWeekdaySetFormatting(t *testing.T) {
	set := schedule.NewWeekdaySet(time.Friday, time.Monday, time.Wednesday)
	if got := set.String(); got != "1,3,5" {
		t.Fatalf("String() = %q", got)
	}
	if got := set.Label(); got != "Mon, Wed, Fri" {
		t.Fatalf("Label() = %q", got)
	}
	if got := set.Len(); got != 3 {
		t.Fatalf("Len() = %d", got)
	}
	if got := schedule.WeekdaySet(0).Label(); got != "-" {
		t.Fatalf("empty Label() = %q", got)
	}
	if !schedule.NewWeekdaySet(time.Weekday(9)).Empty() {
		t.Fatal("out of range weekday should be ignored")
	}
}

func TestWeekdaysFromInts(t *testing.T) {
	set, err := schedule.WeekdaysFromInts([]int{6, 0})
	if err != nil {
		t.Fatalf("WeekdaysFromInts: %v", err)
	}
	if !set.Has(time.Saturday) || !set.Has(time.Sunday) || set.Has(time.Monday) {
		t.Fatalf("unexpected set %s", set)
	}
	if _, err := schedule.WeekdaysFromInts([]int{1, 8}); err == nil {
		t.Fatal("expected range error")
	}
}
