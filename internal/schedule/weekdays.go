package schedule

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"time"
)

// WeekdaySet is the set of weekdays a series airs on. Bit n is set when
// time.Weekday(n) is a member (0 = Sunday).
type WeekdaySet uint8

const allWeekdays WeekdaySet = 1<<7 - 1

// NewWeekdaySet builds a set from the supplied weekdays. Out-of-range values
// are ignored.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var set WeekdaySet
	for _, day := range days {
		set = set.With(day)
	}
	return set
}

// With returns a copy of s that also contains day.
func (s WeekdaySet) With(day time.Weekday) WeekdaySet {
	if day < time.Sunday || day > time.Saturday {
		return s
	}
	return s | 1<<uint(day)
}

// Has reports whether day is in the set.
func (s WeekdaySet) Has(day time.Weekday) bool {
	if day < time.Sunday || day > time.Saturday {
		return false
	}
	return s&(1<<uint(day)) != 0
}

// Empty reports whether no weekday is set.
func (s WeekdaySet) Empty() bool {
	return s&allWeekdays == 0
}

// Len returns the number of weekdays in the set.
func (s WeekdaySet) Len() int {
	return bits.OnesCount8(uint8(s & allWeekdays))
}

// Days returns the members in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, s.Len())
	for day := time.Sunday; day <= time.Saturday; day++ {
		if s.Has(day) {
			days = append(days, day)
		}
	}
	return days
}

// Ints returns the members as 0..6 integers, the form used by the API.
func (s WeekdaySet) Ints() []int {
	days := s.Days()
	out := make([]int, len(days))
	for i, day := range days {
		out[i] = int(day)
	}
	return out
}

// String renders the set as comma-separated weekday numbers ("1,3,5").
func (s WeekdaySet) String() string {
	days := s.Days()
	parts := make([]string, len(days))
	for i, day := range days {
		parts[i] = strconv.Itoa(int(day))
	}
	return strings.Join(parts, ",")
}

// Label renders the set with short weekday names ("Mon, Wed, Fri").
func (s WeekdaySet) Label() string {
	days := s.Days()
	if len(days) == 0 {
		return "-"
	}
	parts := make([]string, len(days))
	for i, day := range days {
		parts[i] = day.String()[:3]
	}
	return strings.Join(parts, ", ")
}

// WeekdaysFromInts converts API weekday numbers into a set.
func WeekdaysFromInts(values []int) (WeekdaySet, error) {
	var set WeekdaySet
	for _, value := range values {
		if value < 0 || value > 6 {
			return 0, fmt.Errorf("weekday %d out of range 0..6", value)
		}
		set = set.With(time.Weekday(value))
	}
	return set, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekdays parses a comma or space separated list of weekday numbers
// (0 = Sunday) or names. An empty string yields the empty set.
func ParseWeekdays(value string) (WeekdaySet, error) {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';' || r == '\t'
	})
	var set WeekdaySet
	for _, field := range fields {
		token := strings.ToLower(strings.TrimSpace(field))
		if n, err := strconv.Atoi(token); err == nil {
			if n < 0 || n > 6 {
				return 0, fmt.Errorf("weekday %d out of range 0..6", n)
			}
			set = set.With(time.Weekday(n))
			continue
		}
		day, ok := weekdayNames[token]
		if !ok {
			return 0, fmt.Errorf("unknown weekday %q", field)
		}
		set = set.With(day)
	}
	return set, nil
}
