// Package frequency computes recurring due dates from frequency rules.
//
// All functions are pure: they take and return UTC calendar dates and never
// touch storage or the clock. Rules are validated when they are created, so
// the calculators never fail; a malformed rule falls through to a documented
// default cadence instead.
package frequency

import (
	"fmt"
	"strings"
	"time"
)

// Type is the family a rule belongs to.
type Type string

const (
	TypeStandard       Type = "standard"
	TypeExactDay       Type = "exact_day"
	TypeOrdinalWeekday Type = "ordinal_weekday"
)

// Named standard cadences.
const (
	Weekly       = "Weekly"
	BiWeekly     = "Bi-Weekly"
	Every4Weeks  = "Every 4 Weeks"
	SemiMonthly  = "Semi-Monthly"
	Monthly      = "Monthly"
	MonthlyVar   = "Monthly (Variable Day)"
	Quarterly    = "Quarterly"
	SemiAnnual   = "Semi-Annual"
	Annual       = "Annual"
	OneTime      = "One-Time"
	Irregular    = "Irregular"
	irregularGap = 30
)

// Rule describes how a recurring item repeats.
type Rule struct {
	Type         Type
	Name         string
	IntervalDays int
	DayOfMonth   int
	IsLastDay    bool
	Weekday      int // 1=Mon..5=Fri
	Ordinal      int // 1..5
}

// Validate reports whether the rule can drive the calculators.
func (r Rule) Validate() error {
	switch r.Type {
	case TypeStandard:
		if r.IntervalDays > 0 {
			return nil
		}
		if r.IntervalDays < 0 {
			return fmt.Errorf("interval_days must be positive")
		}
		if !knownName(r.Name) {
			return fmt.Errorf("unknown standard cadence %q", r.Name)
		}
	case TypeExactDay:
		if !r.IsLastDay && (r.DayOfMonth < 1 || r.DayOfMonth > 31) {
			return fmt.Errorf("day_of_month must be between 1 and 31")
		}
	case TypeOrdinalWeekday:
		if r.Weekday < 1 || r.Weekday > 5 {
			return fmt.Errorf("weekday must be between 1 (Mon) and 5 (Fri)")
		}
		if r.Ordinal < 1 || r.Ordinal > 5 {
			return fmt.Errorf("ordinal must be between 1 and 5")
		}
	default:
		return fmt.Errorf("unknown frequency type %q", r.Type)
	}
	return nil
}

func knownName(name string) bool {
	switch name {
	case Weekly, BiWeekly, Every4Weeks, SemiMonthly, Monthly, MonthlyVar,
		Quarterly, SemiAnnual, Annual, OneTime, Irregular:
		return true
	}
	return false
}

// Date truncates t to a UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EndOfMonth returns the last calendar day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), DaysIn(t.Year(), t.Month()), 0, 0, 0, 0, time.UTC)
}

// AddMonths adds n calendar months to d, clamping the day to the target month's
// last day. Jan 31 plus one month is Feb 28 (or 29), never Mar 3.
func AddMonths(d time.Time, n int) time.Time {
	first := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day()
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// NextDateFrom returns the occurrence that follows date under rule.
func NextDateFrom(rule Rule, date time.Time) time.Time {
	date = Date(date)
	switch rule.Type {
	case TypeStandard:
		return nextStandard(rule, date)
	case TypeExactDay:
		return nextExactDay(rule, date)
	case TypeOrdinalWeekday:
		return nextOrdinalWeekday(rule, date)
	default:
		return date.AddDate(0, 0, irregularGap)
	}
}

func nextStandard(rule Rule, date time.Time) time.Time {
	if rule.IntervalDays > 0 {
		return date.AddDate(0, 0, rule.IntervalDays)
	}
	switch rule.Name {
	case SemiMonthly:
		if date.Day() < 15 {
			return time.Date(date.Year(), date.Month(), 15, 0, 0, 0, 0, time.UTC)
		}
		return time.Date(date.Year(), date.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	case Monthly, MonthlyVar:
		return AddMonths(date, 1)
	case Quarterly:
		return AddMonths(date, 3)
	case SemiAnnual:
		return AddMonths(date, 6)
	case Annual:
		return AddMonths(date, 12)
	case OneTime:
		return date
	case Irregular:
		return date.AddDate(0, 0, irregularGap)
	default:
		return AddMonths(date, 1)
	}
}

func nextExactDay(rule Rule, date time.Time) time.Time {
	next := AddMonths(date, 1)
	return dayInMonth(rule, next.Year(), next.Month())
}

func dayInMonth(rule Rule, year int, month time.Month) time.Time {
	last := DaysIn(year, month)
	if rule.IsLastDay {
		return time.Date(year, month, last, 0, 0, 0, 0, time.UTC)
	}
	day := rule.DayOfMonth
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func nextOrdinalWeekday(rule Rule, date time.Time) time.Time {
	next := AddMonths(time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC), 1)
	return ordinalInMonth(rule, next.Year(), next.Month())
}

// ordinalInMonth finds the rule's Nth weekday in the month. When the Nth
// occurrence does not exist the result is first + clamp(ordinal-2, 0, 3) weeks.
func ordinalInMonth(rule Rule, year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	target := time.Weekday(rule.Weekday % 7)
	offset := (int(target) - int(first.Weekday()) + 7) % 7
	firstOcc := first.AddDate(0, 0, offset)

	ordinal := rule.Ordinal
	if ordinal < 1 {
		ordinal = 1
	}
	result := firstOcc.AddDate(0, 0, (ordinal-1)*7)
	if result.Month() == month {
		return result
	}
	fallback := ordinal - 2
	if fallback < 0 {
		fallback = 0
	}
	if fallback > 3 {
		fallback = 3
	}
	return firstOcc.AddDate(0, 0, fallback*7)
}

// FallsInMonth reports whether an obligation that started on start has an
// occurrence in the given month under rule.
func FallsInMonth(rule Rule, start time.Time, year int, month time.Month) bool {
	start = Date(start)
	monthEnd := time.Date(year, month, DaysIn(year, month), 0, 0, 0, 0, time.UTC)
	if start.After(monthEnd) {
		return false
	}
	if rule.Type == TypeExactDay || rule.Type == TypeOrdinalWeekday {
		return true
	}
	if rule.Type != TypeStandard || rule.IntervalDays > 0 {
		return true
	}

	monthsDiff := (year-start.Year())*12 + int(month) - int(start.Month())
	switch rule.Name {
	case Quarterly:
		return monthsDiff >= 0 && monthsDiff%3 == 0
	case SemiAnnual:
		return monthsDiff >= 0 && monthsDiff%6 == 0
	case Annual:
		return month == start.Month() && year >= start.Year()
	case OneTime:
		return year == start.Year() && month == start.Month()
	default:
		return true
	}
}

// DueDateInMonth projects the obligation's due date inside the given month.
// A positive dueDay wins over the rule and is clamped to the month's length.
func DueDateInMonth(rule Rule, start time.Time, dueDay int, year int, month time.Month) time.Time {
	if dueDay > 0 {
		return dayInMonth(Rule{DayOfMonth: dueDay}, year, month)
	}
	switch rule.Type {
	case TypeExactDay:
		return dayInMonth(rule, year, month)
	case TypeOrdinalWeekday:
		return ordinalInMonth(rule, year, month)
	default:
		return dayInMonth(Rule{DayOfMonth: Date(start).Day()}, year, month)
	}
}

// Describe renders a short human label for a rule.
func (r Rule) Describe() string {
	switch r.Type {
	case TypeExactDay:
		if r.IsLastDay {
			return "Last day of month"
		}
		return fmt.Sprintf("Day %d of month", r.DayOfMonth)
	case TypeOrdinalWeekday:
		ordinals := []string{"", "1st", "2nd", "3rd", "4th", "5th"}
		days := []string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
		if r.Ordinal >= 1 && r.Ordinal <= 5 && r.Weekday >= 1 && r.Weekday <= 5 {
			return ordinals[r.Ordinal] + " " + days[r.Weekday]
		}
	case TypeStandard:
		if r.IntervalDays > 0 {
			return fmt.Sprintf("Every %d days", r.IntervalDays)
		}
	}
	return strings.TrimSpace(r.Name)
}
