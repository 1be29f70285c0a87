package core

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	MinYear = 1900
	MaxYear = 3000
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Month is a validated calendar month.
type Month struct {
	Year   int
	Number int
}

// ParseMonth validates a YYYY-MM string.
//
// Structure is checked first, then the month number, then the year, so
// "2026-13" fails on MONTH_RANGE and "1800-01" on MONTH_YEAR_RANGE.
func ParseMonth(s string) (Month, error) {
	if !monthPattern.MatchString(s) {
		return Month{}, ErrMonthFormat
	}
	year, _ := strconv.Atoi(s[:4])
	number, _ := strconv.Atoi(s[5:])
	if number < 1 || number > 12 {
		return Month{}, ErrMonthRange
	}
	if year < MinYear || year > MaxYear {
		return Month{}, ErrMonthYearRange
	}
	return Month{Year: year, Number: number}, nil
}

// MonthOf returns the month containing d.
func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Number: int(d.Month())}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Number)
}

// Range returns the inclusive first and last calendar day of the month.
func (m Month) Range() (Date, Date) {
	first := NewDate(m.Year, m.Number, 1)
	last := Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}

// Day returns the given day of the month.
func (m Month) Day(day int) Date {
	return NewDate(m.Year, m.Number, day)
}

// Previous returns the month before m.
func (m Month) Previous() Month {
	if m.Number == 1 {
		return Month{Year: m.Year - 1, Number: 12}
	}
	return Month{Year: m.Year, Number: m.Number - 1}
}

// CurrentMonth returns the month of now in UTC.
func CurrentMonth(now time.Time) Month {
	now = now.UTC()
	return Month{Year: now.Year(), Number: int(now.Month())}
}

// LastMonths lists n months ending at from, most recent first.
func LastMonths(n int, from Month) []Month {
	if n <= 0 {
		return nil
	}
	out := make([]Month, 0, n)
	cur := from
	for range n {
		out = append(out, cur)
		cur = cur.Previous()
	}
	return out
}
