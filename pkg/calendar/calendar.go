package calendar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// DateLayout is the ISO calendar-date layout used for holidays and API dates.
const DateLayout = "2006-01-02"

// Calendar decides which calendar days are working days. It is immutable once built.
type Calendar struct {
	holidays map[string]struct{}
	location *time.Location
}

// Option customises a Calendar.
type Option func(*Calendar)

// WithLocation sets the location used to normalise dates. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		if loc != nil {
			c.location = loc
		}
	}
}

// New builds a calendar from a list of YYYY-MM-DD holiday strings.
func New(holidays []string, opts ...Option) (*Calendar, error) {
	c := &Calendar{holidays: make(map[string]struct{}, len(holidays)), location: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	for _, raw := range holidays {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", raw, err)
		}
		c.holidays[d.Format(DateLayout)] = struct{}{}
	}
	return c, nil
}

// Location returns the location dates are normalised into.
func (c *Calendar) Location() *time.Location {
	return c.location
}

// Holidays returns the configured holidays in ascending order.
func (c *Calendar) Holidays() []string {
	out := make([]string, 0, len(c.holidays))
	for d := range c.holidays {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// IsHoliday reports whether the date is listed in the holiday set.
func (c *Calendar) IsHoliday(d time.Time) bool {
	_, ok := c.holidays[FormatDate(d)]
	return ok
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsWorkingDay reports whether the date is neither a weekend day nor a holiday.
func (c *Calendar) IsWorkingDay(d time.Time) bool {
	return !IsWeekend(d) && !c.IsHoliday(d)
}

// WorkingDays returns a lazy iterator over the working days in [start, end].
// An empty iterator is returned when start is after end.
func (c *Calendar) WorkingDays(start, end time.Time) *Iterator {
	return &Iterator{cal: c, next: c.Day(start), end: c.Day(end)}
}

// Collect materialises WorkingDays. Intended for small ranges.
func (c *Calendar) Collect(start, end time.Time) []time.Time {
	var days []time.Time
	it := c.WorkingDays(start, end)
	for d, ok := it.Next(); ok; d, ok = it.Next() {
		days = append(days, d)
	}
	return days
}

// Day truncates t to midnight of its calendar date, keeping the wall-clock date.
func (c *Calendar) Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.location)
}

// Today returns the current calendar day in the calendar location.
func (c *Calendar) Today(now time.Time) time.Time {
	return c.Day(now.In(c.location))
}

// Iterator walks working days one at a time.
type Iterator struct {
	cal  *Calendar
	next time.Time
	end  time.Time
	done bool
}

// Next returns the next working day, or false when the range is exhausted.
func (it *Iterator) Next() (time.Time, bool) {
	if it.done {
		return time.Time{}, false
	}
	for !it.next.After(it.end) {
		current := it.next
		it.next = current.AddDate(0, 0, 1)
		if it.cal.IsWorkingDay(current) {
			return current, true
		}
	}
	it.done = true
	return time.Time{}, false
}

// WeekdayIndex maps a date onto Monday=0 ... Sunday=6.
func WeekdayIndex(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// FormatDate renders the calendar date of d.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// LoadHolidayFile reads one date per line; blank lines and # comments are ignored.
func LoadHolidayFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open holiday file: %w", err)
	}
	defer f.Close()
	return ReadHolidays(f)
}

// ReadHolidays parses the holiday file format from r.
func ReadHolidays(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if idx := strings.Index(text, "#"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if _, err := ParseDate(text); err != nil {
			return nil, fmt.Errorf("holiday line %d: %w", line, err)
		}
		out = append(out, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read holidays: %w", err)
	}
	return out, nil
}

// FromSources builds a calendar from inline holidays plus an optional holiday file.
func FromSources(inline []string, file string, loc *time.Location) (*Calendar, error) {
	holidays := append([]string(nil), inline...)
	if file != "" {
		fromFile, err := LoadHolidayFile(file)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, fromFile...)
	}
	return New(holidays, WithLocation(loc))
}
