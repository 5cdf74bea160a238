// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package timeseries

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDate indicates a date string that is neither YYYY-MM nor YYYY-MM-DD
	ErrInvalidDate = errors.New("invalid date, use YYYY-MM or YYYY-MM-DD")
	// ErrInvalidRange indicates a range whose start lies after its end
	ErrInvalidRange = errors.New("range start must not be after range end")
)

// DateRange is an inclusive span of calendar days, normalized to UTC midnights
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewRange returns a DateRange for the given days, normalized to UTC midnight
func NewRange(start, end time.Time) (DateRange, error) {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseRange parses the from/to date strings into a DateRange. Both accept
// day granularity (YYYY-MM-DD) and month granularity (YYYY-MM); a month-only
// start expands to the first day of that month, a month-only end to the last.
func ParseRange(from, to string) (DateRange, error) {
	start, _, err := parseDate(from)
	if err != nil {
		return DateRange{}, err
	}
	end, monthOnly, err := parseDate(to)
	if err != nil {
		return DateRange{}, err
	}
	if monthOnly {
		// last day of the end month
		end = end.AddDate(0, 1, -1)
	}
	return NewRange(start, end)
}

// Days returns every calendar day the range spans, ascending
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for day := r.Start; !day.After(r.End); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// String returns the range in its canonical YYYY-MM-DD..YYYY-MM-DD form
func (r DateRange) String() string {
	return r.Start.Format(time.DateOnly) + ".." + r.End.Format(time.DateOnly)
}

// Day truncates the given instant to its UTC calendar day
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDate(value string) (parsed time.Time, monthOnly bool, err error) {
	if t, perr := time.ParseInLocation(time.DateOnly, value, time.UTC); perr == nil {
		return t, false, nil
	}
	if t, perr := time.ParseInLocation("2006-01", value, time.UTC); perr == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}
