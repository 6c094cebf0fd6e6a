// Package calendar maps teaching weeks of an academic period to calendar dates
// and renders the weekly course calendar workbook.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hyperjump/silabo/internal/config"
)

// DateLayout is the ISO calendar date format used in configuration and output records.
const DateLayout = "2006-01-02"

var (
	// ErrUnknownPeriod is returned when a period has no configured dates.
	ErrUnknownPeriod = errors.New("unknown period")
	// ErrInvalidWeekRange is returned for non-positive weeks or a start week after the end week.
	ErrInvalidWeekRange = errors.New("invalid week range")
)

// weekSpan is the number of days from Monday to Saturday.
const weekSpan = 5

// Period holds the configured term boundaries. Range starts are anchored on
// Start and range ends on End.
type Period struct {
	Start time.Time
	End   time.Time
}

// Resolver answers date questions for the configured periods. It is safe for
// concurrent use once built.
type Resolver struct {
	periods map[string]Period
}

// NewResolver creates a resolver over periods keyed by "YYYY-T".
func NewResolver(periods map[string]Period) *Resolver {
	m := make(map[string]Period, len(periods))
	for k, v := range periods {
		m[k] = v
	}
	return &Resolver{periods: m}
}

// FromConfig builds a resolver from the configured period table.
func FromConfig(periods map[string]config.PeriodConfig) (*Resolver, error) {
	m := make(map[string]Period, len(periods))
	for key, p := range periods {
		start, end, err := p.Dates()
		if err != nil {
			return nil, fmt.Errorf("period %s: %w", key, err)
		}
		m[key] = Period{Start: start, End: end}
	}
	return &Resolver{periods: m}, nil
}

// Periods returns the configured period keys, sorted.
func (r *Resolver) Periods() []string {
	keys := make([]string, 0, len(r.periods))
	for k := range r.periods {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether period is configured.
func (r *Resolver) Has(period string) bool {
	_, ok := r.periods[period]
	return ok
}

func (r *Resolver) lookup(period string) (Period, error) {
	p, ok := r.periods[period]
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
	return p, nil
}

// Week returns the first and last day of teaching week w: start_date + (w-1)
// weeks, and that day plus five days.
func (r *Resolver) Week(period string, w int) (time.Time, time.Time, error) {
	if w < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: week %d", ErrInvalidWeekRange, w)
	}
	p, err := r.lookup(period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := addWeeks(p.Start, w-1)
	return start, start.AddDate(0, 0, weekSpan), nil
}

// Range returns the dates of weeks w1..w2. The start is start_date + (w1-1)
// weeks; the end is end_date + (w2-1) weeks.
func (r *Resolver) Range(period string, w1, w2 int) (time.Time, time.Time, error) {
	if w1 < 1 || w2 < 1 || w1 > w2 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %d-%d", ErrInvalidWeekRange, w1, w2)
	}
	p, err := r.lookup(period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return addWeeks(p.Start, w1-1), addWeeks(p.End, w2-1), nil
}

func addWeeks(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, 7*n)
}
