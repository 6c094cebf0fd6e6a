package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/silabo/internal/config"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func testResolver() *Resolver {
	return NewResolver(map[string]Period{
		"2025-2": {Start: date("2025-08-18"), End: date("2025-12-01")},
	})
}

func TestResolver_RangeUsesIndependentAnchors(t *testing.T) {
	start, end, err := testResolver().Range("2025-2", 1, 16)
	require.NoError(t, err)
	assert.Equal(t, date("2025-08-18"), start)
	assert.Equal(t, date("2025-12-01").AddDate(0, 0, 15*7), end)
	assert.Equal(t, "2026-03-16", end.Format(DateLayout))
}

func TestResolver_Week(t *testing.T) {
	start, end, err := testResolver().Week("2025-2", 8)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-06", start.Format(DateLayout))
	assert.Equal(t, "2025-10-11", end.Format(DateLayout))
}

func TestResolver_InvalidRanges(t *testing.T) {
	r := testResolver()
	for _, tc := range []struct{ w1, w2 int }{{5, 4}, {16, 1}, {0, 3}, {-1, 2}} {
		_, _, err := r.Range("2025-2", tc.w1, tc.w2)
		assert.ErrorIs(t, err, ErrInvalidWeekRange, "%d-%d", tc.w1, tc.w2)
	}
	for w := 1; w <= 20; w++ {
		_, _, err := r.Range("2025-2", w, w)
		assert.NoError(t, err, "%d-%d", w, w)
	}
	_, _, err := r.Week("2025-2", 0)
	assert.ErrorIs(t, err, ErrInvalidWeekRange)
}

func TestResolver_InvalidRangeRejectedBeforeLookup(t *testing.T) {
	_, _, err := testResolver().Range("1999-1", 3, 2)
	assert.ErrorIs(t, err, ErrInvalidWeekRange)
	assert.NotErrorIs(t, err, ErrUnknownPeriod)
}

func TestResolver_UnknownPeriod(t *testing.T) {
	r := testResolver()
	_, _, err := r.Range("2024-1", 1, 2)
	assert.ErrorIs(t, err, ErrUnknownPeriod)
	_, _, err = r.Week("2024-1", 1)
	assert.ErrorIs(t, err, ErrUnknownPeriod)
	assert.False(t, r.Has("2024-1"))
}

func TestFromConfig(t *testing.T) {
	r, err := FromConfig(map[string]config.PeriodConfig{
		"2025-1": {StartDate: "2025-03-24", EndDate: "2025-07-14"},
		"2025-2": {StartDate: "2025-08-18", EndDate: "2025-12-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-1", "2025-2"}, r.Periods())

	_, err = FromConfig(map[string]config.PeriodConfig{"2025-2": {StartDate: "mañana"}})
	assert.Error(t, err)
}
