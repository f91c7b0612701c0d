package dividends

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrailing_FiveYearWindow(t *testing.T) {
	// Seven years of history; only the five most recent count.
	history := []Entry{
		{Year: 2019, Amount: 100}, // Outside the window
		{Year: 2020, Amount: 100}, // Outside the window
		{Year: 2021, Amount: 1},
		{Year: 2022, Amount: 2},
		{Year: 2023, Amount: 3},
		{Year: 2024, Amount: 4},
		{Year: 2025, Amount: 5},
	}

	stats := Trailing(history, 100)
	assert.Equal(t, 5, stats.Years)
	assert.InDelta(t, 3.0, stats.AverageDividend, 1e-9)
	// Per-year yield over current price: mean of 1..5 over 100, as percent.
	assert.InDelta(t, 3.0, stats.AverageYieldPercent, 1e-9)
}

func TestTrailing_InsertionOrderIrrelevant(t *testing.T) {
	shuffled := []Entry{
		{Year: 2023, Amount: 3},
		{Year: 2019, Amount: 100},
		{Year: 2025, Amount: 5},
		{Year: 2021, Amount: 1},
		{Year: 2024, Amount: 4},
		{Year: 2020, Amount: 100},
		{Year: 2022, Amount: 2},
	}

	stats := Trailing(shuffled, 100)
	assert.InDelta(t, 3.0, stats.AverageDividend, 1e-9)
	assert.Equal(t, 5, stats.Years)
}

func TestTrailing_ShortHistoryUsesAllYears(t *testing.T) {
	history := []Entry{
		{Year: 2024, Amount: 2},
		{Year: 2025, Amount: 4},
	}

	stats := Trailing(history, 50)
	assert.Equal(t, 2, stats.Years)
	assert.InDelta(t, 3.0, stats.AverageDividend, 1e-9)
	assert.InDelta(t, 6.0, stats.AverageYieldPercent, 1e-9)
}

func TestTrailing_Empty(t *testing.T) {
	stats := Trailing(nil, 100)
	assert.Equal(t, TrailingStats{}, stats)
}

func TestTrailing_ZeroPriceFailsYieldClosed(t *testing.T) {
	history := []Entry{{Year: 2025, Amount: 5}}

	stats := Trailing(history, 0)
	assert.InDelta(t, 5.0, stats.AverageDividend, 1e-9)
	assert.Zero(t, stats.AverageYieldPercent)
}

func TestConsistent(t *testing.T) {
	full := []Entry{
		{Year: 2021, Amount: 1},
		{Year: 2022, Amount: 2},
		{Year: 2023, Amount: 3},
		{Year: 2024, Amount: 4},
		{Year: 2025, Amount: 5},
	}
	assert.True(t, Consistent(full))

	// A single zero year in the window fails the predicate.
	withGap := append([]Entry{}, full...)
	withGap[2].Amount = 0
	assert.False(t, Consistent(withGap))

	// Fewer than five available years fails by definition.
	assert.False(t, Consistent(full[1:]))
	assert.False(t, Consistent(nil))

	// Older zero years outside the window do not matter.
	withOldGap := append([]Entry{{Year: 2019, Amount: 0}}, full...)
	assert.True(t, Consistent(withOldGap))
}
