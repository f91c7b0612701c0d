package dividends

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// trailingWindowYears is the number of most recent distinct years considered
// by the trailing statistics and the consistency predicate.
const trailingWindowYears = 5

// Trailing reduces a dividend history into trailing-window statistics.
// The window is the most recent trailingWindowYears distinct years present in
// the history; when fewer exist, all available years are used. An empty
// history yields zero statistics, never an error, and a zero current price
// fails the yield computation closed to 0.
func Trailing(history []Entry, currentPrice float64) TrailingStats {
	window := trailingWindow(history)
	if len(window) == 0 {
		return TrailingStats{}
	}

	amounts := make([]float64, len(window))
	for i, e := range window {
		amounts[i] = e.Amount
	}

	stats := TrailingStats{
		AverageDividend: stat.Mean(amounts, nil),
		Years:           len(window),
	}

	if currentPrice != 0 {
		yields := make([]float64, len(window))
		for i, e := range window {
			yields[i] = (e.Amount / currentPrice) * 100
		}
		stats.AverageYieldPercent = stat.Mean(yields, nil)
	}

	return stats
}

// Consistent reports whether every one of the trailing window years has a
// positive dividend. Fewer than trailingWindowYears available years fails the
// predicate by definition.
func Consistent(history []Entry) bool {
	window := trailingWindow(history)
	if len(window) < trailingWindowYears {
		return false
	}
	for _, e := range window {
		if e.Amount <= 0 {
			return false
		}
	}
	return true
}

// trailingWindow returns up to trailingWindowYears entries, one per distinct
// year, most recent first. Input order is irrelevant; duplicate years keep
// the first entry seen (the contract guarantees at most one per year).
func trailingWindow(history []Entry) []Entry {
	byYear := make(map[int]Entry, len(history))
	years := make([]int, 0, len(history))
	for _, e := range history {
		if _, seen := byYear[e.Year]; seen {
			continue
		}
		byYear[e.Year] = e
		years = append(years, e.Year)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	if len(years) > trailingWindowYears {
		years = years[:trailingWindowYears]
	}

	window := make([]Entry, len(years))
	for i, y := range years {
		window[i] = byYear[y]
	}
	return window
}
