// Package dividends holds the per-year dividend ledger for each equity and
// reduces it into the trailing-window statistics the valuation layer consumes.
package dividends

// Entry is one year's total dividend distribution for an equity.
type Entry struct {
	Year   int     `json:"year"`
	Amount float64 `json:"amount"`
}

// TrailingStats are the trailing-window statistics derived from an equity's
// dividend history. These are normally precomputed by the data provider; the
// aggregator reproduces the same contract for client-side consistency checks.
type TrailingStats struct {
	// AverageDividend is the arithmetic mean dividend amount over the window.
	AverageDividend float64 `json:"average_dividend"`
	// AverageYieldPercent is the mean of per-year yields over the window,
	// where each year's yield is that year's dividend over the CURRENT price
	// (not the year's historical price), expressed as a percentage.
	AverageYieldPercent float64 `json:"average_yield_percent"`
	// Years is the number of years the window actually covered.
	Years int `json:"years"`
}
