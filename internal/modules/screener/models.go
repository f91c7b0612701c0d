// Package screener selects and orders the visible subset of equities for a
// dashboard session: hide rules, free-text search, named filter modes and the
// focused-equity state machine.
package screener

import (
	"time"

	"github.com/fatiainvest/screener/internal/modules/valuation"
)

// Equity is one raw equity record as returned by the data provider, immutable
// per fetch cycle. Ticker is the primary key for all operations; the provider
// guarantees uniqueness within a snapshot.
type Equity struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
	Sector      string `json:"sector,omitempty"`

	// CurrentPrice of 0 is a sentinel meaning "no active quote" and excludes
	// the equity from every view.
	CurrentPrice float64 `json:"current_price"`

	// The two precomputed fair-value ceilings. Nil when the provider did not
	// supply one.
	CeilingConservative *float64 `json:"ceiling_conservative,omitempty"`
	CeilingAggressive   *float64 `json:"ceiling_aggressive,omitempty"`

	AverageYieldPercent *float64 `json:"average_yield_percent,omitempty"`
	AverageDividend     *float64 `json:"average_dividend,omitempty"`

	LastPriceUpdate *time.Time `json:"last_price_update,omitempty"`
}

// Ceilings returns the record's ceiling pair for profile selection.
func (e Equity) Ceilings() valuation.Ceilings {
	return valuation.Ceilings{
		Conservative: e.CeilingConservative,
		Aggressive:   e.CeilingAggressive,
	}
}

// View is an equity annotated with the metrics derived for the active
// investor profile. Views are rebuilt on every recompute and never persisted;
// in particular ActiveCeiling is always re-selected from the current profile.
type View struct {
	Equity

	ActiveCeiling          *float64           `json:"active_ceiling,omitempty"`
	VariationPercent       string             `json:"variation_percent"`
	YieldProjectionPercent string             `json:"yield_projection_percent"`
	VariationSeverity      valuation.Severity `json:"variation_severity"`
}

// FilterMode is the named filter selecting which equities are listed.
// Session-scoped UI state, never persisted.
type FilterMode string

const (
	ModeNone         FilterMode = "none"
	ModeHighestYield FilterMode = "highest_yield"
	ModeOpportunity  FilterMode = "opportunity"
	ModeWatchlist    FilterMode = "watchlist"
)

// ParseFilterMode validates a wire value.
func ParseFilterMode(s string) (FilterMode, bool) {
	switch FilterMode(s) {
	case ModeNone, ModeHighestYield, ModeOpportunity, ModeWatchlist:
		return FilterMode(s), true
	}
	return ModeNone, false
}

// opportunityYieldThreshold is the minimum average yield (strict, percent) for
// the opportunity mode. An equity qualifies when it trades at or below its
// active ceiling AND yields more than this.
const opportunityYieldThreshold = 6.0
