package screener

import (
	"sort"
	"strings"

	"github.com/fatiainvest/screener/internal/modules/identity"
	"github.com/fatiainvest/screener/internal/modules/valuation"
)

// ErrAuthRequired signals that the requested view needs an authenticated
// identity. Callers must surface a "login required" state, never an "empty
// watchlist" state; the two are distinguishable on purpose.
var ErrAuthRequired = identity.ErrAuthRequired

// Inputs is the atomic snapshot a single recompute observes. A recompute must
// never see a torn mix of pre- and post-update values across these fields;
// the session service builds one Inputs value under its lock per trigger.
type Inputs struct {
	Equities []Equity
	Search   string
	Mode     FilterMode
	Profile  valuation.Profile

	// Watchlist membership for the session's user. Meaningful only when
	// Authenticated is true: an unauthenticated session has no membership at
	// all, which is a distinct state from an authenticated empty set.
	Watchlist     map[string]struct{}
	Authenticated bool
}

// Pipeline produces the ordered list of visible equities. The suppression
// list is injected so it can be tested and varied without code edits.
type Pipeline struct {
	suppressed map[string]struct{}
}

// NewPipeline creates a pipeline with the given operator-curated suppression
// list (tickers hidden from every mode unconditionally).
func NewPipeline(suppressed map[string]struct{}) *Pipeline {
	if suppressed == nil {
		suppressed = map[string]struct{}{}
	}
	return &Pipeline{suppressed: suppressed}
}

// Visible runs the stage pipeline in strict order: hide zero price, drop
// suppressed tickers, apply search, annotate for the active profile, then
// apply the filter mode. Every stage is total: empty input yields an empty
// list. The only error is ErrAuthRequired for watchlist mode without an
// identity.
func (p *Pipeline) Visible(in Inputs) ([]View, error) {
	if in.Mode == ModeWatchlist && !in.Authenticated {
		return nil, ErrAuthRequired
	}

	kept := make([]Equity, 0, len(in.Equities))
	for _, e := range in.Equities {
		if e.CurrentPrice == 0 {
			continue
		}
		if _, hidden := p.suppressed[e.Ticker]; hidden {
			continue
		}
		if !matchesSearch(e, in.Search) {
			continue
		}
		kept = append(kept, e)
	}

	views := make([]View, len(kept))
	for i, e := range kept {
		views[i] = annotate(e, in.Profile)
	}

	switch in.Mode {
	case ModeHighestYield:
		return selectHighestYield(views), nil
	case ModeOpportunity:
		return selectOpportunities(views), nil
	case ModeWatchlist:
		return selectWatchlist(views, in.Watchlist), nil
	default:
		// Pass through; output order is input order.
		return views, nil
	}
}

// annotate attaches the profile-derived metrics to a record. ActiveCeiling is
// recomputed here on every call; it is never carried over from a previous
// profile.
func annotate(e Equity, profile valuation.Profile) View {
	ceiling := valuation.SelectCeiling(e.Ceilings(), profile)
	price := &e.CurrentPrice
	return View{
		Equity:                 e,
		ActiveCeiling:          ceiling,
		VariationPercent:       valuation.VariationPercent(price, ceiling),
		YieldProjectionPercent: valuation.YieldProjectionPercent(e.AverageDividend, price),
		VariationSeverity:      valuation.VariationSeverity(price, ceiling),
	}
}

// matchesSearch reports whether the record matches the free-text term with a
// case-insensitive substring test over ticker and company name. An empty term
// matches everything; a missing company name is treated as empty.
func matchesSearch(e Equity, term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	return strings.Contains(strings.ToLower(e.Ticker), needle) ||
		strings.Contains(strings.ToLower(e.CompanyName), needle)
}

// selectHighestYield drops records without a positive average yield, then
// sorts descending by yield. The sort must be stable: the provider does not
// guarantee a canonical tie-break, so ties retain their relative input order.
func selectHighestYield(views []View) []View {
	kept := make([]View, 0, len(views))
	for _, v := range views {
		if v.AverageYieldPercent != nil && *v.AverageYieldPercent > 0 {
			kept = append(kept, v)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return *kept[i].AverageYieldPercent > *kept[j].AverageYieldPercent
	})
	return kept
}

// selectOpportunities keeps equities trading at or below their active ceiling
// with an average yield strictly above the threshold. A record missing any of
// the three required fields is excluded, never coerced to a default that
// would make it falsely pass. No reordering beyond the filter.
func selectOpportunities(views []View) []View {
	kept := make([]View, 0, len(views))
	for _, v := range views {
		if v.CurrentPrice == 0 || v.ActiveCeiling == nil || v.AverageYieldPercent == nil {
			continue
		}
		if v.CurrentPrice <= *v.ActiveCeiling && *v.AverageYieldPercent > opportunityYieldThreshold {
			kept = append(kept, v)
		}
	}
	return kept
}

// selectWatchlist keeps only watchlist members. The suppression and
// zero-price stages already ran, so a watchlisted ticker with a dead quote is
// hidden here too, not merely de-prioritized.
func selectWatchlist(views []View, membership map[string]struct{}) []View {
	kept := make([]View, 0, len(views))
	for _, v := range views {
		if _, ok := membership[v.Ticker]; ok {
			kept = append(kept, v)
		}
	}
	return kept
}
