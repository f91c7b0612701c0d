package screener

import "github.com/fatiainvest/screener/internal/modules/valuation"

// State is the session's screening state after a recompute. Focused is the
// ticker shown in the detail panel, empty when nothing is focused. Visible is
// the derived list the focus rules were evaluated against, so list and focus
// always come from the same snapshot.
type State struct {
	Search  string
	Mode    FilterMode
	Profile valuation.Profile
	Focused string
	Visible []View

	// AuthRequired is set when the current mode needs an identity the session
	// does not have. It is a distinct signal from an empty visible list.
	AuthRequired bool
}

// TriggerKind identifies the external event driving a recompute.
type TriggerKind int

const (
	TriggerDataLoaded TriggerKind = iota
	TriggerSearchChanged
	TriggerModeChanged
	TriggerProfileChanged
	TriggerWatchlistChanged
	TriggerClicked
)

// Trigger is one recompute event. Only the field matching the kind is read.
type Trigger struct {
	Kind    TriggerKind
	Search  string
	Mode    FilterMode
	Profile valuation.Profile
	Ticker  string
}

// Reduce applies one trigger to the previous state and derives the next state
// in a single pass: update the changed input, compute the visible list once,
// then evaluate the focus rules in fixed priority order. Deriving list and
// focus together is what guarantees no inconsistent intermediate state can be
// observed between them.
func (p *Pipeline) Reduce(prev State, tr Trigger, equities []Equity, watchlist map[string]struct{}, authenticated bool) State {
	next := prev
	switch tr.Kind {
	case TriggerSearchChanged:
		next.Search = tr.Search
	case TriggerModeChanged:
		next.Mode = tr.Mode
	case TriggerProfileChanged:
		next.Profile = tr.Profile
	}
	if next.Mode == "" {
		next.Mode = ModeNone
	}

	visible, authRequired := p.visibleForState(next, equities, watchlist, authenticated)

	// A user-entered search that empties the list under a non-none mode
	// forces the mode back to none, so search and filter can never jointly
	// exclude everything silently. Fires only on that transition; repeating
	// the search under none changes nothing further.
	if tr.Kind == TriggerSearchChanged && next.Search != "" &&
		len(visible) == 0 && !authRequired && next.Mode != ModeNone {
		next.Mode = ModeNone
		visible, authRequired = p.visibleForState(next, equities, watchlist, authenticated)
	}

	switch {
	case tr.Kind == TriggerClicked:
		// An explicit click focuses the listed equity directly, overriding
		// the automatic rules until the next recompute.
		if containsTicker(visible, tr.Ticker) {
			next.Focused = tr.Ticker
		}
	case tr.Kind == TriggerSearchChanged && next.Search != "":
		// A new non-empty search always refocuses to the first match, even
		// when the previously focused equity is still in the results.
		next.Focused = firstTicker(visible)
	default:
		// Focus the first element when nothing is focused yet or the focused
		// ticker disappeared from the full collection upstream.
		if next.Focused == "" || !collectionHas(equities, next.Focused) {
			next.Focused = firstTicker(visible)
		}
	}

	if len(visible) == 0 {
		next.Focused = ""
	}

	next.Visible = visible
	next.AuthRequired = authRequired
	return next
}

func (p *Pipeline) visibleForState(s State, equities []Equity, watchlist map[string]struct{}, authenticated bool) ([]View, bool) {
	visible, err := p.Visible(Inputs{
		Equities:      equities,
		Search:        s.Search,
		Mode:          s.Mode,
		Profile:       s.Profile,
		Watchlist:     watchlist,
		Authenticated: authenticated,
	})
	if err != nil {
		// ErrAuthRequired is the only pipeline error; it renders as an empty
		// list plus the distinct auth signal.
		return nil, true
	}
	return visible, false
}

func firstTicker(views []View) string {
	if len(views) == 0 {
		return ""
	}
	return views[0].Ticker
}

func containsTicker(views []View, ticker string) bool {
	for _, v := range views {
		if v.Ticker == ticker {
			return true
		}
	}
	return false
}

func collectionHas(equities []Equity, ticker string) bool {
	for _, e := range equities {
		if e.Ticker == ticker {
			return true
		}
	}
	return false
}
