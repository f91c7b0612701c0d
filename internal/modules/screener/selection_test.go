package screener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatiainvest/screener/internal/modules/valuation"
)

func testEquities() []Equity {
	return []Equity{
		equity("PETR4", 30, ptr(28), ptr(32), ptr(8)),
		equity("VALE3", 60, ptr(55), ptr(65), ptr(7)),
		equity("BBAS3", 25, ptr(24), ptr(27), ptr(9)),
	}
}

func TestReduceFocusesFirstOnDataLoad(t *testing.T) {
	p := NewPipeline(nil)
	state := p.Reduce(State{Mode: ModeNone}, Trigger{Kind: TriggerDataLoaded}, testEquities(), nil, false)

	assert.Equal(t, "PETR4", state.Focused)
	assert.Len(t, state.Visible, 3)
}

func TestReduceSearchRefocusesToFirstMatch(t *testing.T) {
	p := NewPipeline(nil)
	equities := testEquities()

	state := p.Reduce(State{Mode: ModeNone}, Trigger{Kind: TriggerDataLoaded}, equities, nil, false)
	state = p.Reduce(state, Trigger{Kind: TriggerClicked, Ticker: "BBAS3"}, equities, nil, false)
	require.Equal(t, "BBAS3", state.Focused)

	// A new search refocuses to the first result even though the focused
	// equity still matches.
	state = p.Reduce(state, Trigger{Kind: TriggerSearchChanged, Search: "3"}, equities, nil, false)
	assert.Equal(t, "VALE3", state.Focused)
	assert.Equal(t, []string{"VALE3", "BBAS3"}, tickers(state.Visible))
}

func TestReduceClickOutsideVisibleListIgnored(t *testing.T) {
	p := NewPipeline(nil)
	equities := testEquities()

	state := p.Reduce(State{Mode: ModeNone}, Trigger{Kind: TriggerDataLoaded}, equities, nil, false)
	state = p.Reduce(state, Trigger{Kind: TriggerClicked, Ticker: "UNKNOWN"}, equities, nil, false)
	assert.Equal(t, "PETR4", state.Focused)
}

func TestReduceFocusClearedWhenListEmpties(t *testing.T) {
	p := NewPipeline(nil)
	equities := testEquities()

	state := p.Reduce(State{Mode: ModeNone}, Trigger{Kind: TriggerDataLoaded}, equities, nil, false)
	state = p.Reduce(state, Trigger{Kind: TriggerSearchChanged, Search: "zzz"}, equities, nil, false)
	assert.Empty(t, state.Visible)
	assert.Equal(t, "", state.Focused)
}

func TestReduceFocusHeldWhenStillInCollection(t *testing.T) {
	p := NewPipeline(nil)
	equities := testEquities()

	state := p.Reduce(State{Mode: ModeNone}, Trigger{Kind: TriggerDataLoaded}, equities, nil, false)
	state = p.Reduce(state, Trigger{Kind: TriggerClicked, Ticker: "VALE3"}, equities, nil, false)

	// A profile change keeps the focus on the same ticker.
	state = p.Reduce(state, Trigger{Kind: TriggerProfileChanged, Profile: valuation.ProfileConservative}, equities, nil, false)
	assert.Equal(t, "VALE3", state.Focused)

	// Removing the ticker from the collection refocuses to the first visible.
	state = p.Reduce(state, Trigger{Kind: TriggerDataLoaded}, equities[:1], nil, false)
	assert.Equal(t, "PETR4", state.Focused)
}

func TestReduceSearchRevertsEmptyingMode(t *testing.T) {
	p := NewPipeline(nil)
	// Opportunity mode keeps only PETR4-like bargains; none here.
	equities := []Equity{
		equity("PETR4", 30, ptr(28), ptr(32), ptr(5)),
		equity("VALE3", 60, ptr(55), ptr(65), ptr(5)),
	}

	state := p.Reduce(State{Mode: ModeNone}, Trigger{Kind: TriggerDataLoaded}, equities, nil, false)
	state = p.Reduce(state, Trigger{Kind: TriggerModeChanged, Mode: ModeOpportunity}, equities, nil, false)
	require.Empty(t, state.Visible)
	require.Equal(t, ModeOpportunity, state.Mode)

	// A search emptying the list under a non-none mode reverts the mode and
	// recomputes against the full universe.
	state = p.Reduce(state, Trigger{Kind: TriggerSearchChanged, Search: "PETR"}, equities, nil, false)
	assert.Equal(t, ModeNone, state.Mode)
	assert.Equal(t, []string{"PETR4"}, tickers(state.Visible))
	assert.Equal(t, "PETR4", state.Focused)

	// Repeating the same search under none is a no-op on the mode.
	state = p.Reduce(state, Trigger{Kind: TriggerSearchChanged, Search: "PETR"}, equities, nil, false)
	assert.Equal(t, ModeNone, state.Mode)
	assert.Equal(t, []string{"PETR4"}, tickers(state.Visible))
}

func TestReduceNoRevertWhenAuthRequired(t *testing.T) {
	p := NewPipeline(nil)
	equities := testEquities()

	state := p.Reduce(State{Mode: ModeWatchlist}, Trigger{Kind: TriggerDataLoaded}, equities, nil, false)
	require.True(t, state.AuthRequired)
	require.Empty(t, state.Visible)

	// The empty list comes from the missing identity, not the search, so the
	// mode stays put and the auth signal persists.
	state = p.Reduce(state, Trigger{Kind: TriggerSearchChanged, Search: "PETR"}, equities, nil, false)
	assert.Equal(t, ModeWatchlist, state.Mode)
	assert.True(t, state.AuthRequired)
	assert.Empty(t, state.Visible)
}

func TestReduceWatchlistModeAuthenticated(t *testing.T) {
	p := NewPipeline(nil)
	equities := testEquities()
	membership := map[string]struct{}{"VALE3": {}}

	state := p.Reduce(State{Mode: ModeNone}, Trigger{Kind: TriggerDataLoaded}, equities, membership, true)
	state = p.Reduce(state, Trigger{Kind: TriggerModeChanged, Mode: ModeWatchlist}, equities, membership, true)

	assert.False(t, state.AuthRequired)
	assert.Equal(t, []string{"VALE3"}, tickers(state.Visible))
	// Focus holds on PETR4: it left the visible list but not the collection.
	assert.Equal(t, "PETR4", state.Focused)

	// Removing the last member leaves an empty list with no auth signal.
	state = p.Reduce(state, Trigger{Kind: TriggerWatchlistChanged}, equities, map[string]struct{}{}, true)
	assert.False(t, state.AuthRequired)
	assert.Empty(t, state.Visible)
	assert.Equal(t, "", state.Focused)
}
