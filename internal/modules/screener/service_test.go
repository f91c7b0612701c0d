package screener

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatiainvest/screener/internal/events"
	"github.com/fatiainvest/screener/internal/modules/valuation"
)

type fakeWatchlist struct {
	members map[string]struct{}
	err     error
}

func (f *fakeWatchlist) Membership(userID string) (map[string]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.members, nil
}

type fakeProfiles struct {
	profile valuation.Profile
}

func (f *fakeProfiles) InvestorProfile(userID string) (valuation.Profile, error) {
	return f.profile, nil
}

func setupService(t *testing.T, watchlist *fakeWatchlist, profiles *fakeProfiles) *Service {
	repo := setupRepo(t)
	require.NoError(t, repo.ReplaceAll(testEquities()))

	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewService(repo, NewPipeline(nil), watchlist, profiles, events.NewBus(log), log)
}

func TestServiceSessionStartsWithPersistedProfile(t *testing.T) {
	svc := setupService(t, &fakeWatchlist{}, &fakeProfiles{profile: valuation.ProfileConservative})

	state, err := svc.State("session-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, valuation.ProfileConservative, state.Profile)
	assert.Equal(t, ModeNone, state.Mode)
	assert.Len(t, state.Visible, 3)
}

func TestServiceSessionsAreIsolated(t *testing.T) {
	svc := setupService(t, &fakeWatchlist{}, &fakeProfiles{})

	_, err := svc.SetSearch("session-a", "", "PETR")
	require.NoError(t, err)

	stateB, err := svc.State("session-b", "")
	require.NoError(t, err)
	assert.Equal(t, "", stateB.Search)
	assert.Len(t, stateB.Visible, 3)

	stateA, err := svc.State("session-a", "")
	require.NoError(t, err)
	assert.Equal(t, "PETR", stateA.Search)
	assert.Equal(t, []string{"PETR4"}, tickers(stateA.Visible))
}

func TestServiceUpstreamFailureLeavesStateUnchanged(t *testing.T) {
	wl := &fakeWatchlist{members: map[string]struct{}{"VALE3": {}}}
	svc := setupService(t, wl, &fakeProfiles{})

	_, err := svc.SetSearch("s", "user-1", "VALE")
	require.NoError(t, err)

	// Membership store failure fails the trigger and keeps the prior state.
	wl.err = errors.New("store down")
	_, err = svc.SetMode("s", "user-1", ModeWatchlist)
	require.Error(t, err)

	wl.err = nil
	state, err := svc.State("s", "user-1")
	require.NoError(t, err)
	assert.Equal(t, ModeNone, state.Mode)
	assert.Equal(t, "VALE", state.Search)
}

func TestServiceWatchlistChangeRecomputes(t *testing.T) {
	wl := &fakeWatchlist{members: map[string]struct{}{}}
	svc := setupService(t, wl, &fakeProfiles{})

	state, err := svc.SetMode("s", "user-1", ModeWatchlist)
	require.NoError(t, err)
	assert.Empty(t, state.Visible)
	assert.False(t, state.AuthRequired)

	wl.members = map[string]struct{}{"BBAS3": {}}
	state, err = svc.NotifyWatchlistChanged("s", "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"BBAS3"}, tickers(state.Visible))
}

func TestServiceEvictsIdleSessions(t *testing.T) {
	svc := setupService(t, &fakeWatchlist{}, &fakeProfiles{})

	// A burst of one-shot anonymous sessions, each with its own key.
	for i := 0; i < 200; i++ {
		_, err := svc.State(fmt.Sprintf("anon-%d", i), "")
		require.NoError(t, err)
	}
	_, err := svc.SetSearch("anon-0", "", "PETR")
	require.NoError(t, err)

	// A cutoff in the past touches nothing.
	assert.Equal(t, 0, svc.EvictIdleSessions(time.Now().Add(-time.Minute)))

	// A cutoff after the burst reclaims every session.
	assert.Equal(t, 200, svc.EvictIdleSessions(time.Now()))
	assert.Equal(t, 0, svc.EvictIdleSessions(time.Now()))

	// An evicted session rebuilds with defaults on its next request.
	state, err := svc.State("anon-0", "")
	require.NoError(t, err)
	assert.Equal(t, "", state.Search)
	assert.Len(t, state.Visible, 3)
}

func TestServiceDetailUsesSessionProfile(t *testing.T) {
	svc := setupService(t, &fakeWatchlist{}, &fakeProfiles{profile: valuation.ProfileConservative})

	view, err := svc.Detail("s", "user-1", "PETR4")
	require.NoError(t, err)
	require.NotNil(t, view)
	require.NotNil(t, view.ActiveCeiling)
	assert.Equal(t, 28.0, *view.ActiveCeiling)

	missing, err := svc.Detail("s", "user-1", "XXXX9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
