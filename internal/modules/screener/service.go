package screener

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/events"
	"github.com/fatiainvest/screener/internal/modules/valuation"
)

// WatchlistProvider supplies the membership set for a user.
type WatchlistProvider interface {
	Membership(userID string) (map[string]struct{}, error)
}

// ProfileProvider supplies the persisted investor profile for a user.
type ProfileProvider interface {
	InvestorProfile(userID string) (valuation.Profile, error)
}

// Service owns the per-session screening state. Every recompute trigger for a
// session runs under one lock and builds one atomic snapshot of the five
// inputs (equities, search, mode, profile, watchlist) before reducing, so
// triggers are processed in arrival order and no recompute observes a torn
// mix of pre- and post-update state.
type Service struct {
	repo      *Repository
	pipeline  *Pipeline
	watchlist WatchlistProvider
	profiles  ProfileProvider
	bus       *events.Bus
	log       zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*State
	touched  map[string]time.Time // last trigger per session, drives eviction
}

// NewService creates a new screener service
func NewService(
	repo *Repository,
	pipeline *Pipeline,
	watchlist WatchlistProvider,
	profiles ProfileProvider,
	bus *events.Bus,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		pipeline:  pipeline,
		watchlist: watchlist,
		profiles:  profiles,
		bus:       bus,
		log:       log.With().Str("service", "screener").Logger(),
		sessions:  make(map[string]*State),
		touched:   make(map[string]time.Time),
	}
}

// State returns the session's current state, recomputed against the latest
// equity snapshot.
func (s *Service) State(sessionKey, userID string) (State, error) {
	return s.Apply(sessionKey, userID, Trigger{Kind: TriggerDataLoaded})
}

// SetSearch applies a search-term change.
func (s *Service) SetSearch(sessionKey, userID, term string) (State, error) {
	state, err := s.Apply(sessionKey, userID, Trigger{Kind: TriggerSearchChanged, Search: term})
	if err == nil {
		s.bus.Emit(events.SearchChanged, "screener", map[string]interface{}{"term": term})
	}
	return state, err
}

// SetMode applies a filter-mode change.
func (s *Service) SetMode(sessionKey, userID string, mode FilterMode) (State, error) {
	state, err := s.Apply(sessionKey, userID, Trigger{Kind: TriggerModeChanged, Mode: mode})
	if err == nil {
		s.bus.Emit(events.FilterChanged, "screener", map[string]interface{}{"mode": string(state.Mode)})
	}
	return state, err
}

// SetProfile applies an investor-profile change. Persistence of the
// preference is the caller's concern; this only affects the session.
func (s *Service) SetProfile(sessionKey, userID string, profile valuation.Profile) (State, error) {
	state, err := s.Apply(sessionKey, userID, Trigger{Kind: TriggerProfileChanged, Profile: profile})
	if err == nil {
		s.bus.Emit(events.ProfileChanged, "screener", map[string]interface{}{"profile": profile.String()})
	}
	return state, err
}

// Click focuses a listed equity directly.
func (s *Service) Click(sessionKey, userID, ticker string) (State, error) {
	state, err := s.Apply(sessionKey, userID, Trigger{Kind: TriggerClicked, Ticker: ticker})
	if err == nil {
		s.bus.Emit(events.SelectionChanged, "screener", map[string]interface{}{"ticker": state.Focused})
	}
	return state, err
}

// NotifyWatchlistChanged recomputes a session after a watchlist mutation.
func (s *Service) NotifyWatchlistChanged(sessionKey, userID string) (State, error) {
	return s.Apply(sessionKey, userID, Trigger{Kind: TriggerWatchlistChanged})
}

// Apply runs one recompute trigger for a session. Returns the next state; an
// error means the inputs could not be assembled (upstream store failure), in
// which case the session state is left unchanged.
func (s *Service) Apply(sessionKey, userID string, tr Trigger) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touched[sessionKey] = time.Now()

	prev, ok := s.sessions[sessionKey]
	if !ok {
		profile, err := s.profiles.InvestorProfile(userID)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to load investor profile, using default")
			profile = valuation.ProfileAggressive
		}
		prev = &State{Mode: ModeNone, Profile: profile}
		s.sessions[sessionKey] = prev
	}

	equities, err := s.repo.GetAll()
	if err != nil {
		return State{}, fmt.Errorf("failed to load equity snapshot: %w", err)
	}

	authenticated := userID != ""
	var membership map[string]struct{}
	if authenticated {
		membership, err = s.watchlist.Membership(userID)
		if err != nil {
			return State{}, fmt.Errorf("failed to load watchlist membership: %w", err)
		}
	}

	next := s.pipeline.Reduce(*prev, tr, equities, membership, authenticated)
	*prev = next
	return next, nil
}

// EvictIdleSessions drops in-memory session state last touched before the
// cutoff and returns how many were removed. Anonymous traffic mints a fresh
// session key per client, so without eviction the map grows with request
// volume. Screening state is derived, not authoritative; an evicted session
// simply rebuilds with defaults on its next request.
func (s *Service) EvictIdleSessions(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, at := range s.touched {
		if at.Before(cutoff) {
			delete(s.sessions, key)
			delete(s.touched, key)
			evicted++
		}
	}
	return evicted
}

// Detail returns the annotated view of a single equity under the session's
// active profile, or nil when the ticker is unknown.
func (s *Service) Detail(sessionKey, userID, ticker string) (*View, error) {
	state, err := s.State(sessionKey, userID)
	if err != nil {
		return nil, err
	}

	equity, err := s.repo.GetByTicker(ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to load equity: %w", err)
	}
	if equity == nil {
		return nil, nil
	}

	view := annotate(*equity, state.Profile)
	return &view, nil
}

// Sectors returns the distinct sectors in the current snapshot.
func (s *Service) Sectors() ([]string, error) {
	sectors, err := s.repo.Sectors()
	if err != nil {
		return nil, fmt.Errorf("failed to load sectors: %w", err)
	}
	if sectors == nil {
		sectors = []string{}
	}
	return sectors, nil
}
