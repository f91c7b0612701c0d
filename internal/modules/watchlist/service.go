package watchlist

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/events"
	"github.com/fatiainvest/screener/internal/modules/identity"
)

// Service applies watchlist mutations optimistically: the in-memory
// membership a recompute consults is updated before the store call resolves,
// and rolled back when the store fails, with the error surfaced to the
// caller. This keeps the visible list responsive without letting a failed
// persistence call leave membership and store permanently divergent.
type Service struct {
	repo *Repository
	bus  *events.Bus
	log  zerolog.Logger

	mu    sync.Mutex
	cache map[string]map[string]struct{} // per-user optimistic membership
}

// NewService creates a new watchlist service
func NewService(repo *Repository, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		bus:   bus,
		log:   log.With().Str("service", "watchlist").Logger(),
		cache: make(map[string]map[string]struct{}),
	}
}

// Membership returns the user's current membership set, including optimistic
// pending entries. The returned map is a copy; callers may not mutate shared
// state. An empty user id yields identity.ErrAuthRequired.
func (s *Service) Membership(userID string) (map[string]struct{}, error) {
	if userID == "" {
		return nil, identity.ErrAuthRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.membershipLocked(userID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]struct{}, len(set))
	for t := range set {
		out[t] = struct{}{}
	}
	return out, nil
}

// Tickers returns the membership as an ordered slice for listing endpoints.
func (s *Service) Tickers(userID string) ([]string, error) {
	if userID == "" {
		return nil, identity.ErrAuthRequired
	}
	// Listing reads through to the store: insertion order matters for the
	// watchlist tab and the cache holds an unordered set.
	tickers, err := s.repo.List(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	if tickers == nil {
		tickers = []string{}
	}
	return tickers, nil
}

// Add bookmarks a ticker for the user. The membership set is updated before
// the store call; a store failure rolls the entry back and returns the error.
func (s *Service) Add(userID, ticker string) error {
	if userID == "" {
		return identity.ErrAuthRequired
	}
	ticker = normalizeTicker(ticker)

	s.mu.Lock()
	set, err := s.membershipLocked(userID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if _, exists := set[ticker]; exists {
		s.mu.Unlock()
		return nil
	}
	set[ticker] = struct{}{} // Optimistic
	s.mu.Unlock()

	if err := s.repo.Add(userID, ticker); err != nil {
		s.mu.Lock()
		delete(set, ticker) // Roll back
		s.mu.Unlock()
		s.log.Error().Err(err).Str("ticker", ticker).Msg("Watchlist add failed, rolled back")
		return fmt.Errorf("failed to persist watchlist add: %w", err)
	}

	s.bus.Emit(events.WatchlistChanged, "watchlist", map[string]interface{}{
		"user_id": userID,
		"ticker":  ticker,
		"action":  "add",
	})
	return nil
}

// Remove drops a ticker from the user's watchlist, with the same optimistic
// update and rollback contract as Add.
func (s *Service) Remove(userID, ticker string) error {
	if userID == "" {
		return identity.ErrAuthRequired
	}
	ticker = normalizeTicker(ticker)

	s.mu.Lock()
	set, err := s.membershipLocked(userID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if _, exists := set[ticker]; !exists {
		s.mu.Unlock()
		return nil
	}
	delete(set, ticker) // Optimistic
	s.mu.Unlock()

	if err := s.repo.Remove(userID, ticker); err != nil {
		s.mu.Lock()
		set[ticker] = struct{}{} // Roll back
		s.mu.Unlock()
		s.log.Error().Err(err).Str("ticker", ticker).Msg("Watchlist remove failed, rolled back")
		return fmt.Errorf("failed to persist watchlist remove: %w", err)
	}

	s.bus.Emit(events.WatchlistChanged, "watchlist", map[string]interface{}{
		"user_id": userID,
		"ticker":  ticker,
		"action":  "remove",
	})
	return nil
}

// membershipLocked returns the live (mutable) membership set for the user,
// loading it from the store on first access. Caller holds s.mu.
func (s *Service) membershipLocked(userID string) (map[string]struct{}, error) {
	if set, ok := s.cache[userID]; ok {
		return set, nil
	}
	tickers, err := s.repo.List(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}
	set := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		set[t] = struct{}{}
	}
	s.cache[userID] = set
	return set, nil
}
