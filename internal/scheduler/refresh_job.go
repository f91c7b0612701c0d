package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/clients/marketdata"
	"github.com/fatiainvest/screener/internal/events"
	"github.com/fatiainvest/screener/internal/modules/screener"
)

// RefreshJob pulls a fresh equity snapshot from the data provider and replaces
// the local universe with it. Sessions recompute from the new data on their
// next request; an EquitiesRefreshed event nudges connected clients.
type RefreshJob struct {
	client *marketdata.Client
	repo   *screener.Repository
	bus    *events.Bus
	log    zerolog.Logger
}

// NewRefreshJob creates a new refresh job
func NewRefreshJob(client *marketdata.Client, repo *screener.Repository, bus *events.Bus, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		client: client,
		repo:   repo,
		bus:    bus,
		log:    log.With().Str("job", "refresh").Logger(),
	}
}

func (j *RefreshJob) Name() string { return "equity-refresh" }

// Run fetches and stores the snapshot. A superseded response means a newer
// refresh is already in flight and this one is simply dropped.
func (j *RefreshJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	start := time.Now()
	equities, err := j.client.GetEquities(ctx)
	if err != nil {
		if errors.Is(err, marketdata.ErrSuperseded) {
			j.log.Debug().Msg("Refresh superseded by a newer request, skipping")
			return
		}
		j.log.Error().Err(err).Msg("Failed to fetch equity snapshot")
		j.bus.EmitError("refresh", err, nil)
		return
	}

	if err := j.repo.ReplaceAll(equities); err != nil {
		j.log.Error().Err(err).Msg("Failed to store equity snapshot")
		j.bus.EmitError("refresh", err, nil)
		return
	}

	j.log.Info().
		Int("count", len(equities)).
		Dur("took", time.Since(start)).
		Msg("Equity snapshot refreshed")
	j.bus.Emit(events.EquitiesRefreshed, "refresh", map[string]interface{}{"count": len(equities)})
}
