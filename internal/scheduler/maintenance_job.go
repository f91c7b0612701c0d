package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/modules/identity"
	"github.com/fatiainvest/screener/internal/modules/screener"
)

// sessionIdleTTL is how long an untouched screening session survives in
// memory before the sweep reclaims it.
const sessionIdleTTL = time.Hour

// MaintenanceJob prunes expired auth sessions from the identity store and
// evicts idle in-memory screening sessions.
type MaintenanceJob struct {
	sessions *identity.SessionRepository
	screener *screener.Service
	log      zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(sessions *identity.SessionRepository, screener *screener.Service, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		sessions: sessions,
		screener: screener,
		log:      log.With().Str("job", "maintenance").Logger(),
	}
}

func (j *MaintenanceJob) Name() string { return "session-maintenance" }

func (j *MaintenanceJob) Run() {
	pruned, err := j.sessions.DeleteExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to prune expired sessions")
	} else if pruned > 0 {
		j.log.Info().Int64("pruned", pruned).Msg("Expired sessions removed")
	}

	evicted := j.screener.EvictIdleSessions(time.Now().Add(-sessionIdleTTL))
	if evicted > 0 {
		j.log.Info().Int("evicted", evicted).Msg("Idle screening sessions evicted")
	}
}
