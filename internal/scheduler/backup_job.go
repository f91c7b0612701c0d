package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/events"
	"github.com/fatiainvest/screener/internal/reliability"
)

// BackupJob uploads database snapshots on a schedule.
type BackupJob struct {
	backup *reliability.BackupService
	bus    *events.Bus
	log    zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(backup *reliability.BackupService, bus *events.Bus, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backup: backup,
		bus:    bus,
		log:    log.With().Str("job", "backup").Logger(),
	}
}

func (j *BackupJob) Name() string { return "database-backup" }

func (j *BackupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	key, err := j.backup.Backup(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		j.bus.EmitError("backup", err, nil)
		return
	}
	j.bus.Emit(events.BackupCompleted, "backup", map[string]interface{}{"key": key})
}
