// Command server runs the equity screener backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/config"
	"github.com/fatiainvest/screener/internal/database"
	"github.com/fatiainvest/screener/internal/di"
	"github.com/fatiainvest/screener/internal/reliability"
	"github.com/fatiainvest/screener/internal/scheduler"
	"github.com/fatiainvest/screener/internal/server"
	"github.com/fatiainvest/screener/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.DevMode,
		Service: "screener",
	})
	logger.SetGlobalLogger(log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	universeDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "universe.db"),
		Name: "universe",
	})
	if err != nil {
		return err
	}
	defer universeDB.Close()

	usersDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "users.db"),
		Name: "users",
	})
	if err != nil {
		return err
	}
	defer usersDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return err
	}
	defer cacheDB.Close()

	container, err := di.NewContainer(cfg, universeDB, usersDB, cacheDB, log)
	if err != nil {
		return err
	}

	var backupService *reliability.BackupService
	if cfg.Backup != nil && cfg.Backup.Enabled {
		backupService, err = reliability.NewBackupService(
			context.Background(),
			cfg.Backup,
			cfg.DataDir,
			[]*database.DB{universeDB, usersDB},
			log,
		)
		if err != nil {
			return err
		}
	}

	sched := scheduler.New(log)
	refreshJob := scheduler.NewRefreshJob(container.MarketDataClient, container.EquityRepo, container.Bus, log)
	if err := sched.Register(cfg.RefreshSchedule, refreshJob); err != nil {
		return err
	}
	maintenanceJob := scheduler.NewMaintenanceJob(container.SessionRepo, container.ScreenerService, log)
	if err := sched.Register("0 0 * * * *", maintenanceJob); err != nil {
		return err
	}
	if backupService != nil {
		backupJob := scheduler.NewBackupJob(backupService, container.Bus, log)
		if err := sched.Register(cfg.Backup.Schedule, backupJob); err != nil {
			return err
		}
	}

	srv := server.New(server.Config{
		Log:       log,
		Container: container,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Backup:    backupService,
	})

	// Populate the universe before the first scheduled refresh fires
	go refreshJob.Run()

	sched.Start()
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
