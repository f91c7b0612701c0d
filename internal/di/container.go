// Package di provides the dependency injection container that wires
// repositories, services and clients together. Construction order matters:
// repositories first, then services, then handlers.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/clients/marketdata"
	"github.com/fatiainvest/screener/internal/config"
	"github.com/fatiainvest/screener/internal/database"
	"github.com/fatiainvest/screener/internal/events"
	"github.com/fatiainvest/screener/internal/modules/dividends"
	"github.com/fatiainvest/screener/internal/modules/identity"
	"github.com/fatiainvest/screener/internal/modules/screener"
	"github.com/fatiainvest/screener/internal/modules/watchlist"
)

// Container holds the application's shared services.
type Container struct {
	Log zerolog.Logger
	Cfg *config.Config

	UniverseDB *database.DB
	UsersDB    *database.DB
	CacheDB    *database.DB

	Bus *events.Bus

	EquityRepo     *screener.Repository
	DividendRepo   *dividends.Repository
	SessionRepo    *identity.SessionRepository
	PreferenceRepo *identity.PreferenceRepository
	WatchlistRepo  *watchlist.Repository

	SnapshotCache    *marketdata.SnapshotCache
	MarketDataClient *marketdata.Client

	WatchlistService *watchlist.Service
	ScreenerService  *screener.Service
}

// NewContainer wires all services. Schemas are initialized here so callers get
// a ready-to-use container or an error.
func NewContainer(cfg *config.Config, universeDB, usersDB, cacheDB *database.DB, log zerolog.Logger) (*Container, error) {
	c := &Container{
		Log:        log,
		Cfg:        cfg,
		UniverseDB: universeDB,
		UsersDB:    usersDB,
		CacheDB:    cacheDB,
	}

	c.Bus = events.NewBus(log)

	c.EquityRepo = screener.NewRepository(universeDB.Conn(), log)
	c.DividendRepo = dividends.NewRepository(universeDB.Conn(), log)
	c.SessionRepo = identity.NewSessionRepository(usersDB.Conn(), log)
	c.PreferenceRepo = identity.NewPreferenceRepository(usersDB.Conn(), log)
	c.WatchlistRepo = watchlist.NewRepository(usersDB.Conn(), log)
	c.SnapshotCache = marketdata.NewSnapshotCache(cacheDB.Conn(), log)

	if err := c.initSchemas(); err != nil {
		return nil, err
	}

	c.MarketDataClient = marketdata.NewClient(cfg.MarketDataURL, c.SnapshotCache, log)
	c.WatchlistService = watchlist.NewService(c.WatchlistRepo, c.Bus, log)

	pipeline := screener.NewPipeline(cfg.SuppressedSet())
	c.ScreenerService = screener.NewService(
		c.EquityRepo,
		pipeline,
		c.WatchlistService,
		c.PreferenceRepo,
		c.Bus,
		log,
	)

	return c, nil
}

func (c *Container) initSchemas() error {
	if err := c.EquityRepo.InitSchema(); err != nil {
		return fmt.Errorf("universe schema: %w", err)
	}
	if err := c.DividendRepo.InitSchema(); err != nil {
		return fmt.Errorf("dividends schema: %w", err)
	}
	if err := c.SessionRepo.InitSchema(); err != nil {
		return fmt.Errorf("identity schema: %w", err)
	}
	if err := c.WatchlistRepo.InitSchema(); err != nil {
		return fmt.Errorf("watchlist schema: %w", err)
	}
	if err := c.SnapshotCache.InitSchema(); err != nil {
		return fmt.Errorf("snapshot cache schema: %w", err)
	}
	return nil
}
