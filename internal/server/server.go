// Package server provides the HTTP server and routing for the screener.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/fatiainvest/screener/internal/di"
	"github.com/fatiainvest/screener/internal/modules/identity"
	screenerhandlers "github.com/fatiainvest/screener/internal/modules/screener/handlers"
	watchlisthandlers "github.com/fatiainvest/screener/internal/modules/watchlist/handlers"
	"github.com/fatiainvest/screener/internal/reliability"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Container *di.Container
	Port      int
	DevMode   bool
	Backup    *reliability.BackupService // Optional - nil disables backup routes
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	container *di.Container
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		container: cfg.Container,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	if cfg.DevMode {
		// Dev frontend runs on its own origin
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Key"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.router.Use(identity.Middleware(cfg.Container.SessionRepo, cfg.Log))

	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(cfg Config) {
	c := s.container

	screenerHandler := screenerhandlers.NewHandler(
		c.ScreenerService,
		c.DividendRepo,
		c.MarketDataClient,
		c.PreferenceRepo,
		cfg.Log,
	)
	watchlistHandler := watchlisthandlers.NewHandler(c.WatchlistService, cfg.Log)
	eventsHandler := NewEventsStreamHandler(c.Bus, cfg.Log)
	systemHandlers := NewSystemHandlers(cfg.Log, c, cfg.Backup)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/equities", screenerHandler.HandleState)
		r.Get("/equities/{ticker}", screenerHandler.HandleDetail)
		r.Get("/equities/{ticker}/dividends", screenerHandler.HandleDividends)
		r.Get("/sectors", screenerHandler.HandleSectors)

		r.Route("/session", func(r chi.Router) {
			r.Put("/search", screenerHandler.HandleSearch)
			r.Put("/filter", screenerHandler.HandleFilter)
			r.Put("/profile", screenerHandler.HandleProfile)
			r.Put("/select", screenerHandler.HandleSelect)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", watchlistHandler.HandleList)
			r.Post("/", watchlistHandler.HandleAdd)
			r.Delete("/{ticker}", watchlistHandler.HandleRemove)
		})

		r.Get("/events/stream", eventsHandler.ServeHTTP)

		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandlers.HandleHealth)
			if cfg.Backup != nil {
				r.Post("/backup", systemHandlers.HandleBackup)
			}
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
