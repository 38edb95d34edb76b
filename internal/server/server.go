package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/api"
	"github.com/ossohq/pe32-hub/api/middleware"
	"github.com/ossohq/pe32-hub/internal/cache"
	"github.com/ossohq/pe32-hub/internal/config"
	"github.com/ossohq/pe32-hub/internal/database"
	"github.com/ossohq/pe32-hub/internal/hubservice"
	"github.com/ossohq/pe32-hub/internal/monitoring"
	"github.com/ossohq/pe32-hub/internal/relay"
	"github.com/ossohq/pe32-hub/internal/repository"
	"github.com/ossohq/pe32-hub/internal/repository/postgres"
	"github.com/ossohq/pe32-hub/internal/repository/timescale"
	"github.com/ossohq/pe32-hub/internal/retention"
)

// Server ties together the HTTP API, the MQTT relay and the store
type Server struct {
	config     *config.Config
	srv        *http.Server
	hubservice *hubservice.HubService
	relay      *relay.Relay
	monitoring *monitoring.Service
	retention  *retention.Service

	db    database.DB
	cache *cache.ResolutionCache
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{
		config: cfg,
	}
}

// Start wires up the services, begins listening and blocks until a
// shutdown signal arrives
func (s *Server) Start() error {
	if err := s.initialize(); err != nil {
		return err
	}

	router := api.NewRouter(s.hubservice, middleware.KeyConfig{
		WriterKey: s.config.Server.WriterKey,
		ReaderKey: s.config.Server.ReaderKey,
	})

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	if err := s.relay.Start(context.Background()); err != nil {
		nuts.L.Errorf("[Server] Relay failed to start: %v", err)
		// The API is still useful without the relay; paho keeps retrying.
	}

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// initialize connects to the store and builds the service graph
func (s *Server) initialize() error {
	db, err := database.NewTimescaleDB(s.config.Database)
	if err != nil {
		return err
	}
	s.db = db

	registry, err := postgres.NewRegistryRepository(db)
	if err != nil {
		return err
	}
	samples, err := timescale.NewSampleRepository(db)
	if err != nil {
		return err
	}

	if err := postgres.ApplyGrants(context.Background(), db, s.config.Grants); err != nil {
		return err
	}

	var resolutions *cache.ResolutionCache
	if s.config.Redis.Enabled {
		resolutions, err = cache.NewResolutionCache(context.Background(), s.config.Redis)
		if err != nil {
			return err
		}
		s.cache = resolutions
	}

	s.hubservice = hubservice.New(registry, samples, cacheOrNil(resolutions))
	if err := s.hubservice.Validate(); err != nil {
		return err
	}

	s.monitoring = monitoring.NewService(monitoring.Config{
		LogLevel: s.config.Monitoring.LogLevel,
	})

	s.retention = retention.New(samples)
	s.retention.OnRetention("retention.purged", func(metric string) {
		s.monitoring.RecordEvent("retention_purge", map[string]string{
			"metric": metric,
		})
	})
	if s.config.Retention.Enabled {
		samples.ApplyRetentionPolicies(s.config.Retention.Interval)
	}

	s.relay = relay.New(s.config.MQTT, s.hubservice)
	return nil
}

// cacheOrNil keeps a nil *ResolutionCache from becoming a non-nil
// interface value
func cacheOrNil(c *cache.ResolutionCache) repository.ResolutionCache {
	if c == nil {
		return nil
	}
	return c
}

// waitForShutdown waits for interrupt signal and gracefully shuts down
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	s.relay.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	if s.cache != nil {
		s.cache.Close()
	}
	s.db.Close()

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}
