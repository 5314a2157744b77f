/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/analytics"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/api"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/audit"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/catalog"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/config"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/db"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/events"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/refresh"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/search"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server

	db         *gorm.DB
	redis      *redis.Client
	bus        *events.Bus
	catalog    *catalog.Repository
	searchSvc  *search.Service
	scheduler  *refresh.Scheduler
	watcher    *refresh.Watcher
	dispatcher refresh.Dispatcher
	auditSvc   *audit.Service
	recorder   *analytics.Recorder

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
	closers  []func() error
}

// New wires the pipeline: database, mutation callbacks, event bus, services,
// and the HTTP router. Background loops start here and stop in Close.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	database, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	bus := events.NewBus()

	if err := db.RegisterCatalogCallbacks(database, bus, logger); err != nil {
		return nil, fmt.Errorf("register catalog callbacks: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	repo := catalog.NewRepository(database, redisClient, cfg.ProfileCacheTTL, logger)
	searchSvc := search.NewService(repo, bus, logger)
	scheduler := refresh.NewScheduler(bus, logger)

	var dispatcher refresh.Dispatcher
	if cfg.NATSURL != "" {
		natsDispatcher, err := refresh.NewNATSDispatcher(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return nil, fmt.Errorf("connect refresh dispatcher: %w", err)
		}
		dispatcher = natsDispatcher
	} else {
		dispatcher = refresh.NewLogDispatcher(logger)
	}

	watcher := refresh.NewWatcher(scheduler, bus, dispatcher, repo, cfg.RefreshInterval, logger)
	auditSvc := audit.NewService(database, bus, logger)
	recorder := analytics.NewRecorder(database, bus, logger)

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		db:         database,
		redis:      redisClient,
		bus:        bus,
		catalog:    repo,
		searchSvc:  searchSvc,
		scheduler:  scheduler,
		watcher:    watcher,
		dispatcher: dispatcher,
		auditSvc:   auditSvc,
		recorder:   recorder,
	}

	s.buildRouter()
	s.startBackground()

	return s, nil
}

func (s *Server) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(telemetry.MetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", telemetry.Handler())

	apiHandlers := api.New(s.searchSvc, s.scheduler, s.watcher, s.auditSvc, s.logger)
	apiHandlers.RegisterRoutes(r)

	s.router = r
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.HTTPBind, s.cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(3)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()
	go func() {
		defer s.bgWG.Done()
		s.recorder.Start(ctx)
	}()
	go func() {
		defer s.bgWG.Done()
		s.watcher.Start(ctx)
	}()
}

// HTTPServer returns the configured HTTP server for the caller to run.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Watcher exposes the mutation watcher (used by the rebuild command).
func (s *Server) Watcher() *refresh.Watcher {
	return s.watcher
}

// Close stops background loops and releases resources.
func (s *Server) Close() error {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()

	var firstErr error
	if closer, ok := s.dispatcher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := db.Close(s.db); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
