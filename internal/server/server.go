package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/usermgmt/usersvc/config"
	"github.com/usermgmt/usersvc/internal/db"
	"github.com/usermgmt/usersvc/internal/events"
	"github.com/usermgmt/usersvc/internal/handlers"
	"github.com/usermgmt/usersvc/internal/logging"
	"github.com/usermgmt/usersvc/internal/password"
	"github.com/usermgmt/usersvc/internal/services"
	"github.com/usermgmt/usersvc/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	emitter    *events.Emitter
	logger     zerolog.Logger
}

// New applies pending migrations, opens the database and wires every route.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	if err := db.MigrateUp(cfg.Database.Path); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	backend, err := events.NewBackend(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("events backend: %w", err)
	}
	emitter := events.NewEmitter(backend, cfg.Events.Channel, logger.With().Str("component", "events").Logger())

	userRepo := store.NewUserRepository(dbConn)
	userService, err := services.NewUserService(userRepo, password.NewHasher(cfg.BcryptCost), emitter, logger)
	if err != nil {
		_ = emitter.Close()
		_ = dbConn.Close()
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}),
	)
	router.Get("/", handlers.Home)
	router.Get("/healthz", handlers.Healthz(func(ctx context.Context) error {
		return db.Ping(ctx, dbConn)
	}))
	handlers.UserRouter(router, userService, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		emitter:    emitter,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.closeResources()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down")
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests and releases the database and broker.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.closeResources()
	return err
}

func (s *Server) closeResources() {
	if s.emitter != nil {
		if err := s.emitter.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close events backend")
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
