package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/api/authapi"
	"github.com/catchhq/catch-backend/internal/api/messages"
	"github.com/catchhq/catch-backend/internal/api/parties"
	"github.com/catchhq/catch-backend/internal/api/presenceapi"
	"github.com/catchhq/catch-backend/internal/api/social"
	"github.com/catchhq/catch-backend/internal/auth"
	"github.com/catchhq/catch-backend/internal/catalog"
	"github.com/catchhq/catch-backend/internal/config"
	"github.com/catchhq/catch-backend/internal/middleware"
	"github.com/catchhq/catch-backend/internal/realtime"
	"github.com/catchhq/catch-backend/internal/restclient"
	"github.com/catchhq/catch-backend/internal/storage"
	"github.com/catchhq/catch-backend/internal/storage/memory"
	"github.com/catchhq/catch-backend/internal/storage/postgres"
	"github.com/catchhq/catch-backend/internal/storage/valkeystore"
	"github.com/catchhq/catch-backend/internal/telemetry"
	"github.com/catchhq/catch-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}

	logger := newLogger(cfg)
	logger.Info().Str("env", cfg.Environment).Str("addr", cfg.Addr()).Msg("catchd starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.New()
	secret := []byte(cfg.JWTSigningKey)

	users, convs, follows, presenceStore, cleanup, err := buildStores(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage")
	}
	defer cleanup()

	hub := ws.NewHub(logger, metrics)
	go hub.Run(ctx)

	presence := realtime.NewPresence(presenceStore, follows, hub, logger)
	partySvc := realtime.NewParties(hub, logger)
	messageSvc := realtime.NewMessages(convs, hub, logger)

	wsHandler := ws.NewHandler(hub, presence, partySvc, messageSvc, logger, metrics,
		originChecker(cfg.AllowedOrigin))

	router := mux.NewRouter()
	router.Use(middleware.Logging(logger, metrics))

	authed := router.NewRoute().Subrouter()
	authed.Use(auth.Middleware(secret))

	authapi.RegisterRoutes(router, authed, &authapi.Handler{
		Users: users, Secret: secret, TokenTTL: cfg.TokenTTL, Logger: logger,
	})
	social.RegisterRoutes(authed, &social.Handler{Follows: follows, Users: users, Logger: logger})
	parties.RegisterRoutes(authed, &parties.Handler{Parties: partySvc, Logger: logger})
	messages.RegisterRoutes(authed, &messages.Handler{Store: convs, Messages: messageSvc, Logger: logger})
	presenceapi.RegisterRoutes(authed, &presenceapi.Handler{Presence: presence, Logger: logger})

	router.Path("/ws").Handler(auth.Middleware(secret)(http.HandlerFunc(wsHandler.ServeWS)))

	if cfg.CatalogBaseURL != "" {
		trending := catalog.NewService(restclient.New(cfg.CatalogBaseURL), cfg.CatalogInterval, logger)
		go trending.Run(ctx)
		authed.HandleFunc("/api/v1/catalog/trending", trending.ServeTrending).Methods(http.MethodGet)
	}

	go serveMetrics(ctx, cfg.MetricsBind, metrics, logger)

	// CORS wraps the router rather than running as mux middleware: mux only
	// invokes middleware on matched routes, and preflight OPTIONS requests
	// match nothing because every route pins its methods.
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      middleware.CORS(cfg.AllowedOrigin)(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("addr", cfg.Addr()).Msg("listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("serve")
	}
	logger.Info().Msg("catchd stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "catchd").Logger()
	if cfg.Environment == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	return logger
}

// buildStores picks backends from the configuration: Postgres when a DSN is
// set, Valkey for presence when an address is set, in-process memory
// otherwise. The cleanup closes whatever was opened.
func buildStores(cfg *config.Config, logger zerolog.Logger) (
	storage.UserStore, storage.ConversationStore, storage.FollowStore, storage.PresenceStore,
	func(), error,
) {
	cleanup := func() {}

	var (
		users   storage.UserStore
		convs   storage.ConversationStore
		follows storage.FollowStore
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, nil, cleanup, err
		}
		cleanup = func() { _ = db.Close() }
		users = postgres.NewUserStore(db)
		convs = postgres.NewConversationStore(db)
		follows = postgres.NewFollowStore(db)
		logger.Info().Msg("using postgres storage")
	} else {
		users = memory.NewUserStore()
		convs = memory.NewConversationStore()
		follows = memory.NewFollowStore()
		logger.Warn().Msg("using in-memory storage, data will not survive restarts")
	}

	var presenceStore storage.PresenceStore
	if cfg.ValkeyAddr != "" {
		vk, err := valkeystore.New(cfg.ValkeyAddr)
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, func() {}, err
		}
		prev := cleanup
		cleanup = func() { vk.Close(); prev() }
		presenceStore = vk
		logger.Info().Str("addr", cfg.ValkeyAddr).Msg("using valkey presence store")
	} else {
		presenceStore = memory.NewPresenceStore()
	}

	return users, convs, follows, presenceStore, cleanup, nil
}

func originChecker(allowed string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed == "*" || origin == allowed
	}
}

func serveMetrics(ctx context.Context, bind string, metrics *telemetry.Metrics, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Addr: bind, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", bind).Msg("metrics listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics serve")
	}
}
