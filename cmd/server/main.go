package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/confweb/talkvote/internal/config"
	"github.com/confweb/talkvote/internal/database"
	"github.com/confweb/talkvote/internal/handler"
	"github.com/confweb/talkvote/internal/jobs"
	"github.com/confweb/talkvote/internal/middleware"
	"github.com/confweb/talkvote/internal/model"
	"github.com/confweb/talkvote/internal/redis"
	"github.com/confweb/talkvote/internal/repository"
	"github.com/confweb/talkvote/internal/service"
	"github.com/confweb/talkvote/internal/sse"
	"github.com/confweb/talkvote/internal/talks"
	"github.com/confweb/talkvote/internal/telemetry"
)

var version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	shutdownTracing, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:    "talkvote",
		ServiceVersion: version,
		UseStdout:      cfg.OtelStdout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init telemetry")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	opensAt, closesAt, err := cfg.VotingWindow()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid voting window")
	}
	var forced model.VotingState
	if cfg.VotingForceState != "" {
		forced, _ = model.ParseVotingState(cfg.VotingForceState)
	}
	window := service.NewVotingWindow(opensAt, closesAt, forced)

	sessionRepo := repository.NewVotingSessionRepository(db.DB)
	voteRepo := repository.NewVoteRepository(db.DB)

	talkSource := talks.NewCachedSource(
		talks.NewHTTPSource(cfg.TalksSourceURL, config.TalkSourceTimeout),
		redisClient.Client,
		cfg.TalksCacheTTL(),
	)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	sessionService := service.NewSessionService(sessionRepo)
	voteService := service.NewVoteService(db, sessionRepo, voteRepo)
	votingService := service.NewVotingService(talkSource, sessionService, voteService, window, broker)
	resultsService := service.NewResultsService(talkSource, voteService)
	adminService := service.NewAdminService(cfg.AdminTokenHash, sessionService, voteService, votingService)

	voteRateLimit := middleware.NewIPRateLimitMiddleware(
		middleware.NewRedisRateLimiter(redisClient.Client),
		cfg.VoteRateLimitPerMin,
		"vote",
		redis.RateLimitKey,
	)
	adminAuthMiddleware := middleware.NewAdminAuthMiddleware(adminService)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	votingHandler := handler.NewVotingHandler(
		votingService, sessionService, resultsService, voteRateLimit.Handler, cfg.CookieSecure,
	)
	eventsHandler := handler.NewEventsHandler(broker)
	adminHandler := handler.NewAdminHandler(adminService, resultsService, eventsHandler, adminAuthMiddleware.Handler)
	healthHandler := handler.NewHealthHandler(config.DBPingTimeout, map[string]handler.HealthCheck{
		"database": db.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", healthHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Mount("/api/voting", votingHandler.Routes())
	})

	r.Mount("/admin", adminHandler.Routes())

	refreshJob := jobs.NewTalkRefreshJob(talkSource, config.TalkRefreshJobInterval, config.TalkRefreshJobTimeout)
	refreshJob.Start()
	defer refreshJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      otelhttp.NewHandler(r, "talkvote"),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("version", version).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
