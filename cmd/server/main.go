package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pairline/match-server-go/internal/config"
	"github.com/pairline/match-server-go/internal/database"
	"github.com/pairline/match-server-go/internal/handler"
	"github.com/pairline/match-server-go/internal/jobs"
	"github.com/pairline/match-server-go/internal/middleware"
	"github.com/pairline/match-server-go/internal/redis"
	"github.com/pairline/match-server-go/internal/repository"
	"github.com/pairline/match-server-go/internal/service"
	"github.com/pairline/match-server-go/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
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

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	queueRepo := repository.NewQueueRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	limiter := service.NewRateLimiter(redisClient.Client)

	matchmaker := service.NewMatchmaker(
		db, queueRepo, sessionRepo, userRepo, redisClient, broker, limiter,
		service.MatchmakerConfig{
			VideoDuration: cfg.VideoDuration(),
			ChatDuration:  cfg.ChatDuration(),
			Cooldown:      cfg.Cooldown(),
			PairLockTTL:   cfg.PairLockTTL(),
		},
	)
	sessionService := service.NewSessionService(
		db, sessionRepo, userRepo, queueRepo, messageRepo, broker, limiter, cfg.Cooldown(),
	)
	userService := service.NewUserService(userRepo)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthJWTSecret)

	matchmakingHandler := handler.NewMatchmakingHandler(matchmaker, sessionService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	profileHandler := handler.NewProfileHandler(userService)
	eventsHandler := handler.NewEventsHandler(broker, sessionService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		matchmakingHandler.Register(r)
		r.Mount("/sessions", sessionHandler.Routes())
		r.Mount("/profile", profileHandler.Routes())
		r.Get("/events", eventsHandler.ServeHTTP)
	})

	matchLoop := jobs.NewMatchLoop(matchmaker, config.MatchLoopInterval)
	matchLoop.Start()
	defer matchLoop.Stop()

	cleanupJob := jobs.NewCleanupJob(queueRepo, sessionRepo, cfg.QueueTTL(), config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
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
