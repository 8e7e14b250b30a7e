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

	"github.com/keithn-tech/slack-gpt5-bot/internal/assistant"
	"github.com/keithn-tech/slack-gpt5-bot/internal/config"
	"github.com/keithn-tech/slack-gpt5-bot/internal/dedupe"
	"github.com/keithn-tech/slack-gpt5-bot/internal/handler"
	"github.com/keithn-tech/slack-gpt5-bot/internal/messenger"
	"github.com/keithn-tech/slack-gpt5-bot/internal/middleware"
	"github.com/keithn-tech/slack-gpt5-bot/internal/redis"
	"github.com/keithn-tech/slack-gpt5-bot/internal/service"
	"github.com/keithn-tech/slack-gpt5-bot/internal/store"
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

	threadStore := store.Open(cfg.ThreadMapPath)

	assistantClient := assistant.NewClient(
		cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIAssistantID,
		cfg.RunPollInterval(), cfg.RunWaitTimeout(),
	)
	slackMessenger := messenger.NewSlackMessenger(cfg.SlackBotToken)

	dispatcher := service.NewDispatcher(threadStore, assistantClient, slackMessenger, cfg.SlackBotUserID)

	seenEvents := dedupe.New(config.EventDedupeTTL, config.EventDedupeMaxSize)
	defer seenEvents.Close()

	var limitChecker middleware.LimitChecker = middleware.NewRateLimiter()
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
		limitChecker = middleware.NewRedisRateLimiter(redisClient.Client)
	}

	signatureMiddleware := middleware.NewSlackSignatureMiddleware(cfg.SlackSigningSecret, cfg.SignatureTolerance())
	rateLimitMiddleware := middleware.NewIPRateLimitMiddleware(limitChecker, cfg.WebhookRateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	dispatchTimeout := cfg.RunWaitTimeout() + config.DispatchTimeoutSlack
	eventsHandler := handler.NewEventsHandler(dispatcher, seenEvents, dispatchTimeout)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/slack", func(r chi.Router) {
		r.Use(rateLimitMiddleware.Handler)
		r.Use(signatureMiddleware.Handler)
		r.Post("/events", eventsHandler.Webhook)
	})

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
