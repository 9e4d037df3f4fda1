package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"honeypot-lab/internal/api"
	"honeypot-lab/internal/api/handlers"
	apimiddleware "honeypot-lab/internal/api/middleware"
	"honeypot-lab/internal/config"
	"honeypot-lab/internal/domain/services"
	"honeypot-lab/internal/domain/services/ai"
	"honeypot-lab/internal/grpc/health"
	"honeypot-lab/internal/infrastructure/cache"
	"honeypot-lab/pkg/logger"
)

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("HONEYPOT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
		Production: cfg.App.Environment == "production",
		Service:    cfg.App.Name,
	})

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting honeypot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisCache, err := initCache(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize infrastructure")
	}
	defer func() {
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	// Detection and persona replies
	llm := ai.NewLLMClient(ai.LLMConfig{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		ReplyTimeout:      cfg.LLM.ReplyTimeout,
		ReplyMaxTokens:    cfg.LLM.ReplyMaxTokens,
		ClassifierTimeout: cfg.LLM.ClassifierTimeout,
		AllowedHosts:      cfg.LLM.AllowedHosts,
	}, log)
	if !llm.Configured() {
		log.Warn().Msg("no LLM API key configured, scam replies will carry an inline error")
	}

	var oracle ai.ScamOracle
	if llm.Configured() && cfg.LLM.ClassifierEnabled {
		oracle = llm
	}
	detector := ai.NewScamDetector(log, ai.NewEntityExtractor(), ai.NewScoreEngine(), oracle)
	log.Info().Bool("oracle", oracle != nil).Msg("scam detector initialized")

	// Sessions and reporting
	store := services.NewSessionStore(log)
	dispatcher := services.NewCallbackDispatcher(store, log, services.CallbackDispatcherConfig{
		URL:       cfg.Callback.URL,
		Retries:   cfg.Callback.Retries,
		Backoff:   cfg.Callback.Backoff(),
		Timeout:   cfg.Callback.Timeout,
		Workers:   cfg.Callback.Workers,
		QueueSize: cfg.Callback.QueueSize,
	})
	honeypot := services.NewHoneypot(store, detector, llm, dispatcher, services.HoneypotConfig{
		MinTurns: cfg.Callback.MinTurns,
		MaxTurns: cfg.Callback.MaxTurns,
	}, log)

	// Optional dependencies stay nil interfaces when Redis is off
	var (
		cachePinger handlers.Pinger
		limiter     apimiddleware.Limiter
		healthDeps  = map[string]health.Pinger{}
	)
	if redisCache != nil {
		cachePinger = redisCache
		limiter = redisCache
		healthDeps["redis"] = redisCache
	}

	h := handlers.NewHandlers(handlers.Dependencies{
		Honeypot: honeypot,
		Sessions: store,
		Cache:    cachePinger,
		Version:  cfg.App.Version,
		Logger:   log,
	})
	router := api.NewRouter(*cfg, h, limiter, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// gRPC health
	var grpcServer *grpc.Server
	checker := health.NewChecker(healthDeps, log)
	if cfg.Server.GRPCEnabled {
		grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create gRPC listener")
		}

		grpcServer = grpc.NewServer()
		checker.Register(grpcServer)
		go checker.Run(ctx, health.DefaultInterval)

		go func() {
			log.Info().
				Str("addr", grpcListener.Addr().String()).
				Msg("starting gRPC server")
			if err := grpcServer.Serve(grpcListener); err != nil {
				log.Fatal().Err(err).Msg("gRPC server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	cancel()
	checker.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// After the HTTP server so no request can queue a report behind the stop
	dispatcher.Stop()

	evaluated, detected, oracleDown := detector.Stats()
	delivered, failed := dispatcher.Stats()
	log.Info().
		Int("sessions", store.Len()).
		Int64("messages_evaluated", evaluated).
		Int64("scams_detected", detected).
		Int64("oracle_unavailable", oracleDown).
		Int64("reports_delivered", delivered).
		Int64("reports_failed", failed).
		Msg("shutdown complete")
}

// initCache connects to Redis when it is enabled
func initCache(ctx context.Context, cfg *config.Config, log *logger.Logger) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		log.Info().Msg("redis disabled, rate limiting off")
		return nil, nil
	}

	redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return redisCache, nil
}
