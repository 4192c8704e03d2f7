package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/iho/journalbot/internal/adapter/extraction"
	httpAdapter "github.com/iho/journalbot/internal/adapter/http"
	"github.com/iho/journalbot/internal/adapter/http/handler"
	"github.com/iho/journalbot/internal/adapter/http/middleware"
	"github.com/iho/journalbot/internal/adapter/idgen"
	redisRepo "github.com/iho/journalbot/internal/adapter/repository/redis"
	"github.com/iho/journalbot/internal/adapter/retrieval"
	"github.com/iho/journalbot/internal/infrastructure/config"
	"github.com/iho/journalbot/internal/infrastructure/logger"
	"github.com/iho/journalbot/internal/infrastructure/metrics"
	"github.com/iho/journalbot/internal/infrastructure/redis"
	"github.com/iho/journalbot/internal/rulestore"
	"github.com/iho/journalbot/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	store, err := rulestore.Load(cfg.RulesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("failed to load accounting rules")
	}
	log.Info().Int("rules", store.Snapshot().Len()).Str("path", cfg.RulesPath).Msg("loaded accounting rules")

	m := metrics.New()
	m.RulesLoaded.Set(float64(store.Snapshot().Len()))

	confidence := usecase.ConfidenceConfig{
		ExtractionWeight:      cfg.ExtractionWeight,
		StandardizationWeight: cfg.StandardizationWeight,
		RetrievalWeight:       cfg.RetrievalWeight,
		NeutralRetrievalScore: cfg.NeutralRetrievalScore,
		SimpleModePenalty:     cfg.SimpleModePenalty,
		AutoApproveThreshold:  cfg.AutoApproveThreshold,
		ReviewThreshold:       cfg.ReviewThreshold,
	}
	if err := confidence.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid confidence configuration")
	}

	extractor := extraction.NewLLMExtractor(extraction.Config{
		BaseURL:        cfg.ExtractionBaseURL,
		APIKey:         cfg.ExtractionAPIKey,
		Model:          cfg.ExtractionModel,
		MaxElapsedTime: cfg.ExtractionTimeout,
	}, log.Logger)

	idGen := idgen.NewULIDGenerator()
	generator := usecase.NewGenerator(usecase.GeneratorConfig{
		AllowComplexEntries: cfg.AllowComplexEntries,
	}, idGen)

	pipeline := usecase.NewPipeline(
		usecase.PipelineConfig{
			TopK:              cfg.RetrievalTopK,
			StrictRetrieval:   cfg.StrictRetrieval,
			ExtractionTimeout: cfg.ExtractionTimeout,
			RetrievalTimeout:  cfg.RetrievalTimeout,
			Confidence:        confidence,
		},
		store,
		extractor,
		retrieval.NewLexicalRetriever(store),
		generator,
		idGen,
		m,
		log.Logger,
	)

	stats := usecase.NewStatsCollector()

	// Result cache is optional: without Redis every request runs the
	// pipeline.
	var resultCache usecase.ResultCache
	healthHandler := handler.NewHealthHandler(store, nil)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		log.Info().Msg("connected to redis")

		resultCache = redisRepo.NewResultCache(client)
		healthHandler = handler.NewHealthHandler(store, client)
	}

	routerCfg := httpAdapter.RouterConfig{
		DocumentHandler: handler.NewDocumentHandler(
			pipeline, stats, resultCache, cfg.ResultCacheTTL, cfg.BatchWorkers, log.Logger),
		RulesHandler:  handler.NewRulesHandler(store),
		StatsHandler:  handler.NewStatsHandler(stats),
		HealthHandler: healthHandler,
		Logger:        log.Logger,
	}
	if cfg.RateLimitRPS > 0 {
		routerCfg.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
