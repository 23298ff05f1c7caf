package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/paperrag/agent/internal/cache"
	"github.com/paperrag/agent/internal/config"
	"github.com/paperrag/agent/internal/engine"
	"github.com/paperrag/agent/internal/llm"
	"github.com/paperrag/agent/internal/middleware"
	"github.com/paperrag/agent/internal/nodes"
	"github.com/paperrag/agent/internal/prompt"
	"github.com/paperrag/agent/internal/repository"
	"github.com/paperrag/agent/internal/router"
	"github.com/paperrag/agent/internal/search"
	"github.com/paperrag/agent/internal/service"
	"github.com/paperrag/agent/internal/tools"
)

// Version is the build version reported by /health.
const Version = "0.1.0"

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("main: %w", err)
	}
	configureLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("main: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("main: parse REDIS_URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	embedder := llm.NewOpenAIEmbedder(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	embedCache := cache.NewEmbeddingCache(redisClient, cache.NewTTL(cfg.EmbeddingCacheTTLSeconds))
	cachedEmbedder := cache.NewCachedEmbedder(embedder, embedCache)

	chunkRepo := repository.NewChunkRepo(pool)
	bm25Repo := repository.NewBM25Repository(pool)
	hybrid := search.NewHybridSearchService(cachedEmbedder, chunkRepo, bm25Repo, chunkRepo)

	registry := tools.NewRegistry()
	registry.Register(tools.RetrieveChunksSpec, tools.NewRetrieveChunksTool(hybrid))
	registry.Register(tools.ListPapersSpec, tools.NewListPapersTool(hybrid))
	if cfg.WebSearchEndpoint != "" {
		registry.Register(tools.WebSearchSpec, tools.NewWebSearchTool(cfg.WebSearchEndpoint, cfg.WebSearchAPIKey))
	}
	registry.Lock()

	executor := tools.NewToolExecutor(registry, cfg.ToolRateLimitPerSecond, cfg.ToolRateLimitBurst)
	composer := prompt.NewComposer()

	convStore := repository.NewConversationStore(pool)

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)

	agentSvc := &service.AgentService{
		Store: convStore,
		Defaults: service.Defaults{
			Provider:             cfg.DefaultProvider,
			Model:                cfg.DefaultModel,
			Temperature:          cfg.Temperature,
			TopK:                 cfg.TopK,
			GuardrailThreshold:   cfg.GuardrailThreshold,
			MaxRetrievalAttempts: cfg.MaxRetrievalAttempts,
			ConversationWindow:   cfg.ConversationWindow,
			MaxIterations:        cfg.MaxIterations,
		},
		EngineFor: engineFactory(cfg, registry, executor, composer),
		Metrics:   metrics,
	}

	mux := router.New(&router.Dependencies{
		Agent:         agentSvc,
		Conversations: convStore,
		DB:            pool,
		Metrics:       metrics,
		MetricsReg:    reg,
		FrontendURL:   cfg.FrontendURL,
		Version:       Version,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming responses manage their own lifetime via request context
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("paperrag-agent starting", "version", Version, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("main: server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("main: graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// engineFactory returns a constructor building a fresh Engine per request,
// bound to an LLM client for the requested model (or the configured default
// model when none is given). The provider argument is not used: every engine
// talks to the single configured OpenAI-compatible endpoint (LLMBaseURL and
// LLMAPIKey), whatever provider the request names.
func engineFactory(cfg *config.Config, registry *tools.Registry, executor *tools.ToolExecutor, composer *prompt.Composer) func(provider, model string) (*engine.Engine, error) {
	return func(provider, model string) (*engine.Engine, error) {
		if model == "" {
			model = cfg.DefaultModel
		}
		client := llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, model)

		return engine.New(engine.Nodes{
			Guardrail:  &nodes.GuardrailNode{Client: client, Composer: composer},
			Router:     &nodes.RouterNode{Client: client, Composer: composer, Registry: registry},
			Executor:   &nodes.ExecutorNode{Executor: executor},
			Grader:     &nodes.GraderNode{Client: client, Composer: composer},
			Rewriter:   &nodes.RewriterNode{Client: client, Composer: composer},
			Generator:  &nodes.GeneratorNode{Client: client, Composer: composer},
			OutOfScope: &nodes.OutOfScopeNode{Client: client, Composer: composer},
		}), nil
	}
}

func configureLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
