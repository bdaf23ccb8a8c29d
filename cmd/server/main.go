// Command server runs the knowledge-graph agent backend.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/components/model"

	"github.com/contextgraph-ai/backend/agent"
	"github.com/contextgraph-ai/backend/config"
	"github.com/contextgraph-ai/backend/flow"
	"github.com/contextgraph-ai/backend/graph"
	"github.com/contextgraph-ai/backend/llm"
	"github.com/contextgraph-ai/backend/schema"
	"github.com/contextgraph-ai/backend/serve"
	"github.com/contextgraph-ai/backend/session"
	"github.com/contextgraph-ai/backend/suggest"
	"github.com/contextgraph-ai/backend/telemetry"
	"github.com/contextgraph-ai/backend/tools"
	"github.com/contextgraph-ai/backend/vector"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	graphClient, err := graph.NewClient(graph.Config{
		URI:                   cfg.Neo4j.URI,
		Username:              cfg.Neo4j.Username,
		Password:              cfg.Neo4j.Password,
		Database:              cfg.Neo4j.Database,
		MaxConnectionLifetime: cfg.Neo4j.MaxConnectionLifetime,
		ConnectionTimeout:     cfg.Neo4j.ConnectionTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("graph client close failed", "error", err)
		}
	}()

	schemaSvc := schema.NewService(graphClient, logger)
	if err := schemaSvc.Refresh(ctx); err != nil {
		// The graph may still be starting; the cache fills lazily later.
		logger.Warn("initial schema fetch failed", "error", err)
	}

	registry := tools.NewRegistry(graphClient, schemaSvc, logger)

	flows, cleanupFlows, err := buildFlowStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupFlows()

	sessions, cleanupSessions, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupSessions()

	var vectors serve.VectorService
	embedder, err := vector.NewEmbedder(ctx, cfg.Embeddings)
	if err != nil {
		return err
	}
	if embedder != nil {
		vectors = vector.NewClient(graphClient, embedder, logger)
	} else {
		logger.Info("embeddings key not set, vector search disabled")
	}

	suggester := suggest.NewService(cfg.LLM, schemaSvc, logger)

	newSession := func(opts agent.Options) serve.AgentSession {
		opts.Model = llm.ResolveModel(cfg.LLM, opts.Model)
		build := func(ctx context.Context, modelID string) (model.ToolCallingChatModel, error) {
			return llm.NewChatModel(ctx, cfg.LLM, modelID)
		}
		return agent.NewSession(registry, schemaSvc, build, opts, logger)
	}

	server := serve.New(cfg, flows, sessions, schemaSvc, suggester, vectors, newSession, logger)
	return server.Run(ctx)
}

func buildFlowStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (flow.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, using in-memory flow store")
		return flow.NewMemoryStore(), func() {}, nil
	}
	db := flow.OpenDB(cfg.DatabaseURL)
	store := flow.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("flow store using postgres")
	return store, func() {
		if err := db.Close(); err != nil {
			logger.Warn("flow db close failed", "error", err)
		}
	}, nil
}

func buildSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, using in-memory session store")
		return session.NewMemoryStore(), func() {}, nil
	}
	store, err := session.NewRedisStore(cfg.RedisURL, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Ping(ctx); err != nil {
		logger.Warn("redis ping failed, transcripts may be unavailable", "error", err)
	}
	logger.Info("session store using redis")
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}, nil
}
