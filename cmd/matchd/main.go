package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talentmatch/matchd/internal/auth"
	"github.com/talentmatch/matchd/internal/config"
	"github.com/talentmatch/matchd/internal/embedder"
	"github.com/talentmatch/matchd/internal/evaluation"
	"github.com/talentmatch/matchd/internal/expansion"
	"github.com/talentmatch/matchd/internal/ingestion"
	"github.com/talentmatch/matchd/internal/llm"
	"github.com/talentmatch/matchd/internal/pipeline"
	"github.com/talentmatch/matchd/internal/repository"
	"github.com/talentmatch/matchd/internal/repository/postgres"
	"github.com/talentmatch/matchd/internal/reranker"
	"github.com/talentmatch/matchd/internal/retrieval"
	"github.com/talentmatch/matchd/internal/scoring"
	"github.com/talentmatch/matchd/internal/server"
	"github.com/talentmatch/matchd/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting matching service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
	)

	// Initialize PostgreSQL
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	profileRepo := postgres.NewProfileRepo(db)

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectorStore.Close()
	slog.Info("connected to Qdrant")

	// Initialize Ollama embedder
	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})
	slog.Info("initialized Ollama embedder", "model", cfg.OllamaEmbeddingModel)

	// Initialize Ollama LLM
	llmClient := llm.NewOllamaClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.OllamaLLMModel),
	)
	slog.Info("initialized Ollama LLM", "model", cfg.OllamaLLMModel)

	// Retrievers. The dense retriever comes first so it wins duplicate
	// conflicts during fusion.
	vectorRetriever := retrieval.NewVectorRetriever(embed, vectorStore, cfg.ProfileCollection)
	keywordRetriever := retrieval.NewKeywordRetriever(retrieval.CorpusLoaderFunc(
		func(ctx context.Context) ([]retrieval.Document, error) {
			profiles, err := profileRepo.ListAll(ctx)
			if err != nil {
				return nil, err
			}
			docs := make([]retrieval.Document, len(profiles))
			for i, p := range profiles {
				docs[i] = retrieval.Document{
					Content:  p.Content,
					Metadata: p.SearchMetadata(),
				}
			}
			return docs, nil
		}))

	// Cross-encoder reranker
	crossEncoder := reranker.NewCrossEncoderClient(
		reranker.WithBaseURL(cfg.CrossEncoderURL),
		reranker.WithModel(cfg.CrossEncoderModel),
	)
	ranker := reranker.NewPairwiseReranker(crossEncoder)

	// Ingestion service keeps both indexes in sync with Postgres
	ingestor := ingestion.NewService(profileRepo, embed, vectorStore, keywordRetriever, cfg.ProfileCollection)
	if err := ingestor.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	// Ranking pipeline
	parser := expansion.NewParser(llmClient, cfg.OllamaLLMModel)
	expander := expansion.NewExpander(llmClient, expansion.WithModel(cfg.OllamaLLMModel))

	pipelineOpts := []pipeline.Option{
		pipeline.WithTopK(cfg.DefaultTopK),
		pipeline.WithKFetch(cfg.KFetch),
		pipeline.WithVariants(cfg.QueryVariants),
		pipeline.WithTimeout(cfg.RequestTimeout),
	}
	if cfg.EvaluatorEnabled {
		evaluator := evaluation.NewCachedEvaluator(
			evaluation.NewLLMEvaluator(llmClient, evaluation.WithModel(cfg.OllamaLLMModel)),
			evaluation.DefaultCache(),
		)
		pipelineOpts = append(pipelineOpts, pipeline.WithEvaluator(evaluator))
		slog.Info("candidate evaluation enabled", "model", cfg.OllamaLLMModel)
	}

	rankingPipeline := pipeline.New(
		parser,
		expander,
		[]retrieval.Retriever{vectorRetriever, keywordRetriever},
		ranker,
		scoring.NewScorer(),
		pipelineOpts...,
	)

	// HTTP server
	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Expiry = cfg.JWTExpiry
	handler := server.NewHandler(rankingPipeline, ingestor, profileRepo)
	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
		APIKey:         cfg.APIKey,
		JWTManager:     auth.NewJWTManager(jwtConfig),
		ReadyCheck: func(ctx context.Context) error {
			return db.Ping(ctx)
		},
	}, handler)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ repository.ProfileRepository = (*postgres.ProfileRepo)(nil)
	_ vectorstore.VectorStore      = (*vectorstore.QdrantStore)(nil)
	_ embedder.Embedder            = (*embedder.OllamaEmbedder)(nil)
	_ llm.LLM                      = (*llm.OllamaClient)(nil)
	_ reranker.RelevanceModel      = (*reranker.CrossEncoderClient)(nil)
)
