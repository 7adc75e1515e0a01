package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mzhuravlev/ai-tutor-backend/internal/config"
	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
	"github.com/mzhuravlev/ai-tutor-backend/internal/core/ports"
	"github.com/mzhuravlev/ai-tutor-backend/internal/core/usecase"
	"github.com/mzhuravlev/ai-tutor-backend/internal/infrastructure/llm/wrapper"
	natsqueue "github.com/mzhuravlev/ai-tutor-backend/internal/infrastructure/queue/nats"
	"github.com/mzhuravlev/ai-tutor-backend/internal/infrastructure/repository/postgres"
	"github.com/mzhuravlev/ai-tutor-backend/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Events ports.EventConsumer
	ChatUC ports.ChatService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	chatRepo := postgres.NewChatRepository(db)
	chunkRepo := postgres.NewChunkRepository(db)

	events, err := natsqueue.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		MinRequests:  uint32(cfg.BreakerMinRequests),
		FailureRatio: cfg.BreakerFailureRatio,
		OpenTimeout:  time.Duration(cfg.BreakerOpenSeconds) * time.Second,
	})
	llmClient := wrapper.New(cfg.WrapperBaseURL, cfg.WrapperAPIKey, cfg.EmbeddingModel, wrapper.Options{
		Executor: executor,
	})

	models := domain.ModelSet{
		Default:    cfg.ModelDefault,
		Coding:     cfg.ModelCoding,
		Reasoning:  cfg.ModelReasoning,
		Classifier: cfg.ModelClassifier,
		Fallbacks:  []string{cfg.ModelDefault, cfg.ModelClassifier},
	}

	vocab, err := config.LoadVocabulary(cfg.RouterKeywordsPath)
	if err != nil {
		return nil, fmt.Errorf("load router vocabulary: %w", err)
	}
	heuristics, err := usecase.NewHeuristics(vocab.Coding, vocab.Reasoning, models)
	if err != nil {
		return nil, fmt.Errorf("compile router heuristics: %w", err)
	}
	classifier := usecase.NewClassifier(llmClient, cfg.ModelClassifier, models, logger)
	router := usecase.NewModelRouter(heuristics, classifier)

	retrieveUC := usecase.NewRetrieveUseCase(llmClient, chunkRepo, logger)
	answerUC := usecase.NewAnswerUseCase(retrieveUC, llmClient, usecase.AnswerConfig{
		Models:      models,
		Temperature: cfg.AnswerTemperature,
		MaxTokens:   cfg.AnswerMaxTokens,
	}, logger)
	chatUC := usecase.NewChatUseCase(router, answerUC, chatRepo, events, usecase.ChatConfig{
		TopK:         cfg.RAGTopK,
		HistoryTurns: cfg.HistoryTurns,
	}, logger)

	return &App{
		Config: cfg,
		Logger: logger,
		Events: events,
		ChatUC: chatUC,

		closeFn: func() {
			events.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
