package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
	"github.com/mzhuravlev/ai-tutor-backend/internal/core/ports"
)

const answerSystemTemplate = `You are a knowledgeable and helpful AI tutor. Answer the student's question accurately and clearly.

When relevant context is provided below, base your answer on it and cite sources using [Source N] notation where N is the source number. If the context does not contain enough information to answer fully, supplement with your general knowledge and say so.

Context from the student's uploaded documents:
%s
`

const answerNoContextSystem = `You are a knowledgeable and helpful AI tutor. Answer the student's question accurately and clearly. No document context is available for this question.`

type AnswerConfig struct {
	Models      domain.ModelSet
	Temperature float64
	MaxTokens   int
}

// AnswerUseCase builds the grounded prompt and drives the model
// fallback chain. Retrieval failure degrades to a context-free answer;
// only chain exhaustion is fatal.
type AnswerUseCase struct {
	retriever ports.ContextRetriever
	completer ports.ChatCompleter
	cfg       AnswerConfig
	logger    *slog.Logger
}

func NewAnswerUseCase(retriever ports.ContextRetriever, completer ports.ChatCompleter, cfg AnswerConfig, logger *slog.Logger) *AnswerUseCase {
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{
		retriever: retriever,
		completer: completer,
		cfg:       cfg,
		logger:    logger,
	}
}

func (uc *AnswerUseCase) GenerateAnswer(ctx context.Context, question, userID, model string, history []domain.ChatMessage, topK int) (*domain.Answer, error) {
	sources, err := uc.retriever.Retrieve(ctx, question, userID, topK)
	if err != nil {
		uc.logger.Warn("retrieval failed, proceeding without context",
			"user_id", userID,
			"error", err,
		)
		sources = nil
	}

	messages := uc.buildMessages(question, sources, history)
	text, modelUsed, attempts, err := uc.completeWithFallback(ctx, model, messages)
	if err != nil {
		return nil, err
	}

	return &domain.Answer{
		Text:      text,
		ModelUsed: modelUsed,
		Attempts:  attempts,
		Sources:   sources,
	}, nil
}

func (uc *AnswerUseCase) buildMessages(question string, sources []domain.RetrievedChunk, history []domain.ChatMessage) []domain.PromptMessage {
	system := answerNoContextSystem
	if len(sources) > 0 {
		system = fmt.Sprintf(answerSystemTemplate, buildContextBlock(sources))
	}

	messages := make([]domain.PromptMessage, 0, len(history)+2)
	messages = append(messages, domain.PromptMessage{Role: "system", Content: system})
	for _, turn := range history {
		if turn.Role != domain.RoleUser && turn.Role != domain.RoleAssistant {
			continue
		}
		if turn.Content == "" {
			continue
		}
		messages = append(messages, domain.PromptMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, domain.PromptMessage{Role: "user", Content: question})
	return messages
}

func buildContextBlock(sources []domain.RetrievedChunk) string {
	lines := make([]string, 0, len(sources))
	for i, src := range sources {
		label := src.Filename
		if label == "" {
			label = src.DocumentTitle
		}
		lines = append(lines, fmt.Sprintf("[Source %d] %s (%s):\n%s", i+1, label, src.SourceType, strings.TrimSpace(src.Snippet)))
	}
	return strings.Join(lines, "\n\n")
}

func (uc *AnswerUseCase) completeWithFallback(ctx context.Context, model string, messages []domain.PromptMessage) (string, string, int, error) {
	chain := buildFallbackChain(model, uc.cfg.Models.Fallbacks)
	if len(chain) == 0 {
		return "", "", 0, domain.WrapError(domain.ErrModelsExhausted, "generate answer", fmt.Errorf("no candidate models configured"))
	}

	var lastErr error
	for attempt, candidate := range chain {
		text, err := uc.completer.Complete(ctx, candidate, messages, uc.cfg.Temperature, uc.cfg.MaxTokens)
		if err == nil {
			if candidate != model {
				uc.logger.Info("primary model failed, used fallback",
					"requested_model", model,
					"model_used", candidate,
				)
			}
			return text, candidate, attempt + 1, nil
		}
		uc.logger.Warn("model attempt failed", "model", candidate, "error", err)
		lastErr = err
	}

	return "", "", len(chain), domain.WrapError(domain.ErrModelsExhausted, "generate answer", lastErr)
}

// buildFallbackChain orders the routed model before the fixed fallback
// slugs, dropping duplicates and empty entries.
func buildFallbackChain(model string, fallbacks []string) []string {
	chain := make([]string, 0, len(fallbacks)+1)
	seen := make(map[string]struct{}, len(fallbacks)+1)
	for _, candidate := range append([]string{model}, fallbacks...) {
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		chain = append(chain, candidate)
	}
	return chain
}
