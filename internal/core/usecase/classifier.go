package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
	"github.com/mzhuravlev/ai-tutor-backend/internal/core/ports"
)

const classifierSystemPrompt = `You are a query classifier for an AI tutoring system. Classify the user's message into exactly one of these categories:
  coding    - the message is primarily about programming or code
  reasoning - the message requires multi-step mathematical, logical, or scientific reasoning
  general   - everything else (factual question, concept explanation, etc.)

Respond ONLY with a JSON object on a single line, no markdown:
{"category": "<coding|reasoning|general>"}`

const classifierMaxTokens = 32

// Classifier is the second routing stage, invoked only when heuristics
// is unconfident. It fails closed: any trouble yields the default model
// with fallback confidence, never an error.
type Classifier struct {
	completer ports.ChatCompleter
	model     string
	models    domain.ModelSet
	logger    *slog.Logger
}

func NewClassifier(completer ports.ChatCompleter, classifierModel string, models domain.ModelSet, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		completer: completer,
		model:     classifierModel,
		models:    models,
		logger:    logger,
	}
}

func (c *Classifier) Classify(ctx context.Context, message string) domain.RoutingDecision {
	raw, err := c.completer.Complete(ctx, c.model, []domain.PromptMessage{
		{Role: "system", Content: classifierSystemPrompt},
		{Role: "user", Content: message},
	}, 0, classifierMaxTokens)
	if err != nil {
		c.logger.Warn("classifier failed, falling back to general", "error", err)
		return c.fallbackDecision()
	}

	var parsed struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(stripMarkdownFence(raw)), &parsed); err != nil {
		c.logger.Warn("classifier returned malformed json, falling back to general", "error", err)
		return c.fallbackDecision()
	}

	category := domain.QueryCategory(strings.ToLower(strings.TrimSpace(parsed.Category)))
	switch category {
	case domain.CategoryCoding, domain.CategoryReasoning, domain.CategoryGeneral:
	default:
		category = domain.CategoryGeneral
	}

	return domain.RoutingDecision{
		Category:   category,
		Model:      c.models.ForCategory(category),
		Confidence: domain.ConfidenceHigh,
		Method:     domain.MethodClassifier,
	}
}

func (c *Classifier) fallbackDecision() domain.RoutingDecision {
	return domain.RoutingDecision{
		Category:   domain.CategoryGeneral,
		Model:      c.models.Default,
		Confidence: domain.ConfidenceFallback,
		Method:     domain.MethodClassifierFallback,
	}
}

// stripMarkdownFence unwraps ```json ... ``` blocks some models insist
// on emitting despite the single-line instruction.
func stripMarkdownFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	parts := strings.Split(raw, "```")
	if len(parts) < 3 {
		return raw
	}
	inner := strings.TrimSpace(parts[len(parts)-2])
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}
