package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
	"github.com/mzhuravlev/ai-tutor-backend/internal/core/ports"
)

const maxTitleLength = 255

type ChatConfig struct {
	TopK         int
	HistoryTurns int
}

// ChatUseCase orchestrates one send-message operation: ownership check,
// routing, retrieval-grounded synthesis, then a single atomic write of
// the whole turn. Provider calls all precede the transaction, so a
// failed chain persists nothing.
type ChatUseCase struct {
	router ports.QueryRouter
	synth  ports.AnswerSynthesizer
	store  ports.ChatStore
	events ports.EventPublisher
	cfg    ChatConfig
	logger *slog.Logger
}

func NewChatUseCase(
	router ports.QueryRouter,
	synth ports.AnswerSynthesizer,
	store ports.ChatStore,
	events ports.EventPublisher,
	cfg ChatConfig,
	logger *slog.Logger,
) *ChatUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		router: router,
		synth:  synth,
		store:  store,
		events: events,
		cfg:    cfg,
		logger: logger,
	}
}

func (uc *ChatUseCase) CreateSession(ctx context.Context, userID, title string) (*domain.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultSessionTitle
	}
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}

	now := time.Now().UTC()
	session := domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

func (uc *ChatUseCase) ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	return uc.store.ListSessions(ctx, userID)
}

func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, sessionID string) ([]domain.ChatMessage, error) {
	if _, err := uc.store.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return uc.store.ListMessages(ctx, userID, sessionID)
}

func (uc *ChatUseCase) SendMessage(ctx context.Context, userID, sessionID, content string) (*domain.ChatTurn, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "send message", fmt.Errorf("content is required"))
	}

	session, err := uc.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	decision := uc.router.Route(ctx, content)

	// Each turn is two messages, so the row limit doubles the turn cap.
	history, err := uc.store.ListRecentMessages(ctx, userID, sessionID, uc.cfg.HistoryTurns*2)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	answer, err := uc.synth.GenerateAnswer(ctx, content, userID, decision.Model, history, uc.cfg.TopK)
	if err != nil {
		uc.logger.Error("chat answering failed",
			"user_id", userID,
			"session_id", sessionID,
			"error", err,
		)
		return nil, err
	}

	now := time.Now().UTC()
	userMessage := domain.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    sessionID,
		UserID:    userID,
		Role:      domain.RoleUser,
		Content:   content,
		CreatedAt: now,
	}

	routing := decision
	assistantMessage := domain.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    sessionID,
		UserID:    userID,
		Role:      domain.RoleAssistant,
		Content:   answer.Text,
		ModelUsed: answer.ModelUsed,
		Routing:   &routing,
		CreatedAt: now.Add(time.Millisecond),
	}

	sources := dedupeSources(assistantMessage.ID, answer.Sources)
	assistantMessage.Sources = sources

	record := domain.TurnRecord{
		Session:          *session,
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		Sources:          sources,
		TouchedAt:        now,
	}
	if session.Title == domain.DefaultSessionTitle {
		record.NewTitle = autoTitle(content)
	}

	if err := uc.store.SaveTurn(ctx, record); err != nil {
		return nil, fmt.Errorf("save turn: %w", err)
	}

	uc.publishTurnEvent(ctx, userID, sessionID, assistantMessage.ID, decision, answer, len(sources), time.Since(started))

	return &domain.ChatTurn{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		Routing:          decision,
	}, nil
}

func (uc *ChatUseCase) publishTurnEvent(
	ctx context.Context,
	userID, sessionID, messageID string,
	decision domain.RoutingDecision,
	answer *domain.Answer,
	sourceCount int,
	latency time.Duration,
) {
	if uc.events == nil {
		return
	}
	event := domain.ChatTurnEvent{
		UserID:        userID,
		SessionID:     sessionID,
		MessageID:     messageID,
		Category:      decision.Category,
		Method:        decision.Method,
		Confidence:    decision.Confidence,
		ModelUsed:     answer.ModelUsed,
		FallbackDepth: answer.Attempts - 1,
		SourceCount:   sourceCount,
		LatencyMS:     float64(latency.Microseconds()) / 1000.0,
		OccurredAt:    time.Now().UTC(),
	}
	if err := uc.events.PublishChatTurn(ctx, event); err != nil {
		uc.logger.Warn("publish chat turn event failed",
			"user_id", userID,
			"session_id", sessionID,
			"error", err,
		)
	}
}

// dedupeSources drops repeated chunk ids, keeping first occurrence
// order. The citations table has a unique (message, chunk) constraint.
func dedupeSources(messageID string, sources []domain.RetrievedChunk) []domain.MessageSource {
	seen := make(map[int64]struct{}, len(sources))
	out := make([]domain.MessageSource, 0, len(sources))
	for _, src := range sources {
		if _, ok := seen[src.ChunkID]; ok {
			continue
		}
		seen[src.ChunkID] = struct{}{}
		out = append(out, domain.MessageSource{
			MessageID:       messageID,
			ChunkID:         src.ChunkID,
			DocumentID:      src.DocumentID,
			SimilarityScore: src.Score,
			Snippet:         src.Snippet,
		})
	}
	return out
}

// autoTitle trims the opening message to the first 80 characters for
// sessions still carrying the default title.
func autoTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= domain.AutoTitleLimit {
		return content
	}
	return string(runes[:domain.AutoTitleLimit])
}
