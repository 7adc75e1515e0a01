package ports

import (
	"context"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
)

// EmbeddingProvider turns query text into a vector of domain.EmbeddingDim
// components, truncating wider provider output.
type EmbeddingProvider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChatCompleter performs one chat-completion call against a concrete model.
type ChatCompleter interface {
	Complete(ctx context.Context, model string, messages []domain.PromptMessage, temperature float64, maxTokens int) (string, error)
}

// ChunkSearcher runs the scoped nearest-neighbour query: only chunks of
// the requesting user whose document is live and whose ingestion run is
// the document's current one are candidates.
type ChunkSearcher interface {
	SearchCurrent(ctx context.Context, userID string, queryVector []float32, limit int) ([]domain.ChunkMatch, error)
}

// ChatStore persists sessions, messages and citations. SaveTurn writes
// one completed turn as a single transaction.
type ChatStore interface {
	CreateSession(ctx context.Context, session domain.ChatSession) error
	GetSession(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error)
	ListMessages(ctx context.Context, userID, sessionID string) ([]domain.ChatMessage, error)
	ListRecentMessages(ctx context.Context, userID, sessionID string, limit int) ([]domain.ChatMessage, error)
	SaveTurn(ctx context.Context, record domain.TurnRecord) error
}

// EventPublisher emits analytics events. Best effort: callers log and
// continue on failure.
type EventPublisher interface {
	PublishChatTurn(ctx context.Context, event domain.ChatTurnEvent) error
}

// EventConsumer is the worker-side subscription; it blocks until ctx is done.
type EventConsumer interface {
	SubscribeChatTurns(ctx context.Context, handler func(context.Context, domain.ChatTurnEvent) error) error
}
