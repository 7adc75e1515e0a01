package ports

import (
	"context"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
)

// ChatService is the inbound contract the HTTP layer drives.
type ChatService interface {
	CreateSession(ctx context.Context, userID, title string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error)
	ListMessages(ctx context.Context, userID, sessionID string) ([]domain.ChatMessage, error)
	SendMessage(ctx context.Context, userID, sessionID, content string) (*domain.ChatTurn, error)
}

// QueryRouter selects the model that should answer a question. It never
// fails: classifier trouble degrades to the default model.
type QueryRouter interface {
	Route(ctx context.Context, message string) domain.RoutingDecision
}

// ContextRetriever finds the chunks most relevant to a question, scoped
// to the requesting user and each document's current ingestion run.
type ContextRetriever interface {
	Retrieve(ctx context.Context, queryText, userID string, topK int) ([]domain.RetrievedChunk, error)
}

// AnswerSynthesizer produces a grounded answer for a routed question.
type AnswerSynthesizer interface {
	GenerateAnswer(ctx context.Context, question, userID, model string, history []domain.ChatMessage, topK int) (*domain.Answer, error)
}
