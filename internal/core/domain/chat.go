package domain

import "time"

const DefaultSessionTitle = "New Chat"

// AutoTitleLimit caps auto-generated session titles at the first 80
// characters of the opening message.
const AutoTitleLimit = 80

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is one turn in a session, immutable once created.
// ModelUsed and Routing are populated for assistant messages only.
type ChatMessage struct {
	ID        string           `json:"id"`
	ChatID    string           `json:"chat_id"`
	UserID    string           `json:"user_id"`
	Role      MessageRole      `json:"role"`
	Content   string           `json:"content"`
	ModelUsed string           `json:"model_used,omitempty"`
	Routing   *RoutingDecision `json:"routing,omitempty"`
	Sources   []MessageSource  `json:"sources,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// MessageSource links one assistant message to one retrieved chunk.
// Unique per (message, chunk) pair; duplicates are dropped before persistence.
type MessageSource struct {
	MessageID       string  `json:"-"`
	ChunkID         int64   `json:"chunk_id"`
	DocumentID      string  `json:"document_id"`
	SimilarityScore float64 `json:"similarity_score"`
	Snippet         string  `json:"snippet"`
}

// PromptMessage is one entry of the chat-completion request payload.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatTurn is the response envelope for one send-message operation.
// The assistant message carries its citations inline.
type ChatTurn struct {
	UserMessage      ChatMessage     `json:"user_message"`
	AssistantMessage ChatMessage     `json:"assistant_message"`
	Routing          RoutingDecision `json:"router"`
}

// TurnRecord is everything one completed turn persists atomically:
// both messages, the deduplicated citations, the session touch and the
// optional auto-title. Provider calls are all finished before this is
// written, so a failed turn leaves no rows behind.
type TurnRecord struct {
	Session          ChatSession
	UserMessage      ChatMessage
	AssistantMessage ChatMessage
	Sources          []MessageSource
	NewTitle         string
	TouchedAt        time.Time
}
