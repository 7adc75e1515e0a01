package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) CreateSession(ctx context.Context, session domain.ChatSession) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chats (id, user_id, title, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
`, session.ID, session.UserID, session.Title, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert chat session: %w", err)
	}
	return nil
}

// GetSession scopes the lookup by user id. A session owned by another
// user and a nonexistent session are indistinguishable to the caller.
func (r *ChatRepository) GetSession(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, title, created_at, updated_at
FROM chats
WHERE id = $1 AND user_id = $2
`, sessionID, userID)

	var session domain.ChatSession
	if err := row.Scan(&session.ID, &session.UserID, &session.Title, &session.CreatedAt, &session.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get chat session", fmt.Errorf("session %s", sessionID))
		}
		return nil, fmt.Errorf("scan chat session: %w", err)
	}
	return &session, nil
}

func (r *ChatRepository) ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, title, created_at, updated_at
FROM chats
WHERE user_id = $1
ORDER BY updated_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChatSession, 0)
	for rows.Next() {
		var session domain.ChatSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.Title, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat session: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat sessions: %w", err)
	}
	return out, nil
}

func (r *ChatRepository) ListMessages(ctx context.Context, userID, sessionID string) ([]domain.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, chat_id, user_id, role, content, COALESCE(model_used, ''), router_json, created_at
FROM chat_messages
WHERE chat_id = $1 AND user_id = $2
ORDER BY created_at ASC
`, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.ChatMessage, 0)
	index := make(map[string]int)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		index[msg.ID] = len(messages)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	if len(messages) == 0 {
		return messages, nil
	}

	sourceRows, err := r.db.QueryContext(ctx, `
SELECT s.message_id, s.chunk_id, s.document_id, s.similarity_score, COALESCE(s.snippet, '')
FROM chat_message_sources s
JOIN chat_messages m ON m.id = s.message_id
WHERE m.chat_id = $1 AND m.user_id = $2
ORDER BY s.id ASC
`, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("list message sources: %w", err)
	}
	defer sourceRows.Close()

	for sourceRows.Next() {
		var src domain.MessageSource
		if err := sourceRows.Scan(&src.MessageID, &src.ChunkID, &src.DocumentID, &src.SimilarityScore, &src.Snippet); err != nil {
			return nil, fmt.Errorf("scan message source: %w", err)
		}
		if i, ok := index[src.MessageID]; ok {
			messages[i].Sources = append(messages[i].Sources, src)
		}
	}
	if err := sourceRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message sources: %w", err)
	}
	return messages, nil
}

func (r *ChatRepository) ListRecentMessages(ctx context.Context, userID, sessionID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, chat_id, user_id, role, content, COALESCE(model_used, ''), router_json, created_at
FROM chat_messages
WHERE chat_id = $1 AND user_id = $2 AND role IN ('user', 'assistant')
ORDER BY created_at DESC
LIMIT $3
`, sessionID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent messages: %w", err)
	}

	// Returned in descending order from SQL; reverse to keep chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SaveTurn commits one completed turn atomically: user message,
// assistant message, citations, session touch and optional auto-title.
// All provider calls have already finished when this runs, so a failure
// anywhere rolls back the full turn.
func (r *ChatRepository) SaveTurn(ctx context.Context, record domain.TurnRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin turn tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertMessage(ctx, tx, record.UserMessage); err != nil {
		return err
	}
	if err := insertMessage(ctx, tx, record.AssistantMessage); err != nil {
		return err
	}

	for _, src := range record.Sources {
		_, err := tx.ExecContext(ctx, `
INSERT INTO chat_message_sources (message_id, chunk_id, document_id, similarity_score, snippet)
VALUES ($1, $2, $3, $4, $5)
`, record.AssistantMessage.ID, src.ChunkID, src.DocumentID, src.SimilarityScore, src.Snippet)
		if err != nil {
			return fmt.Errorf("insert message source: %w", err)
		}
	}

	if record.NewTitle != "" {
		_, err = tx.ExecContext(ctx, `
UPDATE chats SET title = $3, updated_at = $4 WHERE id = $1 AND user_id = $2
`, record.Session.ID, record.Session.UserID, record.NewTitle, record.TouchedAt)
	} else {
		_, err = tx.ExecContext(ctx, `
UPDATE chats SET updated_at = $3 WHERE id = $1 AND user_id = $2
`, record.Session.ID, record.Session.UserID, record.TouchedAt)
	}
	if err != nil {
		return fmt.Errorf("touch chat session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turn tx: %w", err)
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, msg domain.ChatMessage) error {
	var routerJSON any
	if msg.Routing != nil {
		raw, err := json.Marshal(msg.Routing)
		if err != nil {
			return fmt.Errorf("marshal routing decision: %w", err)
		}
		routerJSON = string(raw)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := tx.ExecContext(ctx, `
INSERT INTO chat_messages (id, chat_id, user_id, role, content, model_used, router_json, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, msg.ID, msg.ChatID, msg.UserID, string(msg.Role), msg.Content, nullableString(msg.ModelUsed), routerJSON, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert %s message: %w", msg.Role, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (domain.ChatMessage, error) {
	var msg domain.ChatMessage
	var role string
	var routerJSON sql.NullString
	if err := row.Scan(&msg.ID, &msg.ChatID, &msg.UserID, &role, &msg.Content, &msg.ModelUsed, &routerJSON, &msg.CreatedAt); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("scan message: %w", err)
	}
	msg.Role = domain.MessageRole(role)
	if routerJSON.Valid && routerJSON.String != "" {
		var decision domain.RoutingDecision
		if err := json.Unmarshal([]byte(routerJSON.String), &decision); err == nil {
			msg.Routing = &decision
		}
	}
	return msg, nil
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
