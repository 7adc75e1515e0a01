package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
)

type routerFake struct {
	decision domain.RoutingDecision
	calls    int
}

func (f *routerFake) Route(_ context.Context, _ string) domain.RoutingDecision {
	f.calls++
	return f.decision
}

type synthFake struct {
	answer     *domain.Answer
	err        error
	gotHistory []domain.ChatMessage
	gotModel   string
	gotTopK    int
	calls      int
}

func (f *synthFake) GenerateAnswer(_ context.Context, _ string, _ string, model string, history []domain.ChatMessage, topK int) (*domain.Answer, error) {
	f.calls++
	f.gotModel = model
	f.gotHistory = history
	f.gotTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type chatStoreFake struct {
	session      *domain.ChatSession
	sessionErr   error
	history      []domain.ChatMessage
	historyLimit int
	saved        *domain.TurnRecord
	saveErr      error
	created      *domain.ChatSession
}

func (f *chatStoreFake) CreateSession(_ context.Context, session domain.ChatSession) error {
	f.created = &session
	return nil
}

func (f *chatStoreFake) GetSession(_ context.Context, _, _ string) (*domain.ChatSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *chatStoreFake) ListSessions(_ context.Context, _ string) ([]domain.ChatSession, error) {
	return nil, nil
}

func (f *chatStoreFake) ListMessages(_ context.Context, _, _ string) ([]domain.ChatMessage, error) {
	return f.history, nil
}

func (f *chatStoreFake) ListRecentMessages(_ context.Context, _, _ string, limit int) ([]domain.ChatMessage, error) {
	f.historyLimit = limit
	return f.history, nil
}

func (f *chatStoreFake) SaveTurn(_ context.Context, record domain.TurnRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = &record
	return nil
}

type publisherFake struct {
	events []domain.ChatTurnEvent
	err    error
}

func (f *publisherFake) PublishChatTurn(_ context.Context, event domain.ChatTurnEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func testSession(title string) *domain.ChatSession {
	return &domain.ChatSession{
		ID:     "sess-1",
		UserID: "user-1",
		Title:  title,
	}
}

func testDecision() domain.RoutingDecision {
	return domain.RoutingDecision{
		Category:   domain.CategoryCoding,
		Model:      "routeway/devstral-2512:free",
		Confidence: domain.ConfidenceHigh,
		Method:     domain.MethodHeuristics,
	}
}

func newTestChatUseCase(store *chatStoreFake, synth *synthFake, router *routerFake, events *publisherFake) *ChatUseCase {
	var pub = events
	if pub == nil {
		pub = &publisherFake{}
	}
	return NewChatUseCase(router, synth, store, pub, ChatConfig{TopK: 5, HistoryTurns: 10}, nil)
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	store := &chatStoreFake{session: testSession(domain.DefaultSessionTitle)}
	synth := &synthFake{}
	router := &routerFake{decision: testDecision()}
	uc := newTestChatUseCase(store, synth, router, nil)

	_, err := uc.SendMessage(context.Background(), "user-1", "sess-1", "   \n\t ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if router.calls != 0 || synth.calls != 0 {
		t.Fatalf("empty content must short-circuit before routing")
	}
}

func TestSendMessagePropagatesSessionNotFound(t *testing.T) {
	store := &chatStoreFake{sessionErr: domain.WrapError(domain.ErrNotFound, "get chat session", errors.New("no rows"))}
	uc := newTestChatUseCase(store, &synthFake{}, &routerFake{decision: testDecision()}, nil)

	_, err := uc.SendMessage(context.Background(), "user-1", "missing", "hi")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSendMessagePersistsFullTurn(t *testing.T) {
	store := &chatStoreFake{session: testSession("Algebra help")}
	synth := &synthFake{answer: &domain.Answer{
		Text:      "the determinant is...",
		ModelUsed: "routeway/devstral-2512:free",
		Attempts:  1,
		Sources: []domain.RetrievedChunk{
			{ChunkID: 10, DocumentID: "doc-1", Score: 0.91, Snippet: "det(A) ="},
		},
	}}
	router := &routerFake{decision: testDecision()}
	events := &publisherFake{}
	uc := newTestChatUseCase(store, synth, router, events)

	turn, err := uc.SendMessage(context.Background(), "user-1", "sess-1", "what is a determinant")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if store.saved == nil {
		t.Fatalf("expected SaveTurn to be called")
	}
	record := store.saved
	if record.UserMessage.Role != domain.RoleUser || record.UserMessage.Content != "what is a determinant" {
		t.Fatalf("unexpected user message: %+v", record.UserMessage)
	}
	if record.AssistantMessage.Content != "the determinant is..." {
		t.Fatalf("unexpected assistant content: %q", record.AssistantMessage.Content)
	}
	if record.AssistantMessage.ModelUsed != "routeway/devstral-2512:free" {
		t.Fatalf("unexpected model_used: %q", record.AssistantMessage.ModelUsed)
	}
	if record.AssistantMessage.Routing == nil || record.AssistantMessage.Routing.Category != domain.CategoryCoding {
		t.Fatalf("assistant message must carry the routing decision")
	}
	if !record.AssistantMessage.CreatedAt.After(record.UserMessage.CreatedAt) {
		t.Fatalf("assistant message must order after the user message")
	}
	if len(record.Sources) != 1 || record.Sources[0].ChunkID != 10 {
		t.Fatalf("unexpected sources: %+v", record.Sources)
	}
	if record.Sources[0].MessageID != record.AssistantMessage.ID {
		t.Fatalf("sources must reference the assistant message")
	}
	if record.NewTitle != "" {
		t.Fatalf("explicitly titled sessions must keep their title, got %q", record.NewTitle)
	}

	if turn.Routing.Method != domain.MethodHeuristics {
		t.Fatalf("unexpected routing in response: %+v", turn.Routing)
	}
	if synth.gotModel != "routeway/devstral-2512:free" {
		t.Fatalf("the routed model must reach the synthesizer, got %q", synth.gotModel)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(events.events))
	}
	if events.events[0].FallbackDepth != 0 || events.events[0].SourceCount != 1 {
		t.Fatalf("unexpected event payload: %+v", events.events[0])
	}
}

func TestSendMessageDeduplicatesCitations(t *testing.T) {
	store := &chatStoreFake{session: testSession("Titled")}
	synth := &synthFake{answer: &domain.Answer{
		Text:      "answer",
		ModelUsed: "routeway/glm-4.5-air:free",
		Attempts:  1,
		Sources: []domain.RetrievedChunk{
			{ChunkID: 1, DocumentID: "doc-1", Score: 0.9},
			{ChunkID: 2, DocumentID: "doc-1", Score: 0.8},
			{ChunkID: 1, DocumentID: "doc-1", Score: 0.7},
		},
	}}
	uc := newTestChatUseCase(store, synth, &routerFake{decision: testDecision()}, nil)

	_, err := uc.SendMessage(context.Background(), "user-1", "sess-1", "hi there everyone")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if len(store.saved.Sources) != 2 {
		t.Fatalf("expected deduplicated sources, got %+v", store.saved.Sources)
	}
	if store.saved.Sources[0].ChunkID != 1 || store.saved.Sources[1].ChunkID != 2 {
		t.Fatalf("dedupe must keep first occurrence order, got %+v", store.saved.Sources)
	}
	if store.saved.Sources[0].SimilarityScore != 0.9 {
		t.Fatalf("dedupe must keep the first score, got %v", store.saved.Sources[0].SimilarityScore)
	}
}

func TestSendMessageAutoTitlesDefaultSessions(t *testing.T) {
	store := &chatStoreFake{session: testSession(domain.DefaultSessionTitle)}
	synth := &synthFake{answer: &domain.Answer{Text: "a", ModelUsed: "m", Attempts: 1}}
	uc := newTestChatUseCase(store, synth, &routerFake{decision: testDecision()}, nil)

	long := strings.Repeat("x", 200)
	_, err := uc.SendMessage(context.Background(), "user-1", "sess-1", long)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if got := store.saved.NewTitle; got != strings.Repeat("x", domain.AutoTitleLimit) {
		t.Fatalf("expected %d-char auto title, got %d chars", domain.AutoTitleLimit, len(got))
	}
}

func TestSendMessageSkipsPersistWhenAllModelsFail(t *testing.T) {
	store := &chatStoreFake{session: testSession(domain.DefaultSessionTitle)}
	synth := &synthFake{err: domain.WrapError(domain.ErrModelsExhausted, "generate answer", errors.New("all down"))}
	uc := newTestChatUseCase(store, synth, &routerFake{decision: testDecision()}, nil)

	_, err := uc.SendMessage(context.Background(), "user-1", "sess-1", "hello")
	if !domain.IsKind(err, domain.ErrModelsExhausted) {
		t.Fatalf("expected ErrModelsExhausted, got %v", err)
	}
	if store.saved != nil {
		t.Fatalf("a failed turn must persist nothing")
	}
}

func TestSendMessageSurvivesEventPublishFailure(t *testing.T) {
	store := &chatStoreFake{session: testSession("Titled")}
	synth := &synthFake{answer: &domain.Answer{Text: "a", ModelUsed: "m", Attempts: 2}}
	events := &publisherFake{err: errors.New("nats down")}
	uc := newTestChatUseCase(store, synth, &routerFake{decision: testDecision()}, events)

	turn, err := uc.SendMessage(context.Background(), "user-1", "sess-1", "hello")
	if err != nil {
		t.Fatalf("event publishing must be best effort, got %v", err)
	}
	if turn == nil || store.saved == nil {
		t.Fatalf("the turn must still be persisted and returned")
	}
}

func TestSendMessageLoadsBoundedHistory(t *testing.T) {
	store := &chatStoreFake{
		session: testSession("Titled"),
		history: []domain.ChatMessage{{Role: domain.RoleUser, Content: "earlier"}},
	}
	synth := &synthFake{answer: &domain.Answer{Text: "a", ModelUsed: "m", Attempts: 1}}
	uc := newTestChatUseCase(store, synth, &routerFake{decision: testDecision()}, nil)

	_, err := uc.SendMessage(context.Background(), "user-1", "sess-1", "hello")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if store.historyLimit != 20 {
		t.Fatalf("expected 10 turns = 20 rows, got limit %d", store.historyLimit)
	}
	if len(synth.gotHistory) != 1 || synth.gotHistory[0].Content != "earlier" {
		t.Fatalf("history must reach the synthesizer, got %+v", synth.gotHistory)
	}
	if synth.gotTopK != 5 {
		t.Fatalf("unexpected topK: %d", synth.gotTopK)
	}
}

func TestCreateSessionDefaultsAndCapsTitle(t *testing.T) {
	store := &chatStoreFake{}
	uc := newTestChatUseCase(store, &synthFake{}, &routerFake{decision: testDecision()}, nil)

	session, err := uc.CreateSession(context.Background(), "user-1", "   ")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.Title != domain.DefaultSessionTitle {
		t.Fatalf("blank titles must default, got %q", session.Title)
	}
	if session.ID == "" || session.UserID != "user-1" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.CreatedAt.IsZero() || !session.CreatedAt.Equal(session.UpdatedAt) {
		t.Fatalf("timestamps must be set together, got %+v", session)
	}

	long, err := uc.CreateSession(context.Background(), "user-1", strings.Repeat("t", 300))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if len(long.Title) != maxTitleLength {
		t.Fatalf("expected title capped at %d, got %d", maxTitleLength, len(long.Title))
	}
	if store.created == nil || store.created.Title != long.Title {
		t.Fatalf("the capped title must be what gets stored")
	}
}

func TestCreateSessionCapsTitleByRunes(t *testing.T) {
	store := &chatStoreFake{}
	uc := newTestChatUseCase(store, &synthFake{}, &routerFake{decision: testDecision()}, nil)

	session, err := uc.CreateSession(context.Background(), "user-1", strings.Repeat("é", 300))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if got := utf8.RuneCountInString(session.Title); got != maxTitleLength {
		t.Fatalf("expected %d runes, got %d", maxTitleLength, got)
	}
	if !utf8.ValidString(session.Title) {
		t.Fatalf("capping must not split a multibyte rune: %q", session.Title)
	}
}

func TestListMessagesChecksOwnershipFirst(t *testing.T) {
	store := &chatStoreFake{sessionErr: domain.WrapError(domain.ErrNotFound, "get chat session", errors.New("no rows"))}
	uc := newTestChatUseCase(store, &synthFake{}, &routerFake{decision: testDecision()}, nil)

	_, err := uc.ListMessages(context.Background(), "user-2", "sess-1")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign session, got %v", err)
	}
}
