package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/ports"
	"github.com/mzhuravlev/ai-tutor-backend/internal/observability/metrics"
)

type RouterConfig struct {
	ServiceName       string
	JWTSecret         string
	APIRateLimitRPS   float64
	APIRateLimitBurst int
}

type Router struct {
	chat    ports.ChatService
	metrics *metrics.HTTPServerMetrics
	cfg     RouterConfig
}

func NewRouter(chat ports.ChatService, m *metrics.HTTPServerMetrics, cfg RouterConfig) *Router {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api"
	}
	return &Router{
		chat:    chat,
		metrics: m,
		cfg:     cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/chat/sessions", rt.createSession)
	api.HandleFunc("GET /api/chat/sessions", rt.listSessions)
	api.HandleFunc("GET /api/chat/sessions/{session_id}/messages", rt.listMessages)
	api.HandleFunc("POST /api/chat/sessions/{session_id}/messages", rt.sendMessage)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.Handle("/api/", authMiddleware(rt.cfg.JWTSecret, api))

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	session, err := rt.chat.CreateSession(r.Context(), userIDFromContext(r.Context()), req.Title)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (rt *Router) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := rt.chat.ListSessions(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (rt *Router) listMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	messages, err := rt.chat.ListMessages(r.Context(), userIDFromContext(r.Context()), sessionID)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (rt *Router) sendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	turn, err := rt.chat.SendMessage(r.Context(), userIDFromContext(r.Context()), sessionID, req.Content)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRoutingDecision(
			rt.cfg.ServiceName,
			string(turn.Routing.Category),
			string(turn.Routing.Method),
			string(turn.Routing.Confidence),
		)
		rt.metrics.RecordModelUsage(rt.cfg.ServiceName, turn.AssistantMessage.ModelUsed)
		rt.metrics.RecordRetrievalObservation(rt.cfg.ServiceName, len(turn.AssistantMessage.Sources))
		rt.metrics.RecordTurnDuration(rt.cfg.ServiceName, time.Since(start))
	}

	writeJSON(w, http.StatusOK, turn)
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	writeJSON(w, status, map[string]string{"error": clientErrorMessage(err, status)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
