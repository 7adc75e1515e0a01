package domain

import "time"

// ChatTurnEvent is the analytics record published after a turn commits.
// Consumers aggregate it; the chat pipeline never depends on delivery.
type ChatTurnEvent struct {
	UserID        string            `json:"user_id"`
	SessionID     string            `json:"session_id"`
	MessageID     string            `json:"message_id"`
	Category      QueryCategory     `json:"category"`
	Method        RoutingMethod     `json:"method"`
	Confidence    RoutingConfidence `json:"confidence"`
	ModelUsed     string            `json:"model_used"`
	FallbackDepth int               `json:"fallback_depth"`
	SourceCount   int               `json:"source_count"`
	LatencyMS     float64           `json:"latency_ms"`
	OccurredAt    time.Time         `json:"occurred_at"`
}
