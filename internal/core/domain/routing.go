package domain

type QueryCategory string

const (
	CategoryCoding    QueryCategory = "coding"
	CategoryReasoning QueryCategory = "reasoning"
	CategoryGeneral   QueryCategory = "general"
	CategoryUncertain QueryCategory = "uncertain"
)

type RoutingConfidence string

const (
	ConfidenceHigh     RoutingConfidence = "high"
	ConfidenceLow      RoutingConfidence = "low"
	ConfidenceFallback RoutingConfidence = "fallback"
)

type RoutingMethod string

const (
	MethodHeuristics         RoutingMethod = "heuristics"
	MethodClassifier         RoutingMethod = "classifier"
	MethodClassifierFallback RoutingMethod = "classifier_fallback"
)

// RoutingDecision is produced fresh per question and never mutated.
// Model is empty when the category is uncertain (escalation pending).
type RoutingDecision struct {
	Category   QueryCategory     `json:"category"`
	Model      string            `json:"model,omitempty"`
	Confidence RoutingConfidence `json:"confidence"`
	Method     RoutingMethod     `json:"method"`
}

// ModelSet maps routing categories to concrete model slugs plus the
// slugs the answer fallback chain falls through to.
type ModelSet struct {
	Default    string
	Coding     string
	Reasoning  string
	Classifier string
	Fallbacks  []string
}

func (m ModelSet) ForCategory(category QueryCategory) string {
	switch category {
	case CategoryCoding:
		return m.Coding
	case CategoryReasoning:
		return m.Reasoning
	default:
		return m.Default
	}
}
