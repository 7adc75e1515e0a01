package usecase

import (
	"context"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
)

// ModelRouter chains the two routing stages: the free heuristic matcher
// first, the LLM classifier only on its explicit low-confidence signal.
type ModelRouter struct {
	heuristics *Heuristics
	classifier *Classifier
}

func NewModelRouter(heuristics *Heuristics, classifier *Classifier) *ModelRouter {
	return &ModelRouter{
		heuristics: heuristics,
		classifier: classifier,
	}
}

func (r *ModelRouter) Route(ctx context.Context, message string) domain.RoutingDecision {
	decision := r.heuristics.Route(message)
	if decision.Confidence == domain.ConfidenceLow {
		return r.classifier.Classify(ctx, message)
	}
	return decision
}
