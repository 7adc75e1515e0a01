package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
)

// shortMessageWords is the escalation boundary: a signal-free message
// below this word count goes to the LLM classifier instead of defaulting.
const shortMessageWords = 6

// Heuristics is the zero-latency first routing stage: keyword counting
// against fixed vocabularies. Pure, no I/O, no failure mode.
type Heuristics struct {
	coding    *regexp.Regexp
	reasoning *regexp.Regexp
	models    domain.ModelSet
}

func NewHeuristics(codingKeywords, reasoningKeywords []string, models domain.ModelSet) (*Heuristics, error) {
	coding, err := compileVocabulary(codingKeywords)
	if err != nil {
		return nil, fmt.Errorf("compile coding vocabulary: %w", err)
	}
	reasoning, err := compileVocabulary(reasoningKeywords)
	if err != nil {
		return nil, fmt.Errorf("compile reasoning vocabulary: %w", err)
	}
	return &Heuristics{
		coding:    coding,
		reasoning: reasoning,
		models:    models,
	}, nil
}

func compileVocabulary(keywords []string) (*regexp.Regexp, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("empty keyword set")
	}
	pattern := `(?i)\b(` + strings.Join(keywords, "|") + `)\b`
	return regexp.Compile(pattern)
}

// Route applies keyword heuristics. Coding signal dominates ties with
// reasoning signal; a short message with no signal at all escalates.
func (h *Heuristics) Route(message string) domain.RoutingDecision {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return h.decision(domain.CategoryGeneral, h.models.Default, domain.ConfidenceHigh)
	}

	codingHits := len(h.coding.FindAllString(msg, -1))
	reasoningHits := len(h.reasoning.FindAllString(msg, -1))

	if codingHits > 0 && codingHits >= reasoningHits {
		return h.decision(domain.CategoryCoding, h.models.Coding, domain.ConfidenceHigh)
	}
	if reasoningHits > 0 {
		return h.decision(domain.CategoryReasoning, h.models.Reasoning, domain.ConfidenceHigh)
	}
	if len(strings.Fields(msg)) < shortMessageWords {
		return h.decision(domain.CategoryUncertain, "", domain.ConfidenceLow)
	}
	return h.decision(domain.CategoryGeneral, h.models.Default, domain.ConfidenceHigh)
}

func (h *Heuristics) decision(category domain.QueryCategory, model string, confidence domain.RoutingConfidence) domain.RoutingDecision {
	return domain.RoutingDecision{
		Category:   category,
		Model:      model,
		Confidence: confidence,
		Method:     domain.MethodHeuristics,
	}
}
