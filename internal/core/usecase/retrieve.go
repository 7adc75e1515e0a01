package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
	"github.com/mzhuravlev/ai-tutor-backend/internal/core/ports"
)

const defaultTopK = 5

// RetrieveUseCase embeds the query and runs the user-scoped vector
// search. It returns citation-ready chunks, most similar first.
type RetrieveUseCase struct {
	embedder ports.EmbeddingProvider
	chunks   ports.ChunkSearcher
	logger   *slog.Logger
}

func NewRetrieveUseCase(embedder ports.EmbeddingProvider, chunks ports.ChunkSearcher, logger *slog.Logger) *RetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveUseCase{
		embedder: embedder,
		chunks:   chunks,
		logger:   logger,
	}
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, queryText, userID string, topK int) ([]domain.RetrievedChunk, error) {
	query := strings.TrimSpace(queryText)
	if query == "" {
		// Short-circuit: no provider call for a blank query.
		return []domain.RetrievedChunk{}, nil
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := uc.chunks.SearchCurrent(ctx, userID, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	results := make([]domain.RetrievedChunk, 0, len(matches))
	for _, match := range matches {
		results = append(results, domain.RetrievedChunk{
			ChunkID:       match.ChunkID,
			DocumentID:    match.DocumentID,
			Snippet:       match.Snippet,
			Score:         similarityScore(match.Distance),
			DocumentTitle: match.DocumentTitle,
			SourceType:    match.SourceType,
			Filename:      match.Filename,
		})
	}

	uc.logger.Debug("retrieve_chunks",
		"user_id", userID,
		"top_k", topK,
		"query_len", len(query),
		"results", len(results),
	)
	return results, nil
}

// similarityScore converts cosine distance to similarity, rounded to
// six decimals. Distance lies in [0, 2] for unit vectors, so the score
// stays in [-1, 1] and is practically [0, 1] for related text.
func similarityScore(distance float64) float64 {
	return math.Round((1.0-distance)*1e6) / 1e6
}
