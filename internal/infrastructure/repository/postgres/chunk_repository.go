package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// SearchCurrent runs the scoped nearest-neighbour query. The user guard
// sits on both sides of the join, stale ingestion runs are invisible and
// soft-deleted documents never surface. pgvector's <=> operator is
// cosine distance, so ascending order is most-similar-first.
func (r *ChunkRepository) SearchCurrent(ctx context.Context, userID string, queryVector []float32, limit int) ([]domain.ChunkMatch, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.document_id, c.content, d.title, d.source_type, COALESCE(d.filename, ''),
       c.embedding <=> $2 AS distance
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.user_id = $1
  AND d.user_id = $1
  AND d.is_deleted = FALSE
  AND d.current_ingestion_id IS NOT NULL
  AND c.ingestion_id = d.current_ingestion_id
ORDER BY distance
LIMIT $3
`, userID, pgvector.NewVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChunkMatch, 0, limit)
	for rows.Next() {
		var match domain.ChunkMatch
		var sourceType string
		if err := rows.Scan(
			&match.ChunkID,
			&match.DocumentID,
			&match.Snippet,
			&match.DocumentTitle,
			&sourceType,
			&match.Filename,
			&match.Distance,
		); err != nil {
			return nil, fmt.Errorf("scan chunk match: %w", err)
		}
		match.SourceType = domain.SourceType(sourceType)
		out = append(out, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk matches: %w", err)
	}
	return out, nil
}
