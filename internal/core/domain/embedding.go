package domain

// EmbeddingDim is the comparison dimensionality shared by ingestion and
// retrieval. Vectors stored in the chunks table and query vectors must
// both be truncated with TruncateEmbedding or similarity is meaningless.
const EmbeddingDim = 1536

// TruncateEmbedding applies Matryoshka truncation: providers that return
// wider vectors (e.g. 3072 dims) keep only the leading EmbeddingDim
// components.
func TruncateEmbedding(vector []float32) []float32 {
	if len(vector) <= EmbeddingDim {
		return vector
	}
	return vector[:EmbeddingDim]
}
