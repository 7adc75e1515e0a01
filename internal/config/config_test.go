package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %s", cfg.APIPort)
	}
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected default top_k=5, got %d", cfg.RAGTopK)
	}
	if cfg.ModelDefault != "routeway/glm-4.5-air:free" {
		t.Fatalf("unexpected default model: %s", cfg.ModelDefault)
	}
	if cfg.HistoryTurns != 10 {
		t.Fatalf("expected 10 history turns, got %d", cfg.HistoryTurns)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RAG_TOP_K", "8")
	t.Setenv("ANSWER_TEMPERATURE", "0.2")
	t.Setenv("MODEL_CODING", "test/coder")

	cfg := Load()
	if cfg.RAGTopK != 8 {
		t.Fatalf("expected top_k=8, got %d", cfg.RAGTopK)
	}
	if cfg.AnswerTemperature != 0.2 {
		t.Fatalf("expected temperature=0.2, got %f", cfg.AnswerTemperature)
	}
	if cfg.ModelCoding != "test/coder" {
		t.Fatalf("expected coding model override, got %s", cfg.ModelCoding)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("RAG_TOP_K", "not-a-number")
	t.Setenv("API_RATE_LIMIT_RPS", "abc")

	cfg := Load()
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected fallback top_k=5, got %d", cfg.RAGTopK)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected fallback rps=20, got %f", cfg.APIRateLimitRPS)
	}
}

func TestLoadVocabularyDefaultsWhenNoPath(t *testing.T) {
	vocab, err := LoadVocabulary("")
	if err != nil {
		t.Fatalf("LoadVocabulary() error = %v", err)
	}
	if len(vocab.Coding) == 0 || len(vocab.Reasoning) == 0 {
		t.Fatalf("expected non-empty default vocabularies")
	}
}

func TestLoadVocabularyOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	content := "coding:\n  - golang\n  - rustlang\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	vocab, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary() error = %v", err)
	}
	if len(vocab.Coding) != 2 || vocab.Coding[0] != "golang" {
		t.Fatalf("expected coding override, got %v", vocab.Coding)
	}
	if len(vocab.Reasoning) == 0 {
		t.Fatalf("expected reasoning defaults preserved")
	}
}

func TestLoadVocabularyMissingFileFallsBack(t *testing.T) {
	vocab, err := LoadVocabulary("/nonexistent/keywords.yaml")
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if len(vocab.Coding) == 0 {
		t.Fatalf("expected defaults returned alongside the error")
	}
}
