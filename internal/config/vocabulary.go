package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the heuristic router keyword sets. The defaults cover
// common programming and math/science terms; deployments can override
// them with a YAML file pointed at by ROUTER_KEYWORDS_PATH.
type Vocabulary struct {
	Coding    []string `yaml:"coding"`
	Reasoning []string `yaml:"reasoning"`
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Coding: []string{
			"code", "coding", "program", "script", "function", "class", "method",
			"bug", "debug", "algorithm", "syntax", "compile", "runtime", "exception",
			"stack", "array", "list", "dict", "javascript", "python", "java",
			`c\+\+`, "typescript", "sql", "html", "css", "api", "json",
			"git", "github", "docker", "bash", "shell", "loop", "variable",
			"import", "library", "framework", "module", "package", "implement",
			"refactor", "test", "unit test", "error", "fix the code",
			"write a", "write the",
		},
		Reasoning: []string{
			"prove", "proof", "derive", "derivation", "theorem", "lemma",
			"corollary", "explain why", "reasoning", "logic", "infer", "inference",
			"hypothesis", "calculus", "integral", "derivative", "equation",
			"matrix", "probability", "statistics", "physics", "chemistry",
			"math", "solve", `step.?by.?step`, "analyze", "analysis",
			"compare", "evaluate", "argue", "argument",
		},
	}
}

// LoadVocabulary reads a YAML override when path is non-empty, falling
// back to the defaults for any set the file leaves out.
func LoadVocabulary(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return vocab, fmt.Errorf("read router keywords file: %w", err)
	}

	var override Vocabulary
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return vocab, fmt.Errorf("parse router keywords yaml: %w", err)
	}

	if len(override.Coding) > 0 {
		vocab.Coding = override.Coding
	}
	if len(override.Reasoning) > 0 {
		vocab.Reasoning = override.Reasoning
	}
	return vocab, nil
}
