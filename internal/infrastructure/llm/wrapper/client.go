// Package wrapper is the client for the OpenAI-compatible model wrapper
// that fronts every embedding and chat-completion provider used by the
// tutoring pipeline.
package wrapper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mzhuravlev/ai-tutor-backend/internal/core/domain"
	"github.com/mzhuravlev/ai-tutor-backend/internal/infrastructure/resilience"
)

type Client struct {
	baseURL        string
	apiKey         string
	embeddingModel string
	httpClient     *http.Client
	executor       *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL, apiKey, embeddingModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		embeddingModel: embeddingModel,
		httpClient:     &http.Client{Timeout: timeout},
		executor:       options.Executor,
	}
}

type chatCompletionsRequest struct {
	Model       string                 `json:"model"`
	Messages    []domain.PromptMessage `json:"messages"`
	Temperature float64                `json:"temperature"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete issues one chat-completion call. Malformed response shapes
// (no choices) count as provider failures so the fallback chain can move on.
func (c *Client) Complete(ctx context.Context, model string, messages []domain.PromptMessage, temperature float64, maxTokens int) (string, error) {
	request := chatCompletionsRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	var response chatCompletionsResponse
	if err := c.call(ctx, "chat_completions", "/v1/chat/completions", request, &response); err != nil {
		return "", domain.WrapError(domain.ErrProvider, "chat completions", err)
	}
	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrProvider, "chat completions", fmt.Errorf("response contained no choices"))
	}
	return response.Choices[0].Message.Content, nil
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedQuery embeds a single query string and truncates the result to
// the shared comparison dimensionality. Ingestion uses the identical
// truncation, which is what keeps similarity scores meaningful.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := embeddingsRequest{
		Model: c.embeddingModel,
		Input: text,
	}

	var response embeddingsResponse
	if err := c.call(ctx, "embeddings", "/v1/embeddings", request, &response); err != nil {
		return nil, domain.WrapError(domain.ErrProvider, "embed query", err)
	}
	if len(response.Data) == 0 {
		return nil, domain.WrapError(domain.ErrProvider, "embed query", fmt.Errorf("embeddings response contained no data items"))
	}
	embedding := response.Data[0].Embedding
	if len(embedding) == 0 {
		return nil, domain.WrapError(domain.ErrProvider, "embed query", fmt.Errorf("embedding response missing 'embedding' field"))
	}
	return domain.TruncateEmbedding(embedding), nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	fn := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}
	if c.executor == nil {
		return fn(ctx)
	}
	err := c.executor.Execute(ctx, "wrapper."+operation, fn, classifyWrapperError)
	if resilience.IsCircuitOpen(err) {
		// Fast-fail rejections surface as provider errors so the
		// fallback chain treats them like any other failed model call.
		return domain.WrapError(domain.ErrProvider, operation, err)
	}
	return err
}
