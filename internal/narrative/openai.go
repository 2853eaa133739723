package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-3.5-turbo"
)

// OpenAIGenerator implements Generator against the OpenAI chat-completions
// endpoint.
type OpenAIGenerator struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes the generator.
type Option func(*OpenAIGenerator)

// WithBaseURL overrides the API base URL. Used by tests to point the
// generator at a fake server.
func WithBaseURL(url string) Option {
	return func(g *OpenAIGenerator) { g.baseURL = url }
}

// NewOpenAIGenerator creates a generator. An empty apiKey produces an
// unconfigured generator that always returns Placeholder. An empty model
// selects the default.
func NewOpenAIGenerator(apiKey, model string, timeout time.Duration, logger *zap.Logger, opts ...Option) *OpenAIGenerator {
	if model == "" {
		model = defaultModel
	}
	g := &OpenAIGenerator{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Configured reports whether a model credential is present.
func (g *OpenAIGenerator) Configured() bool { return g.apiKey != "" }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt and returns the model's narrative text.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if !g.Configured() {
		return Placeholder, nil
	}

	payload, err := json.Marshal(chatRequest{
		Model:    g.model,
		Messages: []chatMessage{{Role: "user", Content: BuildPrompt(req)}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("Chat completion rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return "", fmt.Errorf("unexpected status %d from chat completion", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return chat.Choices[0].Message.Content, nil
}
