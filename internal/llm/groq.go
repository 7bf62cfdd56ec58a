// groq.go -- Groq chat-completions client.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultBaseURL is Groq's OpenAI-compatible API root.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Supported models. DefaultModel is used when a conversation or request
// does not name one.
const (
	ModelLlama    = "llama-3.1-8b-instant"
	ModelMixtral  = "mixtral-8x7b-32768"
	ModelGemma    = "gemma-7b-it"
	ModelDeepseek = "deepseek-r1-distill-llama-70b"

	DefaultModel = ModelLlama
)

// ValidModel reports whether model is one of the supported models.
func ValidModel(model string) bool {
	switch model {
	case ModelLlama, ModelMixtral, ModelGemma, ModelDeepseek:
		return true
	}
	return false
}

// Message is one turn of a chat-completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls the Groq chat-completions API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the given API key. An empty baseURL
// falls back to DefaultBaseURL; tests point it at a local server.
// Uses a 30s timeout on the outbound HTTP client -- generations are slow.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ChatCompletion sends messages to model and returns the raw completion
// text. Callers clean the text themselves (see Clean, ExtractThinking).
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []Message) (string, error) {
	payload := struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		MaxTokens   int       `json:"max_tokens"`
		Temperature float64   `json:"temperature"`
		TopP        float64   `json:"top_p"`
		Stream      bool      `json:"stream"`
	}{
		Model:       model,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.7,
		TopP:        1,
		Stream:      false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("groq: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("groq: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error.Message == "" {
			apiErr.Error.Message = "unknown error"
		}
		return "", fmt.Errorf("groq: API error: %d - %s", resp.StatusCode, apiErr.Error.Message)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("groq: decoding response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("groq: empty completion")
	}
	return result.Choices[0].Message.Content, nil
}
