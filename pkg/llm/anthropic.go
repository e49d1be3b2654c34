package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const anthropicBaseURL = "https://api.anthropic.com/v1"
const anthropicVersion = "2023-06-01"

// AnthropicClient is an alternate vendor implementation of Client, used
// in place of Gemini when an operator configures an Anthropic key instead
// of (or in addition to) gemini_api_key. It only supports GenerateJSON —
// Anthropic has no embeddings endpoint, so RelevanceFilter must be
// configured with a Gemini (or other embedding-capable) client.
type AnthropicClient struct {
	apiKey     string
	flashModel string
	proModel   string
	baseURL    string
	client     *http.Client
}

// NewAnthropicClient builds a client defaulting to Haiku/Sonnet as the
// flash/pro tiers.
func NewAnthropicClient(apiKey string, timeout time.Duration) *AnthropicClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &AnthropicClient{
		apiKey:     apiKey,
		flashModel: "claude-3-5-haiku-20241022",
		proModel:   "claude-3-5-sonnet-20241022",
		baseURL:    anthropicBaseURL,
		client:     &http.Client{Transport: transport, Timeout: timeout},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateJSON asks the model to return JSON-only text; unlike Gemini,
// Anthropic has no dedicated JSON response mode, so the prompt itself
// must instruct the model to emit a bare JSON object (the extractor's
// prompt already does this for all vendors).
func (c *AnthropicClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	model := c.flashModel
	if tier == TierPro {
		model = c.proModel
	}

	reqBody := anthropicRequest{
		Model:       model,
		MaxTokens:   2048,
		Temperature: 0.1,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	var text string
	for _, block := range aResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// Embed is unsupported — see the type-level doc comment.
func (c *AnthropicClient) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, fmt.Errorf("anthropic: embeddings not supported, configure a Gemini client for RelevanceFilter")
}
