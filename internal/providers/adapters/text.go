package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mediaforge/generation-ledger/internal/config"
)

// Ensure TextAdapter implements Generator.
var _ Generator = (*TextAdapter)(nil)

// TextAdapter generates text through an OpenAI-compatible chat completions API
type TextAdapter struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewTextAdapter creates a TextAdapter instance
func NewTextAdapter(name string, cfg config.ProviderBackendConfig) (*TextAdapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("text adapter: api key required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &TextAdapter{
		name:         name,
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		defaultModel: cfg.DefaultModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (a *TextAdapter) Name() string {
	return a.name
}

// Generate sends a chat completion request and returns the first choice
func (a *TextAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = a.defaultModel
	}

	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
		"stream": false,
	}
	if v, ok := req.Settings["temperature"]; ok {
		payload["temperature"] = v
	}
	if v, ok := req.Settings["max_tokens"]; ok {
		payload["max_tokens"] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("text adapter: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("text adapter: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: a.name, Message: "send request: " + err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: a.name, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, &ProviderError{
				Provider:   a.name,
				StatusCode: resp.StatusCode,
				Message:    errResp.Error.Message,
				Details:    fmt.Sprintf("type=%s code=%s", errResp.Error.Type, errResp.Error.Code),
			}
		}
		return nil, &ProviderError{Provider: a.name, StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var completion struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("text adapter: decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, &ProviderError{Provider: a.name, StatusCode: resp.StatusCode, Message: "no choices in response"}
	}

	content := completion.Choices[0].Message.Content

	units := decimal.NewFromInt(int64(completion.Usage.TotalTokens))
	if completion.Usage.TotalTokens == 0 {
		// Usage block missing: approximate tokens as len/4, same heuristic used
		// for cost estimation at intake.
		units = decimal.NewFromInt(int64((len(req.Prompt) + len(content)) / 4))
	}

	return &Response{
		Content: content,
		Units:   units,
		Metadata: map[string]any{
			"model":             completion.Model,
			"finish_reason":     completion.Choices[0].FinishReason,
			"prompt_tokens":     completion.Usage.PromptTokens,
			"completion_tokens": completion.Usage.CompletionTokens,
		},
	}, nil
}
