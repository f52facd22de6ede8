package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
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

// Ensure ImageAdapter implements Generator.
var _ Generator = (*ImageAdapter)(nil)

// ImageAdapter generates images through a Stability-compatible text-to-image API
type ImageAdapter struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewImageAdapter creates an ImageAdapter instance
func NewImageAdapter(name string, cfg config.ProviderBackendConfig) (*ImageAdapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("image adapter: api key required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.stability.ai/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &ImageAdapter{
		name:         name,
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		defaultModel: cfg.DefaultModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (a *ImageAdapter) Name() string {
	return a.name
}

// Generate requests a single image and returns its decoded bytes
func (a *ImageAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	engine := req.Model
	if engine == "" {
		engine = a.defaultModel
	}

	payload := map[string]interface{}{
		"text_prompts": []map[string]any{
			{"text": req.Prompt},
		},
		"samples": 1,
	}
	if v, ok := req.Settings["width"]; ok {
		payload["width"] = v
	}
	if v, ok := req.Settings["height"]; ok {
		payload["height"] = v
	}
	if v, ok := req.Settings["steps"]; ok {
		payload["steps"] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("image adapter: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/generation/%s/text-to-image", a.baseURL, engine)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("image adapter: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
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
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			return nil, &ProviderError{
				Provider:   a.name,
				StatusCode: resp.StatusCode,
				Message:    errResp.Message,
				Details:    errResp.Name,
			}
		}
		return nil, &ProviderError{Provider: a.name, StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var generation struct {
		Artifacts []struct {
			Base64       string `json:"base64"`
			Seed         int64  `json:"seed"`
			FinishReason string `json:"finishReason"`
		} `json:"artifacts"`
	}
	if err := json.Unmarshal(respBody, &generation); err != nil {
		return nil, fmt.Errorf("image adapter: decode response: %w", err)
	}
	if len(generation.Artifacts) == 0 {
		return nil, &ProviderError{Provider: a.name, StatusCode: resp.StatusCode, Message: "no artifacts in response"}
	}

	artifact := generation.Artifacts[0]
	if artifact.FinishReason == "CONTENT_FILTERED" {
		return nil, &ProviderError{Provider: a.name, StatusCode: resp.StatusCode, Message: "prompt rejected by content filter"}
	}

	data, err := base64.StdEncoding.DecodeString(artifact.Base64)
	if err != nil {
		return nil, fmt.Errorf("image adapter: decode artifact: %w", err)
	}

	return &Response{
		Data:      data,
		Extension: "png",
		Units:     decimal.NewFromInt(1), // One billable asset per request
		Metadata: map[string]any{
			"engine": engine,
			"seed":   artifact.Seed,
		},
	}, nil
}
