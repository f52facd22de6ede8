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

// Ensure SpeechAdapter implements Generator.
var _ Generator = (*SpeechAdapter)(nil)

const defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// SpeechAdapter synthesizes audio through an ElevenLabs-compatible text-to-speech API
type SpeechAdapter struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewSpeechAdapter creates a SpeechAdapter instance
func NewSpeechAdapter(name string, cfg config.ProviderBackendConfig) (*SpeechAdapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("speech adapter: api key required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &SpeechAdapter{
		name:         name,
		apiKey:       cfg.APIKey,
		baseURL:      baseURL,
		defaultModel: cfg.DefaultModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (a *SpeechAdapter) Name() string {
	return a.name
}

// Generate synthesizes the prompt and returns the raw audio bytes
func (a *SpeechAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = a.defaultModel
	}

	voiceID := defaultVoiceID
	if v, ok := req.Settings["voice_id"].(string); ok && v != "" {
		voiceID = v
	}

	payload := map[string]interface{}{
		"text":     req.Prompt,
		"model_id": model,
	}
	if v, ok := req.Settings["voice_settings"]; ok {
		payload["voice_settings"] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("speech adapter: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", a.baseURL, voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("speech adapter: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", a.apiKey)

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
			Detail struct {
				Status  string `json:"status"`
				Message string `json:"message"`
			} `json:"detail"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Detail.Message != "" {
			return nil, &ProviderError{
				Provider:   a.name,
				StatusCode: resp.StatusCode,
				Message:    errResp.Detail.Message,
				Details:    errResp.Detail.Status,
			}
		}
		return nil, &ProviderError{Provider: a.name, StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	return &Response{
		Data:      respBody,
		Extension: "mp3",
		// Speech back-ends bill per input character
		Units: decimal.NewFromInt(int64(len(req.Prompt))),
		Metadata: map[string]any{
			"model":    model,
			"voice_id": voiceID,
		},
	}, nil
}
