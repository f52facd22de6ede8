package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediaforge/generation-ledger/internal/api_gateway/middleware"
	"github.com/mediaforge/generation-ledger/internal/api_gateway/service"
	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
)

// GenerationHandler handles the public content-generation intake endpoint.
// Its wire shapes are a published contract: flat {jobId, status, estimatedCost} on
// success and {error, code, details?} on failure, not the /api/v1 envelope.
type GenerationHandler struct {
	generationService service.GenerationService
	maxBodyBytes      int64
	maxPromptLength   int
	logger            *slog.Logger
}

// NewGenerationHandler creates a new intake handler
func NewGenerationHandler(logger *slog.Logger, generationService service.GenerationService, maxBodyBytes int64, maxPromptLength int) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		maxBodyBytes:      maxBodyBytes,
		maxPromptLength:   maxPromptLength,
		logger:            logger,
	}
}

// generationRequest is the intake wire format. userId is accepted as an alias for
// accountId for compatibility with older dashboard clients.
type generationRequest struct {
	AccountID    string          `json:"accountId"`
	UserID       string          `json:"userId"`
	ContentType  string          `json:"contentType"`
	Prompt       string          `json:"prompt"`
	Settings     json.RawMessage `json:"settings"`
	ProviderName string          `json:"providerName"`
}

func respondIntakeError(c *gin.Context, status int, code, message string, details map[string]any) {
	body := gin.H{
		"error": message,
		"code":  code,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, body)
}

// Create validates and admits a generation request. Validation runs in a fixed
// order with the first failure winning, and a failed validation has no side
// effects: no provider, wallet or store call happens before the input is clean.
func (h *GenerationHandler) Create(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Content-Type must be application/json", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "request body exceeds the size limit", nil)
			return
		}
		h.logger.Error("Failed to read request body", "error", err)
		respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "failed to read request body", nil)
		return
	}

	var req generationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "request body is not valid JSON", nil)
		return
	}

	rawAccountID := req.AccountID
	if rawAccountID == "" {
		rawAccountID = req.UserID
	}
	if rawAccountID == "" {
		respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "accountId is required", nil)
		return
	}
	accountID, err := uuid.Parse(rawAccountID)
	if err != nil {
		respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "accountId must be a valid UUID", nil)
		return
	}

	if req.ContentType == "" {
		respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "contentType is required", nil)
		return
	}
	ct, err := provider.ParseContentType(req.ContentType)
	if err != nil {
		respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR",
			"contentType must be one of: text, image, video, audio", nil)
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "prompt is required", nil)
		return
	}
	if utf8.RuneCountInString(prompt) > h.maxPromptLength {
		respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "prompt exceeds the maximum length", nil)
		return
	}

	var settings map[string]any
	if len(req.Settings) > 0 && string(req.Settings) != "null" {
		if err := json.Unmarshal(req.Settings, &settings); err != nil {
			respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "settings must be an object", nil)
			return
		}
	}

	createdJob, err := h.generationService.CreateJob(c.Request.Context(), service.CreateJobParams{
		AccountID:     accountID,
		ContentType:   ct,
		Prompt:        prompt,
		Settings:      settings,
		ProviderName:  req.ProviderName,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	estimatedCost, _ := createdJob.EstimatedCost.Float64()
	c.JSON(http.StatusAccepted, gin.H{
		"jobId":         createdJob.ID.String(),
		"status":        "accepted",
		"estimatedCost": estimatedCost,
	})
}

func (h *GenerationHandler) respondServiceError(c *gin.Context, err error) {
	var insufficient wallet.ErrInsufficientCredits
	if errors.As(err, &insufficient) {
		respondIntakeError(c, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS",
			"insufficient credits: you have "+insufficient.Available.String()+", you need "+insufficient.Required.String(),
			map[string]any{
				"available": insufficient.Available.String(),
				"required":  insufficient.Required.String(),
			})
		return
	}

	var noWallet wallet.ErrWalletNotFound
	if errors.As(err, &noWallet) {
		respondIntakeError(c, http.StatusPaymentRequired, "WALLET_NOT_FOUND",
			"no credit wallet exists for this account", nil)
		return
	}

	var unknownProvider provider.ErrProviderNotFound
	if errors.As(err, &unknownProvider) {
		respondIntakeError(c, http.StatusBadRequest, "VALIDATION_ERROR",
			"unknown provider: "+unknownProvider.Name, nil)
		return
	}

	var noProvider provider.ErrNoProviderAvailable
	if errors.As(err, &noProvider) {
		respondIntakeError(c, http.StatusServiceUnavailable, "NO_PROVIDER_AVAILABLE",
			"generation is temporarily unavailable for this content type", nil)
		return
	}

	h.logger.Error("Intake request failed", "error", err)
	respondIntakeError(c, http.StatusInternalServerError, "INTERNAL_ERROR",
		"An internal server error occurred", nil)
}

// MethodNotAllowed is wired as the router's fallback for known paths hit with the
// wrong verb. The intake endpoint's contract pins the body shape, including the
// allowed method list.
func (h *GenerationHandler) MethodNotAllowed(c *gin.Context) {
	if c.Request.URL.Path == "/content-generation" {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "method not allowed",
			"allowed": []string{http.MethodPost, http.MethodOptions},
		})
		return
	}
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": "method not allowed",
		"code":  "METHOD_NOT_ALLOWED",
	})
}
