package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/mediaforge/generation-ledger/internal/api_gateway/service"
)

// ProviderHandler handles HTTP requests for the provider catalog
type ProviderHandler struct {
	providerService service.ProviderService
	logger          *slog.Logger
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(logger *slog.Logger, providerService service.ProviderService) *ProviderHandler {
	return &ProviderHandler{
		providerService: providerService,
		logger:          logger,
	}
}

// List returns the cached provider catalog
func (h *ProviderHandler) List(c *gin.Context) {
	providers := h.providerService.ListProviders(c.Request.Context())

	responses := make([]ProviderResponse, 0, len(providers))
	for _, p := range providers {
		responses = append(responses, mapProviderToResponse(p))
	}

	RespondOK(c, responses)
}

// Refresh reloads the provider catalog from the store
func (h *ProviderHandler) Refresh(c *gin.Context) {
	if err := h.providerService.RefreshProviders(c.Request.Context()); err != nil {
		h.logger.Error("Failed to refresh providers", "error", err)
		RespondInternalError(c)
		return
	}

	h.List(c)
}
