package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mediaforge/generation-ledger/internal/api_gateway/service"
	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
)

// WalletHandler handles HTTP requests for wallet operations
type WalletHandler struct {
	walletService service.WalletService
	logger        *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

// Create provisions a wallet for an account
func (h *WalletHandler) Create(c *gin.Context) {
	accountID, ok := h.accountIDParam(c)
	if !ok {
		return
	}

	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	openingBalance := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		openingBalance, err = decimal.NewFromString(req.OpeningBalance)
		if err != nil {
			RespondBadRequest(c, "opening_balance must be a decimal string")
			return
		}
	}

	w, err := h.walletService.CreateWallet(c.Request.Context(), accountID, openingBalance)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAmount) {
			RespondBadRequest(c, "opening_balance must not be negative")
			return
		}
		var duplicate wallet.ErrDuplicateWallet
		if errors.As(err, &duplicate) {
			RespondConflict(c, "A wallet already exists for this account")
			return
		}
		h.logger.Error("Failed to create wallet", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapWalletToResponse(w))
}

// GetByAccountID retrieves the wallet for an account
func (h *WalletHandler) GetByAccountID(c *gin.Context) {
	accountID, ok := h.accountIDParam(c)
	if !ok {
		return
	}

	w, err := h.walletService.GetWallet(c.Request.Context(), accountID)
	if err != nil {
		var notFound wallet.ErrWalletNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Wallet not found")
			return
		}
		h.logger.Error("Failed to get wallet", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapWalletToResponse(w))
}

// AddCredits tops up the wallet balance
func (h *WalletHandler) AddCredits(c *gin.Context) {
	accountID, ok := h.accountIDParam(c)
	if !ok {
		return
	}

	var req AddCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "amount must be a decimal string")
		return
	}

	txn, err := h.walletService.AddCredits(c.Request.Context(), accountID, amount)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAmount) {
			RespondBadRequest(c, "amount must be positive")
			return
		}
		var notFound wallet.ErrWalletNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Wallet not found")
			return
		}
		h.logger.Error("Failed to add credits", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// GetTransactions retrieves paginated ledger history for an account
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	accountID, ok := h.accountIDParam(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.walletService.ListTransactions(c.Request.Context(), accountID, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]TransactionResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapTransactionToResponse(entry))
	}

	RespondWithPaginatedData(c, 200, responses, pagination.Page, pagination.PerPage, int(total))
}

func (h *WalletHandler) accountIDParam(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("accountId")
	accountID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return uuid.Nil, false
	}
	return accountID, true
}
