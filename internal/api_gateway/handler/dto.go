package handler

import (
	"time"

	"github.com/mediaforge/generation-ledger/internal/domain/job"
	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
)

// CreateWalletRequest represents a request to provision a wallet
type CreateWalletRequest struct {
	OpeningBalance string `json:"opening_balance,omitempty"` // Decimal string, defaults to 0
}

// AddCreditsRequest represents a wallet top-up request
type AddCreditsRequest struct {
	Amount string `json:"amount" binding:"required"` // Decimal string, must be positive
}

// WalletResponse represents a wallet in API responses
type WalletResponse struct {
	ID               string `json:"id"`
	AccountID        string `json:"account_id"`
	CreditsAvailable string `json:"credits_available"`
	CreditsUsed      string `json:"credits_used"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID          string         `json:"id"`
	WalletID    string         `json:"wallet_id"`
	Amount      string         `json:"amount"`
	Type        string         `json:"type"`
	Status      string         `json:"status"`
	ReferenceID string         `json:"reference_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// JobResponse represents a job in API responses
type JobResponse struct {
	ID            string         `json:"id"`
	AccountID     string         `json:"account_id"`
	ContentType   string         `json:"content_type"`
	Status        string         `json:"status"`
	Prompt        string         `json:"prompt"`
	Settings      map[string]any `json:"settings,omitempty"`
	Result        *job.Result    `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	EstimatedCost string         `json:"estimated_cost"`
	ActualCost    string         `json:"actual_cost,omitempty"`
	StartedAt     string         `json:"started_at,omitempty"`
	CompletedAt   string         `json:"completed_at,omitempty"`
	CreatedAt     string         `json:"created_at"`
}

// ProviderResponse represents a provider in API responses
type ProviderResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Active       bool     `json:"active"`
	ContentTypes []string `json:"content_types"`
	CostPerUnit  string   `json:"cost_per_unit"`
	Priority     int      `json:"priority"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapWalletToResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		ID:               w.ID.String(),
		AccountID:        w.AccountID.String(),
		CreditsAvailable: w.CreditsAvailable.String(),
		CreditsUsed:      w.CreditsUsed.String(),
		CreatedAt:        w.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        w.UpdatedAt.Format(time.RFC3339),
	}
}

func mapTransactionToResponse(t *wallet.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:        t.ID.String(),
		WalletID:  t.WalletID.String(),
		Amount:    t.Amount.String(),
		Type:      string(t.Type),
		Status:    string(t.Status),
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
	if t.ReferenceID != nil {
		resp.ReferenceID = t.ReferenceID.String()
	}
	return resp
}

func mapJobToResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:            j.ID.String(),
		AccountID:     j.AccountID.String(),
		ContentType:   string(j.ContentType),
		Status:        string(j.Status),
		Prompt:        j.Prompt,
		Settings:      j.Settings,
		Result:        j.Result,
		Error:         j.Error,
		EstimatedCost: j.EstimatedCost.String(),
		CreatedAt:     j.CreatedAt.Format(time.RFC3339),
	}
	if j.ActualCost != nil {
		resp.ActualCost = j.ActualCost.String()
	}
	if j.StartedAt != nil {
		resp.StartedAt = j.StartedAt.Format(time.RFC3339)
	}
	if j.CompletedAt != nil {
		resp.CompletedAt = j.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

func mapProviderToResponse(p *provider.Provider) ProviderResponse {
	types := make([]string, len(p.ContentTypes))
	for i, t := range p.ContentTypes {
		types[i] = string(t)
	}
	return ProviderResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		DisplayName:  p.DisplayName,
		Active:       p.Active,
		ContentTypes: types,
		CostPerUnit:  p.CostPerUnit.String(),
		Priority:     p.Priority,
	}
}
