package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mediaforge/generation-ledger/internal/api_gateway/service"
	"github.com/mediaforge/generation-ledger/internal/domain/job"
	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/domain/wallet"
)

type MockGenerationService struct {
	mock.Mock
}

func (m *MockGenerationService) CreateJob(ctx context.Context, params service.CreateJobParams) (*job.Job, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

const (
	testMaxBodyBytes    = 64 * 1024
	testMaxPromptLength = 10000
)

func newGenerationTestRouter(mockService *MockGenerationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	h := NewGenerationHandler(logger, mockService, testMaxBodyBytes, testMaxPromptLength)

	r := gin.New()
	r.POST("/content-generation", h.Create)
	r.NoMethod(h.MethodNotAllowed)
	r.HandleMethodNotAllowed = true
	return r
}

func postGeneration(router *gin.Engine, body string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, "/content-generation", bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeIntakeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func acceptedJob(accountID uuid.UUID) *job.Job {
	now := time.Now()
	return &job.Job{
		ID:            uuid.New(),
		AccountID:     accountID,
		ProviderID:    uuid.New(),
		TransactionID: uuid.New(),
		ContentType:   provider.ContentTypeText,
		Status:        job.StatusPending,
		Prompt:        "write a haiku",
		EstimatedCost: decimal.RequireFromString("0.0025"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestGenerationHandler_Create_Accepted(t *testing.T) {
	mockService := new(MockGenerationService)
	accountID := uuid.New()
	created := acceptedJob(accountID)

	mockService.On("CreateJob", mock.Anything, mock.MatchedBy(func(p service.CreateJobParams) bool {
		return p.AccountID == accountID &&
			p.ContentType == provider.ContentTypeText &&
			p.Prompt == "write a haiku" &&
			p.ProviderName == ""
	})).Return(created, nil)

	router := newGenerationTestRouter(mockService)
	rr := postGeneration(router,
		`{"accountId":"`+accountID.String()+`","contentType":"text","prompt":"write a haiku"}`,
		"application/json")

	assert.Equal(t, http.StatusAccepted, rr.Code)
	body := decodeIntakeError(t, rr)
	assert.Equal(t, created.ID.String(), body["jobId"])
	assert.Equal(t, "accepted", body["status"])
	assert.InDelta(t, 0.0025, body["estimatedCost"], 1e-9)
	mockService.AssertExpectations(t)
}

func TestGenerationHandler_Create_UserIDAlias(t *testing.T) {
	mockService := new(MockGenerationService)
	accountID := uuid.New()
	created := acceptedJob(accountID)

	mockService.On("CreateJob", mock.Anything, mock.MatchedBy(func(p service.CreateJobParams) bool {
		return p.AccountID == accountID
	})).Return(created, nil)

	router := newGenerationTestRouter(mockService)
	rr := postGeneration(router,
		`{"userId":"`+accountID.String()+`","contentType":"text","prompt":"write a haiku"}`,
		"application/json")

	assert.Equal(t, http.StatusAccepted, rr.Code)
	mockService.AssertExpectations(t)
}

func TestGenerationHandler_Create_SettingsAndProviderPassthrough(t *testing.T) {
	mockService := new(MockGenerationService)
	accountID := uuid.New()
	created := acceptedJob(accountID)

	mockService.On("CreateJob", mock.Anything, mock.MatchedBy(func(p service.CreateJobParams) bool {
		return p.ProviderName == "stability" &&
			p.Settings["width"] == float64(1024)
	})).Return(created, nil)

	router := newGenerationTestRouter(mockService)
	rr := postGeneration(router,
		`{"accountId":"`+accountID.String()+`","contentType":"image","prompt":"a lighthouse","providerName":"stability","settings":{"width":1024}}`,
		"application/json")

	assert.Equal(t, http.StatusAccepted, rr.Code)
	mockService.AssertExpectations(t)
}

func TestGenerationHandler_Create_ValidationFailures(t *testing.T) {
	validAccount := uuid.New().String()

	tests := []struct {
		name        string
		body        string
		contentType string
		wantMessage string
	}{
		{
			name:        "wrong content type header",
			body:        `{"accountId":"` + validAccount + `","contentType":"text","prompt":"hi"}`,
			contentType: "text/plain",
			wantMessage: "Content-Type must be application/json",
		},
		{
			name:        "oversized body",
			body:        `{"prompt":"` + strings.Repeat("x", testMaxBodyBytes+1) + `"}`,
			contentType: "application/json",
			wantMessage: "request body exceeds the size limit",
		},
		{
			name:        "malformed JSON",
			body:        `{"accountId":`,
			contentType: "application/json",
			wantMessage: "request body is not valid JSON",
		},
		{
			name:        "missing accountId",
			body:        `{"contentType":"text","prompt":"hi"}`,
			contentType: "application/json",
			wantMessage: "accountId is required",
		},
		{
			name:        "accountId not a UUID",
			body:        `{"accountId":"not-a-uuid","contentType":"text","prompt":"hi"}`,
			contentType: "application/json",
			wantMessage: "accountId must be a valid UUID",
		},
		{
			name:        "missing contentType",
			body:        `{"accountId":"` + validAccount + `","prompt":"hi"}`,
			contentType: "application/json",
			wantMessage: "contentType is required",
		},
		{
			name:        "unsupported contentType",
			body:        `{"accountId":"` + validAccount + `","contentType":"hologram","prompt":"hi"}`,
			contentType: "application/json",
			wantMessage: "contentType must be one of: text, image, video, audio",
		},
		{
			name:        "missing prompt",
			body:        `{"accountId":"` + validAccount + `","contentType":"text"}`,
			contentType: "application/json",
			wantMessage: "prompt is required",
		},
		{
			name:        "whitespace-only prompt",
			body:        `{"accountId":"` + validAccount + `","contentType":"text","prompt":"   "}`,
			contentType: "application/json",
			wantMessage: "prompt is required",
		},
		{
			name:        "prompt too long",
			body:        `{"accountId":"` + validAccount + `","contentType":"text","prompt":"` + strings.Repeat("a", testMaxPromptLength+1) + `"}`,
			contentType: "application/json",
			wantMessage: "prompt exceeds the maximum length",
		},
		{
			name:        "settings not an object",
			body:        `{"accountId":"` + validAccount + `","contentType":"text","prompt":"hi","settings":[1,2]}`,
			contentType: "application/json",
			wantMessage: "settings must be an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockGenerationService)
			router := newGenerationTestRouter(mockService)

			rr := postGeneration(router, tt.body, tt.contentType)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			body := decodeIntakeError(t, rr)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			assert.Equal(t, tt.wantMessage, body["error"])

			// A rejected request must never reach the service layer
			mockService.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything)
		})
	}
}

func TestGenerationHandler_Create_ValidationOrder(t *testing.T) {
	// A body with every field wrong fails on the first check in the fixed order
	mockService := new(MockGenerationService)
	router := newGenerationTestRouter(mockService)

	rr := postGeneration(router,
		`{"accountId":"bad","contentType":"hologram","prompt":""}`,
		"application/json")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeIntakeError(t, rr)
	assert.Equal(t, "accountId must be a valid UUID", body["error"])
}

func TestGenerationHandler_Create_InsufficientCredits(t *testing.T) {
	mockService := new(MockGenerationService)
	accountID := uuid.New()

	mockService.On("CreateJob", mock.Anything, mock.Anything).Return(nil, wallet.ErrInsufficientCredits{
		Available: decimal.RequireFromString("0.5"),
		Required:  decimal.RequireFromString("2.5"),
	})

	router := newGenerationTestRouter(mockService)
	rr := postGeneration(router,
		`{"accountId":"`+accountID.String()+`","contentType":"text","prompt":"hi"}`,
		"application/json")

	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	body := decodeIntakeError(t, rr)
	assert.Equal(t, "INSUFFICIENT_CREDITS", body["code"])

	details, ok := body["details"].(map[string]any)
	require.True(t, ok, "402 body must carry the balance details")
	assert.Equal(t, "0.5", details["available"])
	assert.Equal(t, "2.5", details["required"])
}

func TestGenerationHandler_Create_WalletNotFound(t *testing.T) {
	mockService := new(MockGenerationService)
	accountID := uuid.New()

	mockService.On("CreateJob", mock.Anything, mock.Anything).
		Return(nil, wallet.ErrWalletNotFound{AccountID: accountID})

	router := newGenerationTestRouter(mockService)
	rr := postGeneration(router,
		`{"accountId":"`+accountID.String()+`","contentType":"text","prompt":"hi"}`,
		"application/json")

	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	body := decodeIntakeError(t, rr)
	assert.Equal(t, "WALLET_NOT_FOUND", body["code"])
}

func TestGenerationHandler_Create_UnknownProvider(t *testing.T) {
	mockService := new(MockGenerationService)

	mockService.On("CreateJob", mock.Anything, mock.Anything).
		Return(nil, provider.ErrProviderNotFound{Name: "nonexistent"})

	router := newGenerationTestRouter(mockService)
	rr := postGeneration(router,
		`{"accountId":"`+uuid.New().String()+`","contentType":"text","prompt":"hi","providerName":"nonexistent"}`,
		"application/json")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeIntakeError(t, rr)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["error"], "unknown provider: nonexistent")
}

func TestGenerationHandler_Create_NoProviderAvailable(t *testing.T) {
	mockService := new(MockGenerationService)

	mockService.On("CreateJob", mock.Anything, mock.Anything).
		Return(nil, provider.ErrNoProviderAvailable{ContentType: provider.ContentTypeVideo})

	router := newGenerationTestRouter(mockService)
	rr := postGeneration(router,
		`{"accountId":"`+uuid.New().String()+`","contentType":"video","prompt":"a storm"}`,
		"application/json")

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body := decodeIntakeError(t, rr)
	assert.Equal(t, "NO_PROVIDER_AVAILABLE", body["code"])
}

func TestGenerationHandler_Create_InternalError(t *testing.T) {
	mockService := new(MockGenerationService)

	mockService.On("CreateJob", mock.Anything, mock.Anything).
		Return(nil, errors.New("kafka: dial tcp: connection refused"))

	router := newGenerationTestRouter(mockService)
	rr := postGeneration(router,
		`{"accountId":"`+uuid.New().String()+`","contentType":"text","prompt":"hi"}`,
		"application/json")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeIntakeError(t, rr)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.NotContains(t, body["error"], "kafka", "internal details must not leak to the client")
}

func TestGenerationHandler_MethodNotAllowed(t *testing.T) {
	mockService := new(MockGenerationService)
	router := newGenerationTestRouter(mockService)

	req, _ := http.NewRequest(http.MethodGet, "/content-generation", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	body := decodeIntakeError(t, rr)
	assert.Equal(t, "method not allowed", body["error"])

	allowed, ok := body["allowed"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"POST", "OPTIONS"}, allowed)
}
