package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mediaforge/generation-ledger/internal/domain/provider"
	"github.com/mediaforge/generation-ledger/internal/domain/shared"
)

// MockProcessingService mocks the ProcessingService interface
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessDispatch(ctx context.Context, dispatch *shared.JobDispatch) error {
	args := m.Called(ctx, dispatch)
	return args.Error(0)
}

func TestWorkerPoolProcessingService_ProcessDispatch(t *testing.T) {
	logger := slog.Default()

	dispatch := &shared.JobDispatch{
		JobID:         uuid.New(),
		AccountID:     uuid.New(),
		TransactionID: uuid.New(),
		ProviderName:  "openai",
		ContentType:   provider.ContentTypeText,
		CorrelationID: "corr1",
		Timestamp:     time.Now(),
	}

	tests := []struct {
		name          string
		setupMocks    func(m *MockProcessingService)
		expectedError error
	}{
		{
			name: "successful processing",
			setupMocks: func(m *MockProcessingService) {
				m.On("ProcessDispatch", mock.Anything, mock.Anything).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "processing error",
			setupMocks: func(m *MockProcessingService) {
				m.On("ProcessDispatch", mock.Anything, mock.Anything).Return(errors.New("processing error")).Once()
			},
			expectedError: errors.New("processing error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockBaseService := &MockProcessingService{}
			workerPoolService, err := NewWorkerPoolProcessingService(
				mockBaseService,
				WorkerPoolConfig{
					Size: 2,
				},
				logger,
			)
			assert.NoError(t, err)
			defer workerPoolService.Shutdown()

			tt.setupMocks(mockBaseService)
			ctx := context.Background()

			err = workerPoolService.ProcessDispatch(ctx, dispatch)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockBaseService.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolProcessingService_Concurrency(t *testing.T) {
	mockBaseService := &MockProcessingService{}
	logger := slog.Default()

	workerPoolService, err := NewWorkerPoolProcessingService(
		mockBaseService,
		WorkerPoolConfig{
			Size: 5,
		},
		logger,
	)
	assert.NoError(t, err)
	defer workerPoolService.Shutdown()

	var mu sync.Mutex
	counter := 0

	mockBaseService.On("ProcessDispatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		// Simulate some work
		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		counter++
		mu.Unlock()
	}).Return(nil)

	numDispatches := 10
	var wg sync.WaitGroup
	wg.Add(numDispatches)

	for i := 0; i < numDispatches; i++ {
		go func() {
			defer wg.Done()

			dispatch := &shared.JobDispatch{
				JobID:         uuid.New(),
				AccountID:     uuid.New(),
				TransactionID: uuid.New(),
				ProviderName:  "openai",
				ContentType:   provider.ContentTypeText,
				CorrelationID: uuid.NewString(),
				Timestamp:     time.Now(),
			}

			ctx := context.Background()
			err := workerPoolService.ProcessDispatch(ctx, dispatch)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, numDispatches, counter)
	assert.Equal(t, 5, workerPoolService.Capacity())
}
