package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transientError struct {
	transient bool
}

func (e *transientError) Error() string   { return "transient failure" }
func (e *transientError) Retryable() bool { return e.transient }

func TestDo(t *testing.T) {
	ctx := context.Background()
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	t.Run("succeeds on first attempt", func(t *testing.T) {
		calls := 0
		err := Do(ctx, policy, func(ctx context.Context) error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		err := Do(ctx, policy, func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return &transientError{transient: true}
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		opErr := &transientError{transient: true}
		err := Do(ctx, policy, func(ctx context.Context) error {
			calls++
			return opErr
		})
		assert.ErrorIs(t, err, opErr)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable errors fail immediately", func(t *testing.T) {
		calls := 0
		opErr := &transientError{transient: false}
		err := Do(ctx, policy, func(ctx context.Context) error {
			calls++
			return opErr
		})
		assert.ErrorIs(t, err, opErr)
		assert.Equal(t, 1, calls)
	})

	t.Run("plain errors are not retried", func(t *testing.T) {
		calls := 0
		opErr := errors.New("hard failure")
		err := Do(ctx, policy, func(ctx context.Context) error {
			calls++
			return opErr
		})
		assert.ErrorIs(t, err, opErr)
		assert.Equal(t, 1, calls)
	})

	t.Run("wrapped retryable errors are unwrapped", func(t *testing.T) {
		calls := 0
		err := Do(ctx, policy, func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return errors.Join(errors.New("context"), &transientError{transient: true})
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("canceled context stops retries", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		calls := 0
		err := Do(cancelCtx, Policy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond}, func(ctx context.Context) error {
			calls++
			cancel()
			return &transientError{transient: true}
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero max attempts still runs once", func(t *testing.T) {
		calls := 0
		err := Do(ctx, Policy{}, func(ctx context.Context) error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}
