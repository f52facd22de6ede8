package job

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestJobErrors_Is(t *testing.T) {
	t.Run("JobNotFoundMatchesAnyInstance", func(t *testing.T) {
		err := ErrJobNotFound{JobID: uuid.New()}
		assert.True(t, errors.Is(err, ErrJobNotFound{}))
	})

	t.Run("InvalidTransitionMatchesAnyInstance", func(t *testing.T) {
		err := ErrInvalidTransition{JobID: uuid.New(), From: StatusCompleted, To: StatusProcessing}
		assert.True(t, errors.Is(err, ErrInvalidTransition{}))
	})

	t.Run("InvalidTransitionCarriesBothStates", func(t *testing.T) {
		err := ErrInvalidTransition{JobID: uuid.New(), From: StatusFailed, To: StatusProcessing}
		assert.Contains(t, err.Error(), string(StatusFailed))
		assert.Contains(t, err.Error(), string(StatusProcessing))
	})

	t.Run("DifferentErrorKindsDoNotMatch", func(t *testing.T) {
		assert.False(t, errors.Is(ErrJobNotFound{}, ErrInvalidTransition{}))
	})
}
