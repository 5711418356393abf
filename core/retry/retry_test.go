package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 5, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errors.New("still broken")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "still broken", err.Error())
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	cause := errors.New("validation rejected")
	err := Do(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return Permanent(cause)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause)
}

func TestDo_PermanentSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("push batch: %w", Permanent(errors.New("bad request")))
	assert.True(t, IsPermanent(err))
}

func TestDo_ContextCancelAbortsWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, 5, time.Hour, func() error {
		calls++
		return errors.New("transient")
	})

	// First attempt runs, the wait before the second observes cancellation.
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPermanent_NilStaysNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(nil))
}
