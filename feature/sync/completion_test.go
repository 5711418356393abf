package sync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompleteOnceRunsExactlyOnce(t *testing.T) {
	var c Completion
	calls := 0

	ran, err := c.CompleteOnce(func() error {
		calls++
		return nil
	})
	assert.True(t, ran)
	assert.NoError(t, err)

	ran, err = c.CompleteOnce(func() error {
		calls++
		return nil
	})
	assert.False(t, ran)
	assert.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, c.Done())
}

func TestCompleteOncePropagatesError(t *testing.T) {
	var c Completion
	wantErr := errors.New("index build failed")

	ran, err := c.CompleteOnce(func() error { return wantErr })
	assert.True(t, ran)
	assert.ErrorIs(t, err, wantErr)

	// A failed completion still counts as done: the step is one-shot.
	ran, err = c.CompleteOnce(func() error { return nil })
	assert.False(t, ran)
	assert.NoError(t, err)
}

func TestCompletionZeroValueNotDone(t *testing.T) {
	var c Completion
	assert.False(t, c.Done())
}
