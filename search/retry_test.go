package search_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"protein-atlas/search"
)

var fastPolicy = search.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestRetryStopsOnPermanentError(t *testing.T) {
	attempts := 0
	_, err := search.Retry(context.Background(), fastPolicy, func(context.Context) (int, error) {
		attempts++
		return 0, search.Internal("count", errors.New("bad"))
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := search.Retry(context.Background(), fastPolicy, func(context.Context) (int, error) {
		attempts++
		return 0, search.Unavailable("count", errors.New("down"))
	})
	assert.True(t, search.IsRetryable(err))
	assert.Equal(t, 3, attempts)
}

func TestRetryReturnsValue(t *testing.T) {
	v, err := search.Retry(context.Background(), fastPolicy, func(context.Context) (string, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
}
