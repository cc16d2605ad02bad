package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	t.Run("formats code and message", func(t *testing.T) {
		err := New(ErrCodeNotFound, "session not found")
		assert.Equal(t, "NOT_FOUND: session not found", err.Error())
	})

	t.Run("formats the cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeDatabase, "Database error", cause)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		inner := InCooldown(90 * time.Second)
		wrapped := fmt.Errorf("enqueue failed: %w", inner)

		appErr, ok := AsAppError(wrapped)
		require.True(t, ok)
		assert.Equal(t, ErrCodeInCooldown, appErr.Code)
	})
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeForbidden, GetCode(Forbidden("nope")))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
	assert.Equal(t, ErrCodeDatabase, GetCode(Database(errors.New("boom"))))
}

func TestConstructorDetails(t *testing.T) {
	t.Run("cooldown carries the remaining time", func(t *testing.T) {
		err := InCooldown(90 * time.Second)
		details, ok := err.Details.(map[string]int64)
		require.True(t, ok)
		assert.Equal(t, int64(90000), details["remainingMs"])
	})

	t.Run("already in session names the session", func(t *testing.T) {
		err := AlreadyInSession("sess-1")
		details, ok := err.Details.(map[string]string)
		require.True(t, ok)
		assert.Equal(t, "sess-1", details["sessionId"])
	})
}

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(SessionEnded()))
	assert.False(t, IsAppError(errors.New("plain")))
	assert.True(t, IsAppError(fmt.Errorf("wrapped: %w", RateLimitExceeded())))
}
