package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeConstructors(t *testing.T) {
	t.Parallel()

	t.Run("Ok", func(t *testing.T) {
		t.Parallel()
		env := Ok("payload")
		assert.True(t, env.OK)
		assert.Equal(t, "payload", env.Data)
		assert.Empty(t, env.Code)
	})

	t.Run("Fail", func(t *testing.T) {
		t.Parallel()
		env := Fail[string](CodeValidationError, "missing email")
		assert.False(t, env.OK)
		assert.Equal(t, CodeValidationError, env.Code)
		assert.Equal(t, "missing email", env.Message)
	})

	t.Run("Failf formats", func(t *testing.T) {
		t.Parallel()
		env := Failf[int](CodeConflict, "version %d stale", 7)
		assert.Equal(t, "version 7 stale", env.Message)
	})

	t.Run("FailErr uses error text", func(t *testing.T) {
		t.Parallel()
		env := FailErr[int](CodePermanentError, errors.New("boom"))
		assert.Equal(t, "boom", env.Message)
	})

	t.Run("FailErr tolerates nil error", func(t *testing.T) {
		t.Parallel()
		env := FailErr[int](CodePermanentError, nil)
		assert.False(t, env.OK)
		assert.Empty(t, env.Message)
	})
}

func TestEnvelopeWithDetails(t *testing.T) {
	t.Parallel()

	env := Fail[string](CodeRetryExhausted, "gave up").
		WithDetails(map[string]any{"service": "apollo", "operation": "search"})
	assert.Equal(t, "apollo", env.Details["service"])
	assert.Equal(t, "search", env.Details["operation"])
}

func TestEnvelopeReason(t *testing.T) {
	t.Parallel()

	t.Run("failure yields a reason", func(t *testing.T) {
		t.Parallel()
		env := Fail[string](CodeDNCBlocked, "on the block list").
			WithDetails(map[string]any{"source": "dnc"})
		reason := env.Reason()
		require.NotNil(t, reason)
		assert.Equal(t, CodeDNCBlocked, reason.Code)
		assert.Equal(t, "on the block list", reason.Message)
		assert.Equal(t, "dnc", reason.Details["source"])
	})

	t.Run("success yields nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, Ok("fine").Reason())
	})
}
