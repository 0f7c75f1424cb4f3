package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitAndL(t *testing.T) {
	t.Run("Development config", func(t *testing.T) {
		Init("development")
		assert.NotNil(t, L())
	})

	t.Run("Production config", func(t *testing.T) {
		Init("production")
		assert.NotNil(t, L())
	})

	t.Run("L lazily initializes", func(t *testing.T) {
		log = nil
		assert.NotNil(t, L())
	})
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty context has no request id", func(t *testing.T) {
		assert.Equal(t, "", RequestIDFrom(ctx))
	})

	t.Run("Round trip", func(t *testing.T) {
		ctx := WithRequestID(ctx, "req-123")
		assert.Equal(t, "req-123", RequestIDFrom(ctx))
	})

	t.Run("FromCtx never returns nil", func(t *testing.T) {
		assert.NotNil(t, FromCtx(ctx))
		assert.NotNil(t, FromCtx(WithRequestID(ctx, "req-456")))
	})
}

func TestSync(t *testing.T) {
	Init("development")
	// Sync on a stderr-backed logger may return an error on some platforms;
	// it must not panic either way.
	assert.NotPanics(t, func() { Sync() })
}
