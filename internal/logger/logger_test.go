package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("production logger", func(t *testing.T) {
		l, err := NewLogger("production", "")
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("development logger enables debug", func(t *testing.T) {
		l, err := NewLogger("development", "")
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("level override", func(t *testing.T) {
		l, err := NewLogger("development", "warn")
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("unknown environment", func(t *testing.T) {
		_, err := NewLogger("staging-eu", "")
		assert.Error(t, err)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewLogger("production", "loud")
		assert.Error(t, err)
	})
}

func TestFromContext(t *testing.T) {
	t.Run("no logger and no fallback", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background(), nil))
	})

	t.Run("falls back when absent", func(t *testing.T) {
		fallback := zap.NewExample()
		assert.Same(t, fallback, FromContext(context.Background(), fallback))
	})

	t.Run("prefers the stored logger", func(t *testing.T) {
		l := zap.NewExample()
		ctx := ContextWithLogger(context.Background(), l)
		assert.Same(t, l, FromContext(ctx, zap.NewNop()))
	})
}
