package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/large-farva/linkhub/internal/config"
)

func TestNewHonoursLevel(t *testing.T) {
	l, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, "linkhubd")
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "chatty"}, "linkhubd")
	assert.Error(t, err)
}
