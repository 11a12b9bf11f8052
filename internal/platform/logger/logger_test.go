package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New(Options{Level: "DEBUG"}).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New(Options{}).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New(Options{Level: "chatty"}).GetLevel())
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l := Component(New(Options{Env: "production", File: path}), "test")
	l.Info().Str("k", "v").Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), `"message":"hello"`)
}
