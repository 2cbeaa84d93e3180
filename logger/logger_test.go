package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerIsNoop(t *testing.T) {
	// Package init installs a no-op logger; helpers must not panic
	// before Initialize is called.
	require.NotNil(t, Logger)
	Infof("no-op %d", 1)
	Errorw("no-op", "key", "value")
}

func TestInitializeJSON(t *testing.T) {
	err := Initialize(true)
	require.NoError(t, err)
	assert.True(t, JSONOutput)
	assert.NotNil(t, Logger)
	Cleanup()
}

func TestInitializeConsole(t *testing.T) {
	err := Initialize(false)
	require.NoError(t, err)
	assert.False(t, JSONOutput)
	Infow("console logger initialized", "stage", "test")
	Cleanup()
}

func TestNamed(t *testing.T) {
	require.NoError(t, Initialize(true))
	child := Named("preheat")
	assert.NotNil(t, child)
}
