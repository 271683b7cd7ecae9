package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger("worker")
	require.NotNil(t, logger)
	assert.Equal(t, "worker", logger.component)

	// Logging must not panic at any level.
	logger.Debugf("debug %d", 1)
	logger.Infof("info %s", "x")
	logger.Warnf("warn")
	logger.Errorf("error: %v", assert.AnError)
}

func TestInit_Idempotent(t *testing.T) {
	require.NoError(t, Init(true))
	require.NoError(t, Init(false), "second init is a no-op")
}
