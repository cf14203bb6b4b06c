package logctx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithEmptyLogToFileUsesConsole(t *testing.T) {
	logger, err := New("", false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Info("hello") })
}

func TestNewWithLogToFileCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir, true)
	require.NoError(t, err)
	logger.Info("hello")
	logger.Sync()

	_, statErr := os.Stat(filepath.Join(dir, "boogle.log"))
	assert.NoError(t, statErr)
}
