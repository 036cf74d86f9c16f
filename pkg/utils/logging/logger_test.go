package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_WritesPerRunFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STAFFWERK_LOG_DIR", dir)

	logger, err := InitLogger("test")
	require.NoError(t, err)

	logger.Info("hello")
	_ = logger.Sync()

	matches, err := filepath.Glob(filepath.Join(dir, "staffwerk_test_*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	content, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Equal(t, matches, content)
}

func TestInitLogger_RejectsBadLevel(t *testing.T) {
	t.Setenv("STAFFWERK_LOG_DIR", t.TempDir())
	t.Setenv("STAFFWERK_LOG_LEVEL", "verbose")

	_, err := InitLogger("test")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "STAFFWERK_LOG_LEVEL")
}

func TestInitLogger_AcceptsLevelOverride(t *testing.T) {
	t.Setenv("STAFFWERK_LOG_DIR", t.TempDir())
	t.Setenv("STAFFWERK_LOG_LEVEL", "debug")

	logger, err := InitLogger("test")
	require.NoError(t, err)
	logger.Debug("visible on console now")
}
