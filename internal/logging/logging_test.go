package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studio1767/fileman/internal/logging"
)

func TestInitToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fileman.log")

	err := logging.Init(logging.Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)

	logging.L().Debug("totals scanned", zap.Int("items", 3))
	logging.L().Info("operation finished", zap.String("kind", "copy"))
	logging.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"totals scanned"`)
	require.Contains(t, string(data), `"items":3`)
	require.Contains(t, string(data), `"kind":"copy"`)
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fileman.log")

	err := logging.Init(logging.Config{Level: "chatty", Format: "json", OutputPath: path})
	require.NoError(t, err)

	logging.L().Debug("hidden")
	logging.L().Info("shown")
	logging.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "hidden")
	require.Contains(t, string(data), "shown")
}
