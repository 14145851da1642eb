package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rowgraph/internal/logging"
)

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	logger, err := logging.New(logging.Config{Level: "debug", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Debug("entity loaded", zap.String("entity", "Order"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"entity loaded"`)
	assert.Contains(t, string(data), `"entity":"Order"`)
	assert.Contains(t, string(data), `"level":"debug"`)
}

func TestNew_Level(t *testing.T) {
	logger, err := logging.New(logging.Config{Level: "warn", Encoding: "console", Development: true})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.ErrorLevel))

	logger, err = logging.New(logging.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNew_Errors(t *testing.T) {
	_, err := logging.New(logging.Config{Level: "loud"})
	require.Error(t, err)

	_, err = logging.New(logging.Config{Encoding: "xml"})
	require.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, logging.OrNop(nil))

	logger := zap.NewExample()
	assert.Same(t, logger, logging.OrNop(logger))
}
