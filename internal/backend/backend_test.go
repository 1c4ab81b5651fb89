package backend

import (
	"context"
	"testing"

	"github.com/luxfi/trigger/internal/audit"
	"github.com/luxfi/trigger/internal/config"
	"github.com/luxfi/trigger/internal/queue"
	"github.com/luxfi/trigger/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenDefaults(t *testing.T) {
	cfg, err := config.Load("test", nil)
	require.NoError(t, err)
	logger := zap.NewNop()

	s, err := OpenStorage(cfg, logger)
	require.NoError(t, err)
	require.IsType(t, &storage.MemoryStorage{}, s)

	q, err := OpenQueue(cfg, logger)
	require.NoError(t, err)
	require.IsType(t, &queue.MemoryQueue{}, q)

	sink, closeFn, err := OpenAuditSink(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &audit.ZapSink{}, sink)
}

func TestOpenFileStorage(t *testing.T) {
	cfg, err := config.Load("test", []string{"--storage-dir", t.TempDir()})
	require.NoError(t, err)

	s, err := OpenStorage(cfg, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &storage.FileStorage{}, s)
}

func TestOpenErrors(t *testing.T) {
	cfg, err := config.Load("test", []string{"--redis-url", "not-a-url"})
	require.NoError(t, err)
	_, err = OpenQueue(cfg, zap.NewNop())
	require.Error(t, err)

	cfg, err = config.Load("test", []string{"--database-url", "://bad"})
	require.NoError(t, err)
	_, _, err = OpenAuditSink(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
