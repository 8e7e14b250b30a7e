package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "thread_memory.json")
}

func TestOpen(t *testing.T) {
	t.Run("missing file starts empty", func(t *testing.T) {
		s := Open(mapPath(t))
		assert.Equal(t, 0, s.Len())
	})

	t.Run("corrupt file fails open to empty", func(t *testing.T) {
		path := mapPath(t)
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		s := Open(path)
		assert.Equal(t, 0, s.Len())

		// The store still works and overwrites the corrupt file.
		id, err := s.GetOrCreate(context.Background(), "U1", func(context.Context) (string, error) {
			return "T1", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "T1", id)

		reloaded := Open(path)
		got, ok := reloaded.Lookup("U1")
		assert.True(t, ok)
		assert.Equal(t, "T1", got)
	})
}

func TestGetOrCreate(t *testing.T) {
	t.Run("creates once and is idempotent", func(t *testing.T) {
		s := Open(mapPath(t))

		var calls int32
		create := func(context.Context) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "T1", nil
		}

		first, err := s.GetOrCreate(context.Background(), "U1", create)
		require.NoError(t, err)
		assert.Equal(t, "T1", first)

		second, err := s.GetOrCreate(context.Background(), "U1", create)
		require.NoError(t, err)
		assert.Equal(t, "T1", second)

		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("different users get different threads", func(t *testing.T) {
		s := Open(mapPath(t))

		id1, err := s.GetOrCreate(context.Background(), "U1", func(context.Context) (string, error) {
			return "T1", nil
		})
		require.NoError(t, err)

		id2, err := s.GetOrCreate(context.Background(), "U2", func(context.Context) (string, error) {
			return "T2", nil
		})
		require.NoError(t, err)

		assert.Equal(t, "T1", id1)
		assert.Equal(t, "T2", id2)
		assert.Equal(t, 2, s.Len())
	})

	t.Run("create failure propagates and stores nothing", func(t *testing.T) {
		s := Open(mapPath(t))

		_, err := s.GetOrCreate(context.Background(), "U1", func(context.Context) (string, error) {
			return "", errors.New("upstream unavailable")
		})
		assert.Error(t, err)
		assert.Equal(t, 0, s.Len())

		// A later attempt can still succeed.
		id, err := s.GetOrCreate(context.Background(), "U1", func(context.Context) (string, error) {
			return "T1", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "T1", id)
	})

	t.Run("concurrent creations for the same user are deduplicated", func(t *testing.T) {
		s := Open(mapPath(t))

		var calls int32
		create := func(context.Context) (string, error) {
			atomic.AddInt32(&calls, 1)
			time.Sleep(20 * time.Millisecond)
			return "T1", nil
		}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := s.GetOrCreate(context.Background(), "U1", create)
				assert.NoError(t, err)
				assert.Equal(t, "T1", id)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestPersistence(t *testing.T) {
	t.Run("mapping round-trips through the file", func(t *testing.T) {
		path := mapPath(t)
		s := Open(path)

		_, err := s.GetOrCreate(context.Background(), "U1", func(context.Context) (string, error) {
			return "T1", nil
		})
		require.NoError(t, err)
		_, err = s.GetOrCreate(context.Background(), "U2", func(context.Context) (string, error) {
			return "T2", nil
		})
		require.NoError(t, err)

		reloaded := Open(path)
		assert.Equal(t, 2, reloaded.Len())

		id, ok := reloaded.Lookup("U1")
		assert.True(t, ok)
		assert.Equal(t, "T1", id)

		id, ok = reloaded.Lookup("U2")
		assert.True(t, ok)
		assert.Equal(t, "T2", id)
	})

	t.Run("file is human-readable flat JSON", func(t *testing.T) {
		path := mapPath(t)
		s := Open(path)

		_, err := s.GetOrCreate(context.Background(), "U1", func(context.Context) (string, error) {
			return "T1", nil
		})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"U1": "T1"`)
	})
}
