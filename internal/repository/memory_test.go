package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheStore(t *testing.T) {
	repo := NewMemoryCacheStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "books:list", []byte(`[1]`), time.Minute))
		got, ok, err := repo.Get(ctx, "books:list")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte(`[1]`), got)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "short", []byte("x"), time.Second))
		now = now.Add(2 * time.Second)
		_, ok, err := repo.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("NoTTL", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "forever", []byte("x"), 0))
		now = now.Add(24 * time.Hour)
		_, ok, _ := repo.Get(ctx, "forever")
		assert.True(t, ok)
	})

	t.Run("DeletePrefix", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "borrowings:list::0", []byte("a"), 0))
		require.NoError(t, repo.Set(ctx, "borrowings:get:1", []byte("b"), 0))
		require.NoError(t, repo.Set(ctx, "users:list", []byte("c"), 0))

		require.NoError(t, repo.DeletePrefix(ctx, "borrowings:"))

		_, ok, _ := repo.Get(ctx, "borrowings:get:1")
		assert.False(t, ok)
		_, ok, _ = repo.Get(ctx, "users:list")
		assert.True(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "users:list"))
		_, ok, _ := repo.Get(ctx, "users:list")
		assert.False(t, ok)
	})
}
