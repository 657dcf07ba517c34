package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStore) DeletePrefix(ctx context.Context, prefix string) error {
	return m.Called(ctx, prefix).Error(0)
}

func TestFailoverCacheStore(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverCacheStore(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("Get", ctx, "k1").Return([]byte("v1"), true, nil).Once()

		got, ok, err := repo.Get(ctx, "k1")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v1"), got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("Get", ctx, "k2").Return(nil, false, errors.New("fail")).Once()
		fallback.On("Get", ctx, "k2").Return([]byte("v2"), true, nil).Once()

		got, ok, err := repo.Get(ctx, "k2")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v2"), got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDownSkipsPrimary", func(t *testing.T) {
		fallback.On("Set", ctx, "k3", []byte("v"), time.Minute).Return(nil).Once()

		assert.NoError(t, repo.Set(ctx, "k3", []byte("v"), time.Minute))
		fallback.AssertExpectations(t)
		primary.AssertNotCalled(t, "Set", ctx, "k3", []byte("v"), time.Minute)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("Get", ctx, "k4").Return([]byte("v4"), true, nil).Once()

		got, _, err := repo.Get(ctx, "k4")
		assert.NoError(t, err)
		assert.Equal(t, []byte("v4"), got)
		assert.False(t, repo.isDown.Load())
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("Get", ctx, "k5").Return(nil, false, errors.New("still fail")).Once()
		fallback.On("Get", ctx, "k5").Return(nil, false, nil).Once()

		_, ok, err := repo.Get(ctx, "k5")
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, repo.isDown.Load())
	})

	t.Run("DeletePrefixClearsBoth", func(t *testing.T) {
		repo.isDown.Store(false)
		fallback.On("DeletePrefix", ctx, "books:").Return(nil).Once()
		primary.On("DeletePrefix", ctx, "books:").Return(nil).Once()

		assert.NoError(t, repo.DeletePrefix(ctx, "books:"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DeleteFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		fallback.On("Delete", ctx, "k6").Return(nil).Once()
		primary.On("Delete", ctx, "k6").Return(errors.New("fail")).Once()

		assert.NoError(t, repo.Delete(ctx, "k6"))
		assert.True(t, repo.isDown.Load())
	})
}

func TestFailoverCacheStore_FlushesPrimaryAfterMissedInvalidation(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverCacheStore(primary, fallback, &logger)
	ctx := context.Background()

	// outage: the delete only reaches memory
	repo.isDown.Store(true)
	repo.lastCheck.Store(time.Now().UnixNano())
	fallback.On("DeletePrefix", ctx, "borrowings:").Return(nil).Once()
	assert.NoError(t, repo.DeletePrefix(ctx, "borrowings:"))
	primary.AssertNotCalled(t, "DeletePrefix", ctx, "borrowings:")
	assert.True(t, repo.stale.Load())

	// recovery: the primary is flushed before its first read
	repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
	primary.On("DeletePrefix", ctx, "").Return(nil).Once()
	primary.On("Get", ctx, "borrowings:list").Return(nil, false, nil).Once()

	_, ok, err := repo.Get(ctx, "borrowings:list")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, repo.stale.Load())
	assert.False(t, repo.isDown.Load())
	primary.AssertExpectations(t)
	fallback.AssertExpectations(t)
}

func TestFailoverCacheStore_FlushFailureKeepsFallback(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverCacheStore(primary, fallback, &logger)
	ctx := context.Background()

	repo.stale.Store(true)
	primary.On("DeletePrefix", ctx, "").Return(errors.New("down")).Once()
	fallback.On("Get", ctx, "k").Return([]byte("v"), true, nil).Once()

	got, ok, err := repo.Get(ctx, "k")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.True(t, repo.stale.Load())
	assert.True(t, repo.isDown.Load())
	primary.AssertNotCalled(t, "Get", ctx, "k")
}
