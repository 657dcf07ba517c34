package repository

import (
	"context"
	"sync/atomic"
	"time"

	"libraryhub/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverCacheStore serves from primary (Redis) and degrades to fallback (memory) on errors.
// While degraded, the primary is retried once per recoveryInterval. Invalidations missed by the
// primary during an outage make it flush its keys before it serves again.
type FailoverCacheStore struct {
	primary   domain.CacheStore
	fallback  domain.CacheStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	// stale is set when a delete could not reach the primary.
	stale atomic.Bool
}

func NewFailoverCacheStore(primary, fallback domain.CacheStore, logger *zerolog.Logger) *FailoverCacheStore {
	return &FailoverCacheStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the primary should be tried for this call.
func (r *FailoverCacheStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

// primaryReady is usePrimary plus the flush of a primary that missed invalidations.
func (r *FailoverCacheStore) primaryReady(ctx context.Context) bool {
	if !r.usePrimary() {
		return false
	}
	if !r.stale.Load() {
		return true
	}
	if err := r.primary.DeletePrefix(ctx, ""); err != nil {
		r.markDown(err)
		return false
	}
	r.stale.Store(false)
	r.logger.Info().Msg("Primary cache store flushed after missed invalidations")
	return true
}

func (r *FailoverCacheStore) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary cache store failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverCacheStore) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary cache store recovered")
	}
}

func (r *FailoverCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.primaryReady(ctx) {
		val, ok, err := r.primary.Get(ctx, key)
		if err == nil {
			r.markUp()
			return val, ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.primaryReady(ctx) {
		err := r.primary.Set(ctx, key, value, ttl)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Set(ctx, key, value, ttl)
}

// Delete always clears the fallback too so stale entries do not survive a recovery.
func (r *FailoverCacheStore) Delete(ctx context.Context, key string) error {
	_ = r.fallback.Delete(ctx, key)
	return r.invalidatePrimary(func() error { return r.primary.Delete(ctx, key) })
}

func (r *FailoverCacheStore) DeletePrefix(ctx context.Context, prefix string) error {
	_ = r.fallback.DeletePrefix(ctx, prefix)
	return r.invalidatePrimary(func() error { return r.primary.DeletePrefix(ctx, prefix) })
}

// invalidatePrimary runs del on the primary, or marks the primary stale when it cannot.
func (r *FailoverCacheStore) invalidatePrimary(del func() error) error {
	if !r.usePrimary() {
		r.stale.Store(true)
		return nil
	}
	if err := del(); err != nil {
		r.markDown(err)
		r.stale.Store(true)
		return nil
	}
	r.markUp()
	return nil
}
