package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"libraryhub/internal/domain"
	"libraryhub/internal/metrics"
	"libraryhub/internal/models"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cache key prefixes, also used for invalidation.
const (
	PrefixBorrowings = "borrowings:"
	PrefixBooks      = "books:"
	PrefixUsers      = "users:"
)

// CachedRepository is a read-through JSON cache in front of any BorrowingRepository.
// Cache failures are logged and never fail the read.
type CachedRepository struct {
	inner  domain.BorrowingRepository
	cache  domain.CacheStore
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewCachedRepository(inner domain.BorrowingRepository, cache domain.CacheStore, ttl time.Duration, logger *zerolog.Logger) *CachedRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CachedRepository{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (r *CachedRepository) ListBorrowings(ctx context.Context, filter models.BorrowingFilter) ([]models.BorrowingWire, error) {
	key := fmt.Sprintf("%slist:%s:%d", PrefixBorrowings, filter.Status, filter.MemberID)
	return readThrough(ctx, r, key, func() ([]models.BorrowingWire, error) {
		return r.inner.ListBorrowings(ctx, filter)
	})
}

func (r *CachedRepository) GetBorrowing(ctx context.Context, id int64) (*models.BorrowingWire, error) {
	return readThrough(ctx, r, fmt.Sprintf("%sget:%d", PrefixBorrowings, id), func() (*models.BorrowingWire, error) {
		return r.inner.GetBorrowing(ctx, id)
	})
}

func (r *CachedRepository) ListBooks(ctx context.Context) ([]models.Book, error) {
	return readThrough(ctx, r, PrefixBooks+"list", func() ([]models.Book, error) {
		return r.inner.ListBooks(ctx)
	})
}

func (r *CachedRepository) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	return readThrough(ctx, r, fmt.Sprintf("%sget:%d", PrefixBooks, id), func() (*models.Book, error) {
		return r.inner.GetBook(ctx, id)
	})
}

func (r *CachedRepository) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	key := PrefixBooks + "search:" + strings.ToLower(strings.TrimSpace(query))
	return readThrough(ctx, r, key, func() ([]models.Book, error) {
		return r.inner.SearchBooks(ctx, query)
	})
}

func (r *CachedRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	return readThrough(ctx, r, PrefixUsers+"list", func() ([]models.User, error) {
		return r.inner.ListUsers(ctx)
	})
}

// Invalidate drops every cached entry under the given prefixes.
func (r *CachedRepository) Invalidate(ctx context.Context, prefixes ...string) {
	for _, p := range prefixes {
		if err := r.cache.DeletePrefix(ctx, p); err != nil {
			r.logger.Warn().Err(err).Str("prefix", p).Msg("Cache invalidation failed")
		}
	}
}

func readThrough[T any](ctx context.Context, r *CachedRepository, key string, load func() (T, error)) (T, error) {
	if raw, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			metrics.IncCache(true)
			return cached, nil
		}
		r.logger.Warn().Str("key", key).Msg("Dropping undecodable cache entry")
		_ = r.cache.Delete(ctx, key)
	}
	metrics.IncCache(false)

	val, err := load()
	if err != nil {
		return val, err
	}

	if raw, err := json.Marshal(val); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return val, nil
}
