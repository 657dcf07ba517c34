package app

import (
	"context"

	"libraryhub/internal/events"
	"libraryhub/internal/repository"

	"github.com/rs/zerolog"
)

// Invalidator drops cached reads by key prefix.
type Invalidator interface {
	Invalidate(ctx context.Context, prefixes ...string)
}

// SubscribeCacheInvalidation drops cached reads as soon as a mutation is published,
// before the mirror refresh catches up.
func SubscribeCacheInvalidation(ctx context.Context, bus *events.EventBus, cache Invalidator, logger *zerolog.Logger) {
	if bus == nil || cache == nil {
		return
	}

	bus.Subscribe(func(ev *events.Event) error {
		var payload events.BorrowingEventPayload
		if err := ev.Decode(&payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Debug().Str("event", ev.Type).Int64("borrowing_id", payload.BorrowingID).Msg("invalidating borrowing cache")
		// book availability changes with every borrowing transition
		cache.Invalidate(ctx, repository.PrefixBorrowings, repository.PrefixBooks)
		return nil
	}, events.BorrowingEvents...)

	bus.Subscribe(func(ev *events.Event) error {
		cache.Invalidate(ctx, repository.PrefixBooks)
		return nil
	}, events.EventBookChanged)

	bus.Subscribe(func(ev *events.Event) error {
		cache.Invalidate(ctx, repository.PrefixUsers, repository.PrefixBorrowings)
		return nil
	}, events.EventUserDeleted)
}
