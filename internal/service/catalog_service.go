package service

import (
	"context"
	"fmt"
	"strings"

	"libraryhub/internal/domain"
	"libraryhub/internal/events"
	"libraryhub/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService serves books and users and forwards librarian edits to the backend.
type CatalogService struct {
	repo     domain.BorrowingRepository
	actions  domain.CatalogActions
	eventBus domain.EventPublisher
	queue    domain.SyncQueue
	logger   *zerolog.Logger
}

func NewCatalogService(repo domain.BorrowingRepository, actions domain.CatalogActions, eventBus domain.EventPublisher, queue domain.SyncQueue, logger *zerolog.Logger) *CatalogService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CatalogService{repo: repo, actions: actions, eventBus: eventBus, queue: queue, logger: logger}
}

func (s *CatalogService) ListBooks(ctx context.Context) ([]models.Book, error) {
	return s.repo.ListBooks(ctx)
}

func (s *CatalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	return s.repo.GetBook(ctx, id)
}

// SearchBooks requires a non-blank query, like the backend does.
func (s *CatalogService) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required: %w", domain.ErrInvalidRecord)
	}
	return s.repo.SearchBooks(ctx, query)
}

func (s *CatalogService) CreateBook(ctx context.Context, in models.BookInput) (*models.Book, error) {
	if s.actions == nil {
		return nil, ErrActionsUnavailable
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", domain.ErrInvalidRecord)
	}
	if err := validateCopies(in); err != nil {
		return nil, err
	}

	book, err := s.actions.CreateBook(ctx, in)
	if err != nil {
		return nil, err
	}
	s.bookChanged(ctx, book.ID)
	return book, nil
}

func (s *CatalogService) UpdateBook(ctx context.Context, id int64, in models.BookInput) (*models.Book, error) {
	if s.actions == nil {
		return nil, ErrActionsUnavailable
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, fmt.Errorf("title must not be blank: %w", domain.ErrInvalidRecord)
	}
	if err := validateCopies(in); err != nil {
		return nil, err
	}

	book, err := s.actions.UpdateBook(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.bookChanged(ctx, id)
	return book, nil
}

func (s *CatalogService) DeleteBook(ctx context.Context, id int64) error {
	if s.actions == nil {
		return ErrActionsUnavailable
	}
	if err := s.actions.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.bookChanged(ctx, id)
	return nil
}

func (s *CatalogService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *CatalogService) DeleteUser(ctx context.Context, id int64) error {
	if s.actions == nil {
		return ErrActionsUnavailable
	}
	if err := s.actions.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.publish(events.EventUserDeleted, events.CatalogEventPayload{UserID: id})
	s.enqueueRefreshAll(ctx)
	return nil
}

func validateCopies(in models.BookInput) error {
	if in.CopiesTotal != nil && *in.CopiesTotal < 0 {
		return fmt.Errorf("copies_total must not be negative: %w", domain.ErrInvalidRecord)
	}
	if in.CopiesAvailable != nil && *in.CopiesAvailable < 0 {
		return fmt.Errorf("copies_available must not be negative: %w", domain.ErrInvalidRecord)
	}
	if in.CopiesTotal != nil && in.CopiesAvailable != nil && *in.CopiesAvailable > *in.CopiesTotal {
		return fmt.Errorf("copies_available exceeds copies_total: %w", domain.ErrInvalidRecord)
	}
	return nil
}

func (s *CatalogService) bookChanged(ctx context.Context, id int64) {
	s.publish(events.EventBookChanged, events.CatalogEventPayload{BookID: id})
	s.enqueueRefreshAll(ctx)
}

func (s *CatalogService) publish(eventType string, payload events.CatalogEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

func (s *CatalogService) enqueueRefreshAll(ctx context.Context) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueRefreshAll(ctx); err != nil {
		s.logger.Error().Err(err).Msg("sync enqueue error")
	}
}
