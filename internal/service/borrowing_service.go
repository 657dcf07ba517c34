package service

import (
	"context"
	"errors"
	"fmt"

	"libraryhub/internal/borrowing"
	"libraryhub/internal/domain"
	"libraryhub/internal/events"
	"libraryhub/internal/metrics"
	"libraryhub/internal/models"

	"github.com/rs/zerolog"
)

// ErrActionsUnavailable is returned when mutations are requested but no backend client is wired.
var ErrActionsUnavailable = errors.New("borrowing actions are not configured")

// BorrowingService turns authoritative borrowing records into display-ready views.
type BorrowingService struct {
	repo     domain.BorrowingRepository
	actions  domain.BorrowingActions
	deriver  *borrowing.Deriver
	eventBus domain.EventPublisher
	queue    domain.SyncQueue
	logger   *zerolog.Logger
}

func NewBorrowingService(
	repo domain.BorrowingRepository,
	actions domain.BorrowingActions,
	deriver *borrowing.Deriver,
	eventBus domain.EventPublisher,
	queue domain.SyncQueue,
	logger *zerolog.Logger,
) *BorrowingService {
	if deriver == nil {
		deriver = borrowing.NewDeriver(borrowing.DefaultPolicy(), nil)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BorrowingService{
		repo:     repo,
		actions:  actions,
		deriver:  deriver,
		eventBus: eventBus,
		queue:    queue,
		logger:   logger,
	}
}

// List returns views for the filter. Statuses, when given, narrow by derived status.
func (s *BorrowingService) List(ctx context.Context, filter models.BorrowingFilter, statuses ...models.Status) ([]models.BorrowingView, error) {
	wires, err := s.repo.ListBorrowings(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := s.deriver.Views(wires)
	recordDerived(views)
	return borrowing.FilterByStatus(views, statuses...), nil
}

// MemberLoans returns the member's borrowings that are not returned yet.
func (s *BorrowingService) MemberLoans(ctx context.Context, memberID int64) ([]models.BorrowingView, error) {
	return s.List(ctx, models.BorrowingFilter{Status: string(models.StatusActive), MemberID: memberID})
}

// MemberHistory returns every borrowing of the member, newest first.
func (s *BorrowingService) MemberHistory(ctx context.Context, memberID int64) ([]models.BorrowingView, error) {
	return s.List(ctx, models.BorrowingFilter{MemberID: memberID})
}

func (s *BorrowingService) Get(ctx context.Context, id int64) (*models.BorrowingView, error) {
	wire, err := s.repo.GetBorrowing(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.deriver.View(*wire, s.deriver.Now())
	recordDerived([]models.BorrowingView{view})
	return &view, nil
}

// Summary counts the filtered borrowings per derived status. Catalog totals ignore the filter.
func (s *BorrowingService) Summary(ctx context.Context, filter models.BorrowingFilter) (borrowing.Summary, error) {
	views, err := s.List(ctx, filter)
	if err != nil {
		return borrowing.Summary{}, err
	}
	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return borrowing.Summary{}, fmt.Errorf("list books: %w", err)
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return borrowing.Summary{}, fmt.Errorf("list users: %w", err)
	}
	sum := borrowing.Summarize(views)
	sum.AddCatalog(books, users)
	return sum, nil
}

// Derive computes the view of a record supplied by the caller, without touching the backend.
func (s *BorrowingService) Derive(wire models.BorrowingWire) models.BorrowingView {
	view := s.deriver.View(wire, s.deriver.Now())
	recordDerived([]models.BorrowingView{view})
	return view
}

func (s *BorrowingService) RequestBorrow(ctx context.Context, bookID int64) (*models.BorrowingView, error) {
	if s.actions == nil {
		return nil, ErrActionsUnavailable
	}
	if bookID <= 0 {
		return nil, fmt.Errorf("book_id %d: %w", bookID, domain.ErrInvalidRecord)
	}

	wire, err := s.actions.RequestBorrow(ctx, bookID)
	if err != nil {
		return nil, err
	}
	view := s.deriver.View(*wire, s.deriver.Now())

	s.publishEvent(events.EventBorrowingRequested, events.BorrowingEventPayload{
		BorrowingID: wire.ID,
		BookID:      wire.BookID,
		MemberID:    wire.MemberID,
		Status:      string(view.Derived.Status),
	})
	s.enqueueRefresh(ctx, wire.ID)
	return &view, nil
}

func (s *BorrowingService) Return(ctx context.Context, id int64) (*models.ReturnResult, error) {
	if s.actions == nil {
		return nil, ErrActionsUnavailable
	}

	res, err := s.actions.ReturnBorrowing(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBorrowingReturned, events.BorrowingEventPayload{
		BorrowingID: id,
		BookID:      res.Borrowing.BookID,
		MemberID:    res.Borrowing.MemberID,
		Status:      string(models.StatusReturned),
		Fine:        res.Fine,
	})
	s.enqueueRefresh(ctx, id)
	return res, nil
}

func (s *BorrowingService) Approve(ctx context.Context, id int64) error {
	return s.transition(ctx, id, events.EventBorrowingApproved, func(a domain.BorrowingActions) error {
		return a.Approve(ctx, id)
	})
}

func (s *BorrowingService) Deny(ctx context.Context, id int64) error {
	return s.transition(ctx, id, events.EventBorrowingDenied, func(a domain.BorrowingActions) error {
		return a.Deny(ctx, id)
	})
}

func (s *BorrowingService) ApproveReturn(ctx context.Context, id int64) error {
	return s.transition(ctx, id, events.EventReturnApproved, func(a domain.BorrowingActions) error {
		return a.ApproveReturn(ctx, id)
	})
}

func (s *BorrowingService) DenyReturn(ctx context.Context, id int64) error {
	return s.transition(ctx, id, events.EventReturnDenied, func(a domain.BorrowingActions) error {
		return a.DenyReturn(ctx, id)
	})
}

func (s *BorrowingService) transition(ctx context.Context, id int64, eventType string, call func(domain.BorrowingActions) error) error {
	if s.actions == nil {
		return ErrActionsUnavailable
	}
	if err := call(s.actions); err != nil {
		return err
	}
	s.publishEvent(eventType, events.BorrowingEventPayload{BorrowingID: id})
	s.enqueueRefresh(ctx, id)
	return nil
}

func (s *BorrowingService) publishEvent(eventType string, payload events.BorrowingEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("borrowing_id", payload.BorrowingID).Msg("publish event error")
	}
}

func (s *BorrowingService) enqueueRefresh(ctx context.Context, id int64) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueRefreshBorrowing(ctx, id); err != nil {
		s.logger.Error().Err(err).Int64("borrowing_id", id).Msg("sync enqueue error")
	}
}

func recordDerived(views []models.BorrowingView) {
	for i := range views {
		metrics.IncDerived(string(views[i].Derived.Status), string(views[i].Derived.FineSource))
	}
}
