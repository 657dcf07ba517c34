package service

import (
	"context"

	"libraryhub/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ListBorrowings(ctx context.Context, filter models.BorrowingFilter) ([]models.BorrowingWire, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BorrowingWire), args.Error(1)
}

func (m *mockRepo) GetBorrowing(ctx context.Context, id int64) (*models.BorrowingWire, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BorrowingWire), args.Error(1)
}

func (m *mockRepo) ListBooks(ctx context.Context) ([]models.Book, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *mockRepo) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *mockRepo) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *mockRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

type mockActions struct {
	mock.Mock
}

func (m *mockActions) RequestBorrow(ctx context.Context, bookID int64) (*models.BorrowingWire, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BorrowingWire), args.Error(1)
}

func (m *mockActions) ReturnBorrowing(ctx context.Context, id int64) (*models.ReturnResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReturnResult), args.Error(1)
}

func (m *mockActions) Approve(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockActions) Deny(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockActions) ApproveReturn(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockActions) DenyReturn(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockActions) CreateBook(ctx context.Context, in models.BookInput) (*models.Book, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *mockActions) UpdateBook(ctx context.Context, id int64, in models.BookInput) (*models.Book, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *mockActions) DeleteBook(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockActions) DeleteUser(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) EnqueueRefreshAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockQueue) EnqueueRefreshBorrowing(ctx context.Context, borrowingID int64) error {
	return m.Called(ctx, borrowingID).Error(0)
}

func (m *mockQueue) EnqueueSheetExport(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
