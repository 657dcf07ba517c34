package api

import (
	"context"

	"libraryhub/internal/borrowing"
	"libraryhub/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockBorrowings struct{ mock.Mock }

func (m *mockBorrowings) List(ctx context.Context, filter models.BorrowingFilter, statuses ...models.Status) ([]models.BorrowingView, error) {
	args := m.Called(ctx, filter, statuses)
	views, _ := args.Get(0).([]models.BorrowingView)
	return views, args.Error(1)
}

func (m *mockBorrowings) MemberLoans(ctx context.Context, memberID int64) ([]models.BorrowingView, error) {
	args := m.Called(ctx, memberID)
	views, _ := args.Get(0).([]models.BorrowingView)
	return views, args.Error(1)
}

func (m *mockBorrowings) MemberHistory(ctx context.Context, memberID int64) ([]models.BorrowingView, error) {
	args := m.Called(ctx, memberID)
	views, _ := args.Get(0).([]models.BorrowingView)
	return views, args.Error(1)
}

func (m *mockBorrowings) Get(ctx context.Context, id int64) (*models.BorrowingView, error) {
	args := m.Called(ctx, id)
	view, _ := args.Get(0).(*models.BorrowingView)
	return view, args.Error(1)
}

func (m *mockBorrowings) Summary(ctx context.Context, filter models.BorrowingFilter) (borrowing.Summary, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(borrowing.Summary), args.Error(1)
}

func (m *mockBorrowings) Derive(wire models.BorrowingWire) models.BorrowingView {
	return m.Called(wire).Get(0).(models.BorrowingView)
}

func (m *mockBorrowings) RequestBorrow(ctx context.Context, bookID int64) (*models.BorrowingView, error) {
	args := m.Called(ctx, bookID)
	view, _ := args.Get(0).(*models.BorrowingView)
	return view, args.Error(1)
}

func (m *mockBorrowings) Return(ctx context.Context, id int64) (*models.ReturnResult, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*models.ReturnResult)
	return res, args.Error(1)
}

func (m *mockBorrowings) Approve(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBorrowings) Deny(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBorrowings) ApproveReturn(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBorrowings) DenyReturn(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) ListBooks(ctx context.Context) ([]models.Book, error) {
	args := m.Called(ctx)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

func (m *mockCatalog) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	args := m.Called(ctx, id)
	book, _ := args.Get(0).(*models.Book)
	return book, args.Error(1)
}

func (m *mockCatalog) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	args := m.Called(ctx, query)
	books, _ := args.Get(0).([]models.Book)
	return books, args.Error(1)
}

func (m *mockCatalog) CreateBook(ctx context.Context, in models.BookInput) (*models.Book, error) {
	args := m.Called(ctx, in)
	book, _ := args.Get(0).(*models.Book)
	return book, args.Error(1)
}

func (m *mockCatalog) UpdateBook(ctx context.Context, id int64, in models.BookInput) (*models.Book, error) {
	args := m.Called(ctx, id, in)
	book, _ := args.Get(0).(*models.Book)
	return book, args.Error(1)
}

func (m *mockCatalog) DeleteBook(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCatalog) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *mockCatalog) DeleteUser(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
