package domain

import (
	"context"
	"time"

	"libraryhub/internal/borrowing"
	"libraryhub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BorrowingRepository is the read side of the authoritative data.
type BorrowingRepository interface {
	ListBorrowings(ctx context.Context, filter models.BorrowingFilter) ([]models.BorrowingWire, error)
	GetBorrowing(ctx context.Context, id int64) (*models.BorrowingWire, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	SearchBooks(ctx context.Context, query string) ([]models.Book, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// BorrowingActions are backend mutations of the borrowing lifecycle.
type BorrowingActions interface {
	RequestBorrow(ctx context.Context, bookID int64) (*models.BorrowingWire, error)
	ReturnBorrowing(ctx context.Context, id int64) (*models.ReturnResult, error)
	Approve(ctx context.Context, id int64) error
	Deny(ctx context.Context, id int64) error
	ApproveReturn(ctx context.Context, id int64) error
	DenyReturn(ctx context.Context, id int64) error
}

// CatalogActions are librarian mutations of books and users.
type CatalogActions interface {
	CreateBook(ctx context.Context, in models.BookInput) (*models.Book, error)
	UpdateBook(ctx context.Context, id int64, in models.BookInput) (*models.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	DeleteUser(ctx context.Context, id int64) error
}

// MirrorStore persists backend snapshots locally.
type MirrorStore interface {
	BorrowingRepository
	UpsertBorrowings(ctx context.Context, rows []models.BorrowingWire) error
	UpsertBooks(ctx context.Context, rows []models.Book) error
	UpsertUsers(ctx context.Context, rows []models.User) error
	ReplaceAll(ctx context.Context, borrowings []models.BorrowingWire, books []models.Book, users []models.User) error
	DeleteBook(ctx context.Context, id int64) error
	DeleteUser(ctx context.Context, id int64) error
}

// CacheStore is a byte cache with TTL.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SyncQueue interface {
	EnqueueRefreshAll(ctx context.Context) error
	EnqueueRefreshBorrowing(ctx context.Context, borrowingID int64) error
	EnqueueSheetExport(ctx context.Context) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ReportWriter publishes derived borrowing views to an external report.
type ReportWriter interface {
	WriteBorrowings(ctx context.Context, views []models.BorrowingView, generatedAt time.Time) error
}

type BorrowingService interface {
	List(ctx context.Context, filter models.BorrowingFilter, statuses ...models.Status) ([]models.BorrowingView, error)
	MemberLoans(ctx context.Context, memberID int64) ([]models.BorrowingView, error)
	MemberHistory(ctx context.Context, memberID int64) ([]models.BorrowingView, error)
	Get(ctx context.Context, id int64) (*models.BorrowingView, error)
	Summary(ctx context.Context, filter models.BorrowingFilter) (borrowing.Summary, error)
	Derive(wire models.BorrowingWire) models.BorrowingView
	RequestBorrow(ctx context.Context, bookID int64) (*models.BorrowingView, error)
	Return(ctx context.Context, id int64) (*models.ReturnResult, error)
	Approve(ctx context.Context, id int64) error
	Deny(ctx context.Context, id int64) error
	ApproveReturn(ctx context.Context, id int64) error
	DenyReturn(ctx context.Context, id int64) error
}

type CatalogService interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	SearchBooks(ctx context.Context, query string) ([]models.Book, error)
	CreateBook(ctx context.Context, in models.BookInput) (*models.Book, error)
	UpdateBook(ctx context.Context, id int64, in models.BookInput) (*models.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}
