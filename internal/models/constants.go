package models

// Status is a display status of a borrowing.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusDueSoon  Status = "due-soon"
	StatusOverdue  Status = "overdue"
	StatusReturned Status = "returned"
)

// FineSource tells where a fine amount came from.
type FineSource string

const (
	FineSourceNone       FineSource = "none"
	FineSourceBackend    FineSource = "backend"
	FineSourceOverdue    FineSource = "overdue"
	FineSourceLateReturn FineSource = "late_return"
	FineSourceExempt     FineSource = "exempt"
)

const (
	RoleMember    = "member"
	RoleLibrarian = "librarian"
)

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

const (
	// DefaultDailyRate штраф за день просрочки в единицах валюты
	DefaultDailyRate = 5000

	// DefaultDueSoonDays порог "скоро срок возврата" в днях
	DefaultDueSoonDays = 5

	// DefaultCacheTTL время жизни кэша списков в секундах
	DefaultCacheTTL = 60

	// DefaultSyncInterval интервал полной синхронизации зеркала в секундах
	DefaultSyncInterval = 5 * 60

	// ReminderHour час отправки дайджеста напоминаний
	ReminderHour = 9

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128

	// DefaultPageSize выдач на странице списка в боте
	DefaultPageSize = 10

	// DefaultBackendTimeout таймаут запросов к бэкенду в секундах
	DefaultBackendTimeout = 10
)
