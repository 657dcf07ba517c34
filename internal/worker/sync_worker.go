package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libraryhub/internal/domain"
	"libraryhub/internal/metrics"
	"libraryhub/internal/models"
	"libraryhub/internal/repository"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	TaskRefreshAll       = "refresh_all"
	TaskRefreshBorrowing = "refresh_borrowing"
	TaskExportSheet      = "export_sheet"
)

// TaskStore persists sync tasks.
type TaskStore interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// ViewLister produces derived borrowing views for reports.
type ViewLister interface {
	List(ctx context.Context, filter models.BorrowingFilter, statuses ...models.Status) ([]models.BorrowingView, error)
}

// Invalidator drops cached reads after the mirror changes.
type Invalidator interface {
	Invalidate(ctx context.Context, prefixes ...string)
}

// taskPayload is persisted in SyncTask.Payload as JSON.
type taskPayload struct {
	BorrowingID int64 `json:"borrowing_id,omitempty"`
}

// Options wires the optional collaborators of a SyncWorker.
type Options struct {
	Redis       *redis.Client
	Retry       RetryPolicy
	Views       ViewLister
	Report      domain.ReportWriter
	Invalidator Invalidator
	Logger      *zerolog.Logger
}

// SyncWorker consumes sync_queue tasks: it refreshes the mirror from the backend and exports reports.
type SyncWorker struct {
	store         TaskStore
	source        domain.BorrowingRepository
	mirror        domain.MirrorStore
	views         ViewLister
	report        domain.ReportWriter
	invalidator   Invalidator
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
	now           func() time.Time
}

// NewSyncWorker builds a worker with sane defaults.
func NewSyncWorker(store TaskStore, source domain.BorrowingRepository, mirror domain.MirrorStore, opts Options) *SyncWorker {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SyncWorker{
		store:         store,
		source:        source,
		mirror:        mirror,
		views:         opts.Views,
		report:        opts.Report,
		invalidator:   opts.Invalidator,
		redis:         opts.Redis,
		retryPolicy:   opts.Retry.withDefaults(),
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: "libraryhub:sync:queue",
		deadLetterKey: "libraryhub:sync:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
		now:           time.Now,
	}
}

func (w *SyncWorker) EnqueueRefreshAll(ctx context.Context) error {
	return w.enqueue(ctx, TaskRefreshAll, taskPayload{})
}

func (w *SyncWorker) EnqueueRefreshBorrowing(ctx context.Context, borrowingID int64) error {
	if borrowingID <= 0 {
		return errors.New("borrowing id is required")
	}
	return w.enqueue(ctx, TaskRefreshBorrowing, taskPayload{BorrowingID: borrowingID})
}

// EnqueueSheetExport is a no-op when no report writer is configured.
func (w *SyncWorker) EnqueueSheetExport(ctx context.Context) error {
	if w.report == nil || w.views == nil {
		return nil
	}
	return w.enqueue(ctx, TaskExportSheet, taskPayload{})
}

// enqueue persists the task to the DB and schedules it via redis or the in-memory queue.
func (w *SyncWorker) enqueue(ctx context.Context, taskType string, payload taskPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:    taskType,
		BorrowingID: payload.BorrowingID,
		Payload:     string(raw),
		Status:      models.SyncStatusPending,
	}
	if err := w.store.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("Redis push failed, using memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("Memory queue full, task left to polling")
	}
	return nil
}

// Start runs the main loop until ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Sync worker started")
	defer w.logger.Info().Msg("Sync worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.store.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("Fetch pending sync tasks failed")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}
		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

// StartScheduler enqueues refresh_all (and export_sheet when configured) every interval.
func (w *SyncWorker) StartScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = models.DefaultSyncInterval * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.scheduleTick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scheduleTick(ctx)
		}
	}
}

func (w *SyncWorker) scheduleTick(ctx context.Context) {
	if err := w.EnqueueRefreshAll(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Schedule refresh_all failed")
	}
	if err := w.EnqueueSheetExport(ctx); err != nil {
		w.logger.Error().Err(err).Msg("Schedule export_sheet failed")
	}
}

func (w *SyncWorker) sleep(ctx context.Context) {
	t := time.NewTimer(w.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *SyncWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SyncWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Warn().Err(err).Msg("Redis BRPOP failed")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("Decode redis task failed")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SyncWorker) processTask(ctx context.Context, task *models.SyncTask) {
	var payload taskPayload
	if task.Payload != "" {
		if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
			w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
			return
		}
	}

	if err := w.handleTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	metrics.IncSyncTask(task.TaskType, models.SyncStatusCompleted)
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Mark task completed failed")
	}
}

func (w *SyncWorker) handleTask(ctx context.Context, taskType string, payload taskPayload) error {
	switch taskType {
	case TaskRefreshAll:
		return w.refreshAll(ctx)
	case TaskRefreshBorrowing:
		if payload.BorrowingID == 0 {
			return errors.New("borrowing id missing")
		}
		return w.refreshBorrowing(ctx, payload.BorrowingID)
	case TaskExportSheet:
		return w.exportSheet(ctx)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SyncWorker) refreshAll(ctx context.Context) error {
	borrowings, err := w.source.ListBorrowings(ctx, models.BorrowingFilter{})
	if err != nil {
		return err
	}
	books, err := w.source.ListBooks(ctx)
	if err != nil {
		return err
	}
	users, err := w.source.ListUsers(ctx)
	if err != nil {
		return err
	}
	if err := w.mirror.ReplaceAll(ctx, borrowings, books, users); err != nil {
		return err
	}
	w.invalidate(ctx, repository.PrefixBorrowings, repository.PrefixBooks, repository.PrefixUsers)
	w.logger.Info().
		Int("borrowings", len(borrowings)).
		Int("books", len(books)).
		Int("users", len(users)).
		Msg("Mirror refreshed")
	return nil
}

func (w *SyncWorker) refreshBorrowing(ctx context.Context, id int64) error {
	wire, err := w.source.GetBorrowing(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		// denied requests disappear from the backend; a full refresh drops them from the mirror
		return w.refreshAll(ctx)
	}
	if err != nil {
		return err
	}
	if err := w.mirror.UpsertBorrowings(ctx, []models.BorrowingWire{*wire}); err != nil {
		return err
	}
	if wire.Book != nil {
		if err := w.mirror.UpsertBooks(ctx, []models.Book{*wire.Book}); err != nil {
			return err
		}
	}
	w.invalidate(ctx, repository.PrefixBorrowings, repository.PrefixBooks)
	return nil
}

func (w *SyncWorker) exportSheet(ctx context.Context) error {
	if w.report == nil || w.views == nil {
		return errors.New("report writer is not configured")
	}
	views, err := w.views.List(ctx, models.BorrowingFilter{})
	if err != nil {
		return err
	}
	return w.report.WriteBorrowings(ctx, views, w.now())
}

func (w *SyncWorker) invalidate(ctx context.Context, prefixes ...string) {
	if w.invalidator != nil {
		w.invalidator.Invalidate(ctx, prefixes...)
	}
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	metrics.IncSyncTask(task.TaskType, models.SyncStatusRetry)
	nextTime := w.retryPolicy.NextRetryAt(w.now(), attempt)
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Time("next_retry_at", nextTime).Msg("Sync task will be retried")
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Mark task retry failed")
	}
}

func (w *SyncWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	metrics.IncSyncTask(task.TaskType, models.SyncStatusFailed)
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("task", task.TaskType).Msg("Sync task failed")
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Update task status to failed")
	}
	if w.redis != nil {
		if err := w.pushRedis(ctx, w.deadLetterKey, *task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Dead letter push failed")
		}
	}
}

func (w *SyncWorker) pushRedis(ctx context.Context, key string, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
