package database

import (
	"context"
	"fmt"
	"time"

	"libraryhub/internal/models"

	"github.com/doug-martin/goqu/v9"
)

var syncTaskCols = []any{"id", "task_type", "borrowing_id", "payload", "status", "retry_count",
	"last_error", "created_at", "processed_at", "next_retry_at"}

func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	now := time.Now().UTC()
	if task.Status == "" {
		task.Status = models.SyncStatusPending
	}

	ds := db.dialect.Insert(tableSyncQueue).Rows(goqu.Record{
		"task_type":     task.TaskType,
		"borrowing_id":  task.BorrowingID,
		"payload":       task.Payload,
		"status":        task.Status,
		"retry_count":   task.RetryCount,
		"last_error":    nullable(task.LastError),
		"created_at":    now,
		"next_retry_at": utc(task.NextRetryAt),
	})

	id, err := db.insertID(ctx, ds)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}
	task.ID = id
	task.CreatedAt = now

	return nil
}

func (db *DB) GetSyncTask(ctx context.Context, id int64) (*models.SyncTask, error) {
	var tasks []models.SyncTask
	ds := db.dialect.From(tableSyncQueue).Select(syncTaskCols...).Where(goqu.C("id").Eq(id))
	if err := db.selectInto(ctx, &tasks, ds); err != nil {
		return nil, fmt.Errorf("failed to get sync task: %w", err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("sync task %d not found", id)
	}
	return &tasks[0], nil
}

func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	ds := db.dialect.From(tableSyncQueue).
		Select(syncTaskCols...).
		Where(
			goqu.C("status").In(models.SyncStatusPending, models.SyncStatusRetry),
			goqu.Or(goqu.C("next_retry_at").IsNull(), goqu.C("next_retry_at").Lte(time.Now().UTC())),
		).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Limit(uint(limit))

	var tasks []models.SyncTask
	if err := db.selectInto(ctx, &tasks, ds); err != nil {
		return nil, fmt.Errorf("failed to get pending sync tasks: %w", err)
	}
	return tasks, nil
}

func (db *DB) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var lastErr any
	if errMsg != "" {
		lastErr = errMsg
	}
	rec := goqu.Record{
		"status":        status,
		"last_error":    lastErr,
		"next_retry_at": utc(nextRetryAt),
	}

	switch status {
	case models.SyncStatusRetry:
		rec["retry_count"] = goqu.L("retry_count + 1")
	case models.SyncStatusCompleted, models.SyncStatusFailed:
		rec["processed_at"] = time.Now().UTC()
	}

	ds := db.dialect.Update(tableSyncQueue).Set(rec).Where(goqu.C("id").Eq(id)).Prepared(true)
	if _, err := execDataset(ctx, db.DB, ds); err != nil {
		return fmt.Errorf("failed to update sync task status: %w", err)
	}
	return nil
}

func (db *DB) GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error) {
	ds := db.dialect.From(tableSyncQueue).
		Select(syncTaskCols...).
		Where(goqu.C("status").Eq(models.SyncStatusFailed)).
		Order(goqu.C("created_at").Desc())

	var tasks []models.SyncTask
	if err := db.selectInto(ctx, &tasks, ds); err != nil {
		return nil, fmt.Errorf("failed to get failed sync tasks: %w", err)
	}
	return tasks, nil
}

// utc normalizes stored times so SQLite text comparison orders them correctly.
func utc(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
