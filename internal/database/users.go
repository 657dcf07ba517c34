package database

import (
	"context"
	"fmt"

	"libraryhub/internal/models"

	"github.com/doug-martin/goqu/v9"
)

var userCols = []any{"id", "name", "email", "role"}

func (db *DB) UpsertUsers(ctx context.Context, rows []models.User) error {
	return db.upsertUsers(ctx, db.DB, rows)
}

func (db *DB) upsertUsers(ctx context.Context, ex execer, rows []models.User) error {
	for start := 0; start < len(rows); start += upsertBatch {
		end := min(start+upsertBatch, len(rows))
		records := make([]any, 0, end-start)
		for _, u := range rows[start:end] {
			role := u.Role
			if role == "" {
				role = models.RoleMember
			}
			records = append(records, goqu.Record{"id": u.ID, "name": u.Name, "email": u.Email, "role": role})
		}

		ds := db.dialect.Insert(tableUsers).
			Rows(records...).
			OnConflict(goqu.DoUpdate("id", excluded("name", "email", "role"))).
			Prepared(true)
		if _, err := execDataset(ctx, ex, ds); err != nil {
			return fmt.Errorf("failed to upsert users: %w", err)
		}
	}
	return nil
}

func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	ds := db.dialect.From(tableUsers).Select(userCols...).Order(goqu.C("id").Asc())
	if err := db.selectInto(ctx, &users, ds); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes the user and the borrowings that reference them.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := execDataset(ctx, tx, db.dialect.Delete(tableBorrowings).Where(goqu.C("member_id").Eq(id)).Prepared(true)); err != nil {
		return fmt.Errorf("failed to delete user borrowings: %w", err)
	}
	if _, err := execDataset(ctx, tx, db.dialect.Delete(tableUsers).Where(goqu.C("id").Eq(id)).Prepared(true)); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return tx.Commit()
}
