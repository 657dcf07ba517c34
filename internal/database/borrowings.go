package database

import (
	"context"
	"fmt"
	"time"

	"libraryhub/internal/domain"
	"libraryhub/internal/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

var borrowingCols = []any{"id", "book_id", "member_id", "borrow_date", "due_date", "return_date", "status", "fine"}

func borrowingRecord(w models.BorrowingWire) goqu.Record {
	return goqu.Record{
		"id":          w.ID,
		"book_id":     w.BookID,
		"member_id":   w.MemberID,
		"borrow_date": w.BorrowDate,
		"due_date":    w.DueDate,
		"return_date": nullable(w.ReturnDate),
		"status":      nullable(w.Status),
		"fine":        nullable(w.Fine),
	}
}

// nullable turns a nil pointer into SQL NULL and dereferences the rest.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// excluded builds the DO UPDATE SET clause copying every non-key column from the incoming row.
func excluded(cols ...string) goqu.Record {
	rec := goqu.Record{}
	for _, c := range cols {
		rec[c] = goqu.L("excluded." + c)
	}
	return rec
}

func (db *DB) borrowingUpsert(records []any) *goqu.InsertDataset {
	return db.dialect.Insert(tableBorrowings).
		Rows(records...).
		OnConflict(goqu.DoUpdate("id", excluded("book_id", "member_id", "borrow_date", "due_date", "return_date", "status", "fine"))).
		Prepared(true)
}

// UpsertBorrowings stores raw backend rows keyed by backend id.
func (db *DB) UpsertBorrowings(ctx context.Context, rows []models.BorrowingWire) error {
	return db.upsertBorrowings(ctx, db.DB, rows)
}

func (db *DB) upsertBorrowings(ctx context.Context, ex execer, rows []models.BorrowingWire) error {
	for start := 0; start < len(rows); start += upsertBatch {
		end := min(start+upsertBatch, len(rows))
		records := make([]any, 0, end-start)
		for _, w := range rows[start:end] {
			records = append(records, borrowingRecord(w))
		}

		if _, err := execDataset(ctx, ex, db.borrowingUpsert(records)); err != nil {
			return fmt.Errorf("failed to upsert borrowings: %w", err)
		}
	}
	return nil
}

// ListBorrowings mirrors the backend listing: status filter, newest first.
func (db *DB) ListBorrowings(ctx context.Context, filter models.BorrowingFilter) ([]models.BorrowingWire, error) {
	ds := db.dialect.From(tableBorrowings).
		Select(borrowingCols...).
		Order(goqu.C("borrow_date").Desc(), goqu.C("id").Desc())

	var where []exp.Expression
	switch filter.Status {
	case "":
	case string(models.StatusActive):
		where = append(where, goqu.C("return_date").IsNull())
	case string(models.StatusReturned):
		where = append(where, goqu.C("return_date").IsNotNull())
	case string(models.StatusOverdue):
		today := time.Now().Format("2006-01-02")
		where = append(where, goqu.C("return_date").IsNull(), goqu.C("due_date").Lt(today))
	default:
		where = append(where, goqu.C("status").Eq(filter.Status))
	}
	if filter.MemberID != 0 {
		where = append(where, goqu.C("member_id").Eq(filter.MemberID))
	}
	if len(where) > 0 {
		ds = ds.Where(where...)
	}

	var rows []models.BorrowingWire
	if err := db.selectInto(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("failed to list borrowings: %w", err)
	}
	if err := db.attachRelations(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (db *DB) GetBorrowing(ctx context.Context, id int64) (*models.BorrowingWire, error) {
	ds := db.dialect.From(tableBorrowings).Select(borrowingCols...).Where(goqu.C("id").Eq(id))

	var rows []models.BorrowingWire
	if err := db.selectInto(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("failed to get borrowing: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("borrowing %d: %w", id, domain.ErrNotFound)
	}
	if err := db.attachRelations(ctx, rows); err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// attachRelations fills Book and Member the way the backend embeds them.
func (db *DB) attachRelations(ctx context.Context, rows []models.BorrowingWire) error {
	if len(rows) == 0 {
		return nil
	}

	bookIDs := make([]int64, 0, len(rows))
	memberIDs := make([]int64, 0, len(rows))
	for _, r := range rows {
		bookIDs = append(bookIDs, r.BookID)
		memberIDs = append(memberIDs, r.MemberID)
	}

	var books []models.Book
	if err := db.selectInto(ctx, &books, db.dialect.From(tableBooks).Select(bookCols...).Where(goqu.C("id").In(bookIDs))); err != nil {
		return fmt.Errorf("failed to load borrowed books: %w", err)
	}
	var users []models.User
	if err := db.selectInto(ctx, &users, db.dialect.From(tableUsers).Select(userCols...).Where(goqu.C("id").In(memberIDs))); err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}

	bookByID := make(map[int64]*models.Book, len(books))
	for i := range books {
		bookByID[books[i].ID] = &books[i]
	}
	userByID := make(map[int64]*models.User, len(users))
	for i := range users {
		userByID[users[i].ID] = &users[i]
	}
	for i := range rows {
		rows[i].Book = bookByID[rows[i].BookID]
		rows[i].Member = userByID[rows[i].MemberID]
	}
	return nil
}

// ReplaceAll swaps the whole mirror for a fresh backend snapshot in one transaction.
func (db *DB) ReplaceAll(ctx context.Context, borrowings []models.BorrowingWire, books []models.Book, users []models.User) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{tableBorrowings, tableBooks, tableUsers} {
		if _, err := execDataset(ctx, tx, db.dialect.Delete(table).Prepared(true)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := db.upsertBooks(ctx, tx, books); err != nil {
		return err
	}
	if err := db.upsertUsers(ctx, tx, users); err != nil {
		return err
	}
	if err := db.upsertBorrowings(ctx, tx, borrowings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mirror snapshot: %w", err)
	}

	db.logger.Debug().
		Int("borrowings", len(borrowings)).
		Int("books", len(books)).
		Int("users", len(users)).
		Msg("Mirror snapshot replaced")
	return nil
}

func (db *DB) selectInto(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, db.DB, dest, query, args...)
}
