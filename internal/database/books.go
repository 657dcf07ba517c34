package database

import (
	"context"
	"fmt"

	"libraryhub/internal/domain"
	"libraryhub/internal/models"

	"github.com/doug-martin/goqu/v9"
)

var bookCols = []any{"id", "title", "author", "isbn", "category", "copies_total", "copies_available", "description", "cover_image"}

func (db *DB) UpsertBooks(ctx context.Context, rows []models.Book) error {
	return db.upsertBooks(ctx, db.DB, rows)
}

func (db *DB) upsertBooks(ctx context.Context, ex execer, rows []models.Book) error {
	for start := 0; start < len(rows); start += upsertBatch {
		end := min(start+upsertBatch, len(rows))
		records := make([]any, 0, end-start)
		for _, b := range rows[start:end] {
			records = append(records, goqu.Record{
				"id":               b.ID,
				"title":            b.Title,
				"author":           b.Author,
				"isbn":             b.ISBN,
				"category":         b.Category,
				"copies_total":     b.CopiesTotal,
				"copies_available": b.CopiesAvailable,
				"description":      b.Description,
				"cover_image":      b.CoverImage,
			})
		}

		ds := db.dialect.Insert(tableBooks).
			Rows(records...).
			OnConflict(goqu.DoUpdate("id", excluded("title", "author", "isbn", "category",
				"copies_total", "copies_available", "description", "cover_image"))).
			Prepared(true)
		if _, err := execDataset(ctx, ex, ds); err != nil {
			return fmt.Errorf("failed to upsert books: %w", err)
		}
	}
	return nil
}

func (db *DB) ListBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	ds := db.dialect.From(tableBooks).Select(bookCols...).Order(goqu.C("title").Asc())
	if err := db.selectInto(ctx, &books, ds); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

func (db *DB) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	var books []models.Book
	ds := db.dialect.From(tableBooks).Select(bookCols...).Where(goqu.C("id").Eq(id))
	if err := db.selectInto(ctx, &books, ds); err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
	}
	return &books[0], nil
}

// SearchBooks matches title, author or category case-insensitively.
func (db *DB) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	pattern := "%" + query + "%"
	ds := db.dialect.From(tableBooks).
		Select(bookCols...).
		Where(goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("author").ILike(pattern),
			goqu.C("category").ILike(pattern),
		)).
		Order(goqu.C("title").Asc())

	var books []models.Book
	if err := db.selectInto(ctx, &books, ds); err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	return books, nil
}

func (db *DB) DeleteBook(ctx context.Context, id int64) error {
	ds := db.dialect.Delete(tableBooks).Where(goqu.C("id").Eq(id)).Prepared(true)
	if _, err := execDataset(ctx, db.DB, ds); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}
