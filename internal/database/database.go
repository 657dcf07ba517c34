package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"libraryhub/internal/config"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // goqu dialect
	_ "github.com/jackc/pgx/v5/stdlib"                  // pgx database/sql driver
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const (
	tableBorrowings = "borrowings"
	tableBooks      = "books"
	tableUsers      = "users"
	tableSyncQueue  = "sync_queue"

	// upsertBatch keeps multi-row inserts under the SQLite bound-parameter limit.
	upsertBatch = 100
)

// DB is the local mirror of backend records.
type DB struct {
	*sqlx.DB
	driver  string
	dialect goqu.DialectWrapper
	logger  *zerolog.Logger
}

// NewDB opens the mirror for the configured driver and creates the schema.
func NewDB(cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var (
		conn *sqlx.DB
		err  error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		conn, err = sqlx.Open("pgx", cfg.Postgres.PostgresDSN())
		if err == nil && cfg.Postgres.MaxConnections > 0 {
			conn.SetMaxOpenConns(cfg.Postgres.MaxConnections)
		}
	case config.DriverSQLite, "":
		cfg.Driver = config.DriverSQLite
		if cfg.Path != ":memory:" {
			// Создаем директорию для БД, если её нет
			if mkErr := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); mkErr != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", mkErr)
			}
		}
		conn, err = sqlx.Open("sqlite3", cfg.Path+"?_busy_timeout=5000&_foreign_keys=on")
		if err == nil {
			// один писатель, а для :memory: ещё и одна общая база
			conn.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:      conn,
		driver:  cfg.Driver,
		dialect: goqu.Dialect(cfg.Driver),
		logger:  logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("driver", cfg.Driver).Msg("Mirror database initialized")
	return db, nil
}

// Driver returns the database/sql driver family (sqlite3 or postgres).
func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) createTables() error {
	idType, serial, ts, floatType := "INTEGER", "INTEGER PRIMARY KEY AUTOINCREMENT", "DATETIME", "REAL"
	if db.driver == config.DriverPostgres {
		idType, serial, ts, floatType = "BIGINT", "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ", "DOUBLE PRECISION"
	}

	queries := []string{
		// Книги каталога
		`CREATE TABLE IF NOT EXISTS books (
            id ` + idType + ` PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL DEFAULT '',
            isbn TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            copies_total ` + idType + ` NOT NULL DEFAULT 0,
            copies_available ` + idType + ` NOT NULL DEFAULT 0,
            description TEXT NOT NULL DEFAULT '',
            cover_image TEXT NOT NULL DEFAULT ''
        )`,
		// Пользователи бэкенда
		`CREATE TABLE IF NOT EXISTS users (
            id ` + idType + ` PRIMARY KEY,
            name TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'member'
        )`,
		// Выдачи: только исходные значения бэкенда, без вычисленных полей
		`CREATE TABLE IF NOT EXISTS borrowings (
            id ` + idType + ` PRIMARY KEY,
            book_id ` + idType + ` NOT NULL,
            member_id ` + idType + ` NOT NULL,
            borrow_date TEXT NOT NULL DEFAULT '',
            due_date TEXT NOT NULL DEFAULT '',
            return_date TEXT,
            status TEXT,
            fine ` + floatType + `
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id ` + serial + `,
            task_type TEXT NOT NULL,
            borrowing_id ` + idType + ` NOT NULL DEFAULT 0,
            payload TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at ` + ts + ` NOT NULL,
            processed_at ` + ts + `,
            next_retry_at ` + ts + `
        )`,

		`CREATE INDEX IF NOT EXISTS idx_borrowings_member_id ON borrowings(member_id)`,
		`CREATE INDEX IF NOT EXISTS idx_borrowings_due_date ON borrowings(due_date)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// insertID runs an insert and returns the generated key. pgx has no LastInsertId.
func (db *DB) insertID(ctx context.Context, ds *goqu.InsertDataset) (int64, error) {
	if db.driver == config.DriverPostgres {
		query, args, err := ds.Returning("id").Prepared(true).ToSQL()
		if err != nil {
			return 0, err
		}
		var id int64
		if err := db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execDataset(ctx context.Context, ex execer, ds interface {
	ToSQL() (string, []any, error)
}) (int64, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) Close() error {
	return db.DB.Close()
}
