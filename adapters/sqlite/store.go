// Package sqlite provides a SQLite-backed books.Store. Each Begin opens a
// database transaction, so a scope maps onto exactly one sql.Tx.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/codewandler/bookstock/adapters/sqlite/migrations"
	"github.com/codewandler/bookstock/ports/books"
)

type Options struct {
	// MaxOpenConns bounds concurrent transactions. Defaults to 4.
	MaxOpenConns int
}

// Store persists books in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite book store and applies embedded migrations.
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 4
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Begin(ctx context.Context) (books.Tx, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %w", books.ErrExhausted, err)
		}
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Get(ctx context.Context, id string) (books.Book, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT id, title, author, quantity, cost_cents FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return books.Book{}, fmt.Errorf("%w: %s", books.ErrNotFound, id)
	}
	if err != nil {
		return books.Book{}, fmt.Errorf("get book %s: %w", id, err)
	}
	return b, nil
}

func (t *sqlTx) List(ctx context.Context) ([]books.Book, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, title, author, quantity, cost_cents FROM books ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := make([]books.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return out, nil
}

func (t *sqlTx) Insert(ctx context.Context, b books.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO books (id, title, author, quantity, cost_cents) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Author, b.Quantity, b.Cost.Cents(),
	)
	if isConstraintError(err) {
		return fmt.Errorf("%w: %s", books.ErrAlreadyExists, b.ID)
	}
	if err != nil {
		return fmt.Errorf("insert book %s: %w", b.ID, err)
	}
	return nil
}

func (t *sqlTx) SetQuantity(ctx context.Context, id string, qty int64) error {
	if qty < 0 {
		return fmt.Errorf("%w: quantity must not be negative", books.ErrInvalidBook)
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE books SET quantity = ? WHERE id = ?`, qty, id)
	if err != nil {
		return fmt.Errorf("update book %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update book %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", books.ErrNotFound, id)
	}
	return nil
}

func (t *sqlTx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return books.ErrTxDone
		}
		return err
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBook(s scanner) (books.Book, error) {
	var (
		b     books.Book
		cents int64
	)
	if err := s.Scan(&b.ID, &b.Title, &b.Author, &b.Quantity, &cents); err != nil {
		return books.Book{}, err
	}
	b.Cost = books.Cents(cents)
	return b, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}

var _ books.Store = (*Store)(nil)
