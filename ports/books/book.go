// Package books is the persistence port for book inventory. A Store hands out
// transactions (Tx); callers mutate records only inside an open Tx and either
// commit or roll back.
package books

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("book not found")
	ErrAlreadyExists = errors.New("book already exists")
	ErrInvalidBook   = errors.New("invalid book")
	// ErrExhausted is returned by Begin when no transaction slot is free.
	ErrExhausted = errors.New("store exhausted")
	ErrTxDone    = errors.New("transaction already committed or rolled back")
	// ErrConflict is returned by Commit when a book changed since it was read.
	ErrConflict = errors.New("book modified concurrently")
)

type Book struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Quantity int64  `json:"quantity"`
	Cost     Money  `json:"cost"`
}

// Validate checks the invariants every stored book satisfies.
func (b Book) Validate() error {
	switch {
	case strings.TrimSpace(b.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidBook)
	case strings.TrimSpace(b.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidBook)
	case b.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidBook)
	case b.Cost < 0:
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidBook)
	}
	return nil
}

// Tx is a unit of work against the store.
type Tx interface {
	Get(ctx context.Context, id string) (Book, error)
	// List returns all books ordered by title, then id.
	List(ctx context.Context) ([]Book, error)
	Insert(ctx context.Context, b Book) error
	SetQuantity(ctx context.Context, id string, qty int64) error
	Commit(ctx context.Context) error
	// Rollback discards the transaction. It is a no-op after Commit.
	Rollback() error
}

type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}
