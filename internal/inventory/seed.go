package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codewandler/bookstock/ports/books"
)

// DefaultSeed is the inventory a fresh host starts with. The ids are fixed so
// seeding a persistent store again finds the books instead of copying them.
func DefaultSeed() []books.Book {
	return []books.Book{
		{ID: "book-1", Title: "Book 1", Author: "Author 1", Quantity: 12, Cost: books.Cents(299)},
		{ID: "book-2", Title: "Book 2", Author: "Author 2", Quantity: 2, Cost: books.Cents(499)},
		{ID: "book-3", Title: "Book 3", Author: "Author 3", Quantity: 10, Cost: books.Cents(799)},
	}
}

// Seed adds each book through the client, in order, and stops at the first
// failure. A book with an id that is already stored is kept as it is. It
// returns the stored books.
func Seed(ctx context.Context, log *slog.Logger, c *Client, seed ...books.Book) ([]books.Book, error) {
	if log == nil {
		log = slog.Default()
	}
	out := make([]books.Book, 0, len(seed))
	added := 0
	for _, b := range seed {
		stored, err := c.AddBook(ctx, b)
		if errors.Is(err, ErrDuplicateBook) && b.ID != "" {
			stored, err = c.GetBook(ctx, b.ID)
		} else if err == nil {
			added++
		}
		if err != nil {
			return out, fmt.Errorf("seed %q: %w", b.Title, err)
		}
		out = append(out, stored)
	}
	log.Info("inventory seeded", slog.Int("books", len(out)), slog.Int("added", added))
	return out, nil
}
