package inventory

import (
	"context"
	"time"

	"github.com/codewandler/bookstock/core/actor"
	"github.com/codewandler/bookstock/ports/books"
)

type ClientOptions struct {
	// Timeout bounds each request unless the caller's context ends sooner.
	// Defaults to 5s.
	Timeout time.Duration
}

// Client is the entry point for router collaborators. Every call yields
// exactly one result or error; a timed out request counts as failed and must
// be retried as a whole by the caller.
type Client struct {
	manager actor.Actor
	timeout time.Duration
}

func NewClient(manager actor.Actor, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Client{manager: manager, timeout: opts.Timeout}
}

func (c *Client) GetBook(ctx context.Context, id string) (books.Book, error) {
	res, err := request[GetBook, BookResult](ctx, c, GetBook{ID: id})
	if err != nil {
		return books.Book{}, err
	}
	return res.Book, nil
}

func (c *Client) ListBooks(ctx context.Context) ([]books.Book, error) {
	res, err := request[ListBooks, BookList](ctx, c, ListBooks{})
	if err != nil {
		return nil, err
	}
	return res.Books, nil
}

func (c *Client) AddBook(ctx context.Context, b books.Book) (books.Book, error) {
	res, err := request[AddBook, BookResult](ctx, c, AddBook{Book: b})
	if err != nil {
		return books.Book{}, err
	}
	return res.Book, nil
}

// AdjustInventory returns the new quantity on hand.
func (c *Client) AdjustInventory(ctx context.Context, id string, delta int64) (int64, error) {
	res, err := request[AdjustInventory, InventoryResult](ctx, c, AdjustInventory{ID: id, Delta: delta})
	if err != nil {
		return 0, err
	}
	return res.Quantity, nil
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	res, err := request[GetStats, Stats](ctx, c, GetStats{})
	if err != nil {
		return Stats{}, err
	}
	return *res, nil
}

func request[IN any, OUT any](ctx context.Context, c *Client, in IN) (*OUT, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := actor.Request[IN, OUT](ctx, c.manager, in)
	if err != nil {
		return nil, normalize(err)
	}
	if out == nil {
		return nil, internalError(errNoResult)
	}
	return out, nil
}
