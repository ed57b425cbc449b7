package inventory

import "github.com/codewandler/bookstock/ports/books"

// Commands and queries understood by the manager. Each message carries all
// data needed to process it.
type (
	GetBook struct {
		ID string `json:"id"`
	}

	ListBooks struct{}

	// AddBook inserts a new book. An empty ID is assigned by the manager.
	AddBook struct {
		Book books.Book `json:"book"`
	}

	// AdjustInventory adds Delta (which may be negative) to the quantity on
	// hand. The resulting quantity must not be negative.
	AdjustInventory struct {
		ID    string `json:"id"`
		Delta int64  `json:"delta"`
	}

	// GetStats reports the manager's message counters. It does not touch the
	// store.
	GetStats struct{}
)

func (GetBook) MsgType() string         { return "inventory.get_book" }
func (ListBooks) MsgType() string       { return "inventory.list_books" }
func (AddBook) MsgType() string         { return "inventory.add_book" }
func (AdjustInventory) MsgType() string { return "inventory.adjust_inventory" }
func (GetStats) MsgType() string        { return "inventory.get_stats" }

// Results.
type (
	BookResult struct {
		Book books.Book `json:"book"`
	}

	BookList struct {
		Books []books.Book `json:"books"`
	}

	InventoryResult struct {
		ID       string `json:"id"`
		Quantity int64  `json:"quantity"`
	}

	Stats struct {
		Handled  map[string]int `json:"handled"`
		Failures map[Kind]int   `json:"failures"`
	}
)
