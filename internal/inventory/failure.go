package inventory

import (
	"errors"
	"fmt"

	"github.com/codewandler/bookstock/core/actor"
	"github.com/codewandler/bookstock/core/scope"
	"github.com/codewandler/bookstock/ports/books"
)

// Kind classifies a Failure.
type Kind string

const (
	// KindResourceUnavailable means no scope could be opened. Callers may
	// retry with backoff.
	KindResourceUnavailable Kind = "resource_unavailable"
	// KindDomainError is a well-formed request rejected by business rules.
	KindDomainError Kind = "domain_error"
	// KindInternalError is an unexpected fault while handling the message.
	KindInternalError Kind = "internal_error"
)

// Code narrows down a domain error.
type Code string

const (
	CodeBookNotFound          Code = "book_not_found"
	CodeInsufficientInventory Code = "insufficient_inventory"
	CodeInvalidBook           Code = "invalid_book"
	CodeDuplicateBook         Code = "duplicate_book"
	CodeInvalidRequest        Code = "invalid_request"
)

// Failure is the error reply of the manager.
type Failure struct {
	Kind   Kind   `json:"kind"`
	Code   Code   `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`

	cause error
}

// Sentinels for errors.Is. A sentinel without Code matches every failure of
// its kind.
var (
	ErrResourceUnavailable   = &Failure{Kind: KindResourceUnavailable}
	ErrDomain                = &Failure{Kind: KindDomainError}
	ErrInternal              = &Failure{Kind: KindInternalError}
	ErrBookNotFound          = &Failure{Kind: KindDomainError, Code: CodeBookNotFound}
	ErrInsufficientInventory = &Failure{Kind: KindDomainError, Code: CodeInsufficientInventory}
	ErrInvalidBook           = &Failure{Kind: KindDomainError, Code: CodeInvalidBook}
	ErrDuplicateBook         = &Failure{Kind: KindDomainError, Code: CodeDuplicateBook}
	ErrInvalidRequest        = &Failure{Kind: KindDomainError, Code: CodeInvalidRequest}

	errNoResult = errors.New("manager returned no result")
)

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if f.Code != "" {
		msg += "/" + string(f.Code)
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.cause }

func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind && (t.Code == "" || t.Code == f.Code)
}

func domainError(code Code, format string, args ...any) *Failure {
	return &Failure{Kind: KindDomainError, Code: code, Detail: fmt.Sprintf(format, args...)}
}

func unavailable(err error) *Failure {
	return &Failure{Kind: KindResourceUnavailable, Detail: err.Error(), cause: err}
}

// internalError hides the cause from Detail; it stays reachable via Unwrap.
func internalError(err error) *Failure {
	return &Failure{Kind: KindInternalError, Detail: "internal error", cause: err}
}

// classify maps store and scope errors to failures.
func classify(err error) *Failure {
	var f *Failure
	switch {
	case errors.As(err, &f):
		return f
	case errors.Is(err, scope.ErrUnavailable):
		return unavailable(err)
	case errors.Is(err, books.ErrNotFound):
		return &Failure{Kind: KindDomainError, Code: CodeBookNotFound, Detail: err.Error(), cause: err}
	case errors.Is(err, books.ErrAlreadyExists):
		return &Failure{Kind: KindDomainError, Code: CodeDuplicateBook, Detail: err.Error(), cause: err}
	case errors.Is(err, books.ErrInvalidBook):
		return &Failure{Kind: KindDomainError, Code: CodeInvalidBook, Detail: err.Error(), cause: err}
	default:
		return internalError(err)
	}
}

// normalize converts errors observed by a caller. Failures produced inside
// the actor are returned as *Failure; delivery errors (actor.ErrStopped,
// actor.ErrDropped, context errors) are returned unchanged.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, actor.ErrPanic) {
		return internalError(err)
	}
	return err
}
