package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/codewandler/bookstock/core/actor"
	"github.com/codewandler/bookstock/internal/inventory"
	"github.com/codewandler/bookstock/ports/books"
)

type adjustRequest struct {
	Delta int64 `json:"delta"`
}

type errorResponse struct {
	Error *inventory.Failure `json:"error"`
}

func newRouter(client *inventory.Client, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /books", handleListBooks(client, log))
	mux.HandleFunc("GET /books/{id}", handleGetBook(client, log))
	mux.HandleFunc("POST /books", handleAddBook(client, log))
	mux.HandleFunc("POST /books/{id}/inventory", handleAdjustInventory(client, log))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func handleListBooks(client *inventory.Client, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := client.ListBooks(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, inventory.BookList{Books: list})
	}
}

func handleGetBook(client *inventory.Client, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := client.GetBook(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func handleAddBook(client *inventory.Client, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b books.Book
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: &inventory.Failure{
				Kind:   inventory.KindDomainError,
				Code:   inventory.CodeInvalidRequest,
				Detail: "invalid JSON: " + err.Error(),
			}})
			return
		}
		stored, err := client.AddBook(r.Context(), b)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	}
}

func handleAdjustInventory(client *inventory.Client, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: &inventory.Failure{
				Kind:   inventory.KindDomainError,
				Code:   inventory.CodeInvalidRequest,
				Detail: "invalid JSON: " + err.Error(),
			}})
			return
		}
		qty, err := client.AdjustInventory(r.Context(), r.PathValue("id"), req.Delta)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, inventory.InventoryResult{ID: r.PathValue("id"), Quantity: qty})
	}
}

// statusFor maps a client error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInsufficientInventory), errors.Is(err, inventory.ErrDuplicateBook):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrDomain):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrResourceUnavailable),
		errors.Is(err, actor.ErrStopped),
		errors.Is(err, actor.ErrDropped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := statusFor(err)

	var f *inventory.Failure
	if !errors.As(err, &f) {
		kind := inventory.KindInternalError
		if status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout {
			kind = inventory.KindResourceUnavailable
		}
		f = &inventory.Failure{Kind: kind, Detail: http.StatusText(status)}
	}
	if status >= http.StatusInternalServerError {
		log.Warn("request failed", slog.Int("status", status), slog.Any("error", err))
	}
	writeJSON(w, status, errorResponse{Error: f})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
