package main

import (
	"context"
	"net/http"
	"time"

	"lendingapi/internal/book"
	"lendingapi/internal/latescan"
	"lendingapi/internal/loan"
)

type handlers struct {
	books *book.HTTPHandler
	loans *loan.HTTPHandler
	sweep *latescan.HTTPHandler
	ping  func(ctx context.Context) error
}

func newRouter(h handlers) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("POST /v1/books", h.books.Create)
	router.HandleFunc("GET /v1/books", h.books.List)
	router.HandleFunc("GET /v1/books/{id}", h.books.Get)
	router.HandleFunc("PUT /v1/books/{id}", h.books.Update)
	router.HandleFunc("DELETE /v1/books/{id}", h.books.Delete)
	router.HandleFunc("GET /v1/books/{id}/loans", h.loans.ListByBook)

	router.HandleFunc("POST /v1/loans", h.loans.Create)
	router.HandleFunc("GET /v1/loans", h.loans.List)
	router.HandleFunc("GET /v1/loans/late", h.loans.Late)
	router.HandleFunc("GET /v1/loans/{id}", h.loans.Get)
	router.HandleFunc("PATCH /v1/loans/{id}", h.loans.Return)

	router.HandleFunc("POST /v1/admin/late-loans/sweep", h.sweep.Sweep)
	router.HandleFunc("GET /v1/admin/late-loans/sweeps", h.sweep.History)

	return router
}
