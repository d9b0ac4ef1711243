package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lendingapi/internal/book"
	"lendingapi/internal/paging"
	"lendingapi/internal/platform/clock"
)

// DefaultGraceDays is how long a loan may stay open before it is late.
const DefaultGraceDays = 5

// Service provides loan-related business logic.
type Service struct {
	repo      Repository
	books     BookFinder
	clock     clock.Clock
	graceDays int
}

func NewService(repo Repository, books BookFinder, clk clock.Clock, graceDays int) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if graceDays < 0 {
		graceDays = DefaultGraceDays
	}
	return &Service{repo: repo, books: books, clock: clk, graceDays: graceDays}
}

// Create loans the book with the given isbn to customer, dated today.
func (s *Service) Create(ctx context.Context, isbn, customer, email string) (Loan, error) {
	b, err := s.books.GetByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			return Loan{}, ErrBookNotFound
		}
		return Loan{}, fmt.Errorf("find book: %w", err)
	}

	l := &Loan{
		BookID:   b.ID,
		Book:     b,
		Customer: strings.TrimSpace(customer),
		Email:    strings.TrimSpace(email),
		LoanDate: clock.Today(s.clock),
	}
	if err := s.repo.CreateOpen(ctx, l); err != nil {
		return Loan{}, err
	}
	return *l, nil
}

// Get returns a loan by its ID.
func (s *Service) Get(ctx context.Context, id int64) (Loan, error) {
	if id <= 0 {
		return Loan{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Return records whether the loan has been returned. Giving a book back always
// succeeds; reopening a loan fails with ErrAlreadyLoaned once the book is out
// again.
func (s *Service) Return(ctx context.Context, id int64, returned bool) (Loan, error) {
	if id <= 0 {
		return Loan{}, ErrInvalidID
	}
	if err := s.repo.SetReturned(ctx, id, returned); err != nil {
		return Loan{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// List returns loans matching f, one page at a time.
func (s *Service) List(ctx context.Context, f Filter, p paging.Request) (paging.Page[Loan], error) {
	loans, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return paging.Page[Loan]{}, err
	}
	return paging.NewPage(loans, total, p), nil
}

// ListByBook returns every loan, open or closed, of one book.
func (s *Service) ListByBook(ctx context.Context, bookID int64, p paging.Request) (paging.Page[Loan], error) {
	if _, err := s.books.Get(ctx, bookID); err != nil {
		if errors.Is(err, book.ErrNotFound) {
			return paging.Page[Loan]{}, ErrBookNotFound
		}
		return paging.Page[Loan]{}, fmt.Errorf("find book: %w", err)
	}

	loans, total, err := s.repo.ListByBook(ctx, bookID, p)
	if err != nil {
		return paging.Page[Loan]{}, err
	}
	return paging.NewPage(loans, total, p), nil
}

// FindLate returns every open loan taken before today minus the grace period.
func (s *Service) FindLate(ctx context.Context) ([]Loan, error) {
	return s.repo.ListOpenBefore(ctx, s.Cutoff())
}

// Cutoff is the earliest loan date that is not yet late.
func (s *Service) Cutoff() time.Time {
	return Cutoff(clock.Today(s.clock), s.graceDays)
}
