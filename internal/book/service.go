package book

import (
	"context"
	"fmt"
	"strings"

	"lendingapi/internal/paging"
)

// Service provides book-related business logic.
type Service struct {
	repo  Repository
	loans OpenLoanChecker
}

// NewService creates a new book service. loans may be nil, in which case
// deletion does not consult the loan ledger.
func NewService(repo Repository, loans OpenLoanChecker) *Service {
	return &Service{repo: repo, loans: loans}
}

// Create registers a new book, rejecting an isbn that is already in use.
func (s *Service) Create(ctx context.Context, title, author, isbn string) (Book, error) {
	isbn = strings.TrimSpace(isbn)

	exists, err := s.repo.ExistsByISBN(ctx, isbn)
	if err != nil {
		return Book{}, fmt.Errorf("check isbn: %w", err)
	}
	if exists {
		return Book{}, ErrDuplicateISBN
	}

	b := &Book{
		Title:  strings.TrimSpace(title),
		Author: strings.TrimSpace(author),
		ISBN:   isbn,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return Book{}, err
	}
	return *b, nil
}

// Get returns a book by its ID.
func (s *Service) Get(ctx context.Context, id int64) (Book, error) {
	if id <= 0 {
		return Book{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// GetByISBN returns a book by its ISBN.
func (s *Service) GetByISBN(ctx context.Context, isbn string) (Book, error) {
	return s.repo.GetByISBN(ctx, strings.TrimSpace(isbn))
}

// Update changes title and author. The isbn is left untouched.
func (s *Service) Update(ctx context.Context, id int64, title, author string) (Book, error) {
	if id <= 0 {
		return Book{}, ErrInvalidID
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Book{}, err
	}

	b.Title = strings.TrimSpace(title)
	b.Author = strings.TrimSpace(author)
	if err := s.repo.Update(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

// Delete removes a book that is not currently on loan.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if s.loans != nil {
		onLoan, err := s.loans.ExistsOpenForBook(ctx, id)
		if err != nil {
			return fmt.Errorf("check open loan: %w", err)
		}
		if onLoan {
			return ErrOnLoan
		}
	}
	return s.repo.Delete(ctx, id)
}

// List returns the books matching f, one page at a time, in insertion order.
func (s *Service) List(ctx context.Context, f Filter, p paging.Request) (paging.Page[Book], error) {
	books, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return paging.Page[Book]{}, err
	}
	return paging.NewPage(books, total, p), nil
}
