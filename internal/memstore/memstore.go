// Package memstore is an in-process store for the lending data. Every
// operation holds one mutex, which makes the open-loan check and the insert
// a single critical section.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"lendingapi/internal/book"
	"lendingapi/internal/latescan"
	"lendingapi/internal/loan"
	"lendingapi/internal/paging"
)

type Store struct {
	mu         sync.Mutex
	books      []book.Book
	loans      []loan.Loan
	runs       []latescan.Run
	nextBookID int64
	nextLoanID int64
	nextRunID  int64
	now        func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// Books returns the book.Repository view of the store.
func (s *Store) Books() *BookRepo {
	return &BookRepo{s: s}
}

// Loans returns the loan.Repository view of the store.
func (s *Store) Loans() *LoanRepo {
	return &LoanRepo{s: s}
}

// Ping satisfies the readiness probe.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) bookIndex(id int64) int {
	for i := range s.books {
		if s.books[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) loanIndex(id int64) int {
	for i := range s.loans {
		if s.loans[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) hasOpenLoan(bookID int64) bool {
	for _, l := range s.loans {
		if l.BookID == bookID && l.IsOpen() {
			return true
		}
	}
	return false
}

// withBook returns l carrying the current state of its book.
func (s *Store) withBook(l loan.Loan) loan.Loan {
	if i := s.bookIndex(l.BookID); i >= 0 {
		l.Book = s.books[i]
	}
	if l.Returned != nil {
		v := *l.Returned
		l.Returned = &v
	}
	return l
}

type BookRepo struct {
	s *Store
}

func (r *BookRepo) ExistsByISBN(_ context.Context, isbn string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.books {
		if b.ISBN == isbn {
			return true, nil
		}
	}
	return false, nil
}

func (r *BookRepo) GetByID(_ context.Context, id int64) (book.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.s.bookIndex(id)
	if i < 0 {
		return book.Book{}, book.ErrNotFound
	}
	return r.s.books[i], nil
}

func (r *BookRepo) GetByISBN(_ context.Context, isbn string) (book.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.books {
		if b.ISBN == isbn {
			return b, nil
		}
	}
	return book.Book{}, book.ErrNotFound
}

func (r *BookRepo) Create(_ context.Context, b *book.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.books {
		if existing.ISBN == b.ISBN {
			return book.ErrDuplicateISBN
		}
	}
	r.s.nextBookID++
	now := r.s.now()
	b.ID = r.s.nextBookID
	b.CreatedAt = now
	b.UpdatedAt = now
	r.s.books = append(r.s.books, *b)
	return nil
}

func (r *BookRepo) Update(_ context.Context, b *book.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.s.bookIndex(b.ID)
	if i < 0 {
		return book.ErrNotFound
	}
	stored := &r.s.books[i]
	stored.Title = b.Title
	stored.Author = b.Author
	stored.UpdatedAt = r.s.now()
	*b = *stored
	return nil
}

// Delete removes the book together with its closed loans.
func (r *BookRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.s.bookIndex(id)
	if i < 0 {
		return book.ErrNotFound
	}
	if r.s.hasOpenLoan(id) {
		return book.ErrOnLoan
	}
	r.s.books = append(r.s.books[:i], r.s.books[i+1:]...)

	kept := r.s.loans[:0]
	for _, l := range r.s.loans {
		if l.BookID != id {
			kept = append(kept, l)
		}
	}
	r.s.loans = kept
	return nil
}

func (r *BookRepo) List(_ context.Context, f book.Filter, p paging.Request) ([]book.Book, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []book.Book
	for _, b := range r.s.books {
		if containsFold(b.Title, f.Title) && containsFold(b.Author, f.Author) && containsFold(b.ISBN, f.ISBN) {
			matched = append(matched, b)
		}
	}
	return paging.Slice(matched, p), len(matched), nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type LoanRepo struct {
	s *Store
}

func (r *LoanRepo) CreateOpen(_ context.Context, l *loan.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.bookIndex(l.BookID) < 0 {
		return loan.ErrBookNotFound
	}
	if r.s.hasOpenLoan(l.BookID) {
		return loan.ErrAlreadyLoaned
	}
	r.s.nextLoanID++
	l.ID = r.s.nextLoanID
	l.CreatedAt = r.s.now()
	r.s.loans = append(r.s.loans, *l)
	return nil
}

func (r *LoanRepo) ExistsOpenForBook(_ context.Context, bookID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.hasOpenLoan(bookID), nil
}

func (r *LoanRepo) GetByID(_ context.Context, id int64) (loan.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.s.loanIndex(id)
	if i < 0 {
		return loan.Loan{}, loan.ErrNotFound
	}
	return r.s.withBook(r.s.loans[i]), nil
}

func (r *LoanRepo) SetReturned(_ context.Context, id int64, returned bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.s.loanIndex(id)
	if i < 0 {
		return loan.ErrNotFound
	}
	l := &r.s.loans[i]
	if !returned && !l.IsOpen() && r.s.hasOpenLoan(l.BookID) {
		return loan.ErrAlreadyLoaned
	}
	l.Returned = &returned
	return nil
}

func (r *LoanRepo) List(_ context.Context, f loan.Filter, p paging.Request) ([]loan.Loan, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.pageLoans(f.Matches, p)
}

func (r *LoanRepo) ListByBook(_ context.Context, bookID int64, p paging.Request) ([]loan.Loan, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.pageLoans(func(l loan.Loan) bool { return l.BookID == bookID }, p)
}

func (r *LoanRepo) ListOpenBefore(_ context.Context, date time.Time) ([]loan.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []loan.Loan
	for _, l := range r.s.loans {
		if l.IsLate(date) {
			out = append(out, r.s.withBook(l))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LoanDate.Before(out[j].LoanDate) })
	return out, nil
}

func (s *Store) pageLoans(match func(loan.Loan) bool, p paging.Request) ([]loan.Loan, int, error) {
	var matched []loan.Loan
	for _, l := range s.loans {
		l = s.withBook(l)
		if match(l) {
			matched = append(matched, l)
		}
	}
	return paging.Slice(matched, p), len(matched), nil
}
