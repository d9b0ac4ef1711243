package loan

import (
	"context"
	"time"

	"lendingapi/internal/book"
	"lendingapi/internal/paging"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=loan

// Repository defines the contract for loan data storage. Loans returned by
// every read carry their Book.
type Repository interface {
	// CreateOpen inserts l and assigns its ID, unless its book already has an
	// open loan, in which case it fails with ErrAlreadyLoaned. The check and
	// the insert are atomic with respect to other callers for the same book.
	CreateOpen(ctx context.Context, l *Loan) error
	ExistsOpenForBook(ctx context.Context, bookID int64) (bool, error)
	GetByID(ctx context.Context, id int64) (Loan, error)
	SetReturned(ctx context.Context, id int64, returned bool) error
	List(ctx context.Context, f Filter, p paging.Request) ([]Loan, int, error)
	ListByBook(ctx context.Context, bookID int64, p paging.Request) ([]Loan, int, error)
	// ListOpenBefore returns every open loan with a loan date strictly before
	// date, oldest first.
	ListOpenBefore(ctx context.Context, date time.Time) ([]Loan, error)
}

// BookFinder resolves the books loans refer to.
type BookFinder interface {
	Get(ctx context.Context, id int64) (book.Book, error)
	GetByISBN(ctx context.Context, isbn string) (book.Book, error)
}
