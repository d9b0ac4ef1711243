package book

import (
	"context"

	"lendingapi/internal/paging"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	GetByID(ctx context.Context, id int64) (Book, error)
	GetByISBN(ctx context.Context, isbn string) (Book, error)
	// Create inserts b and assigns its ID. A concurrent insert of the same
	// isbn fails with ErrDuplicateISBN.
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter, p paging.Request) ([]Book, int, error)
}

// OpenLoanChecker reports whether a book is currently checked out.
type OpenLoanChecker interface {
	ExistsOpenForBook(ctx context.Context, bookID int64) (bool, error)
}
