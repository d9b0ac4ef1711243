package book

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicateISBN is returned when a book with the same isbn already exists.
	ErrDuplicateISBN = errors.New("isbn already registered")
	// ErrInvalidID is returned for an operation on a book that has no usable id.
	ErrInvalidID = errors.New("invalid book id")
	// ErrOnLoan is returned when deleting a book that has an open loan.
	ErrOnLoan = errors.New("book has an open loan")
)

// Book represents a catalog entry. ISBN is unique across the catalog and does
// not change after creation.
type Book struct {
	ID        int64
	Title     string
	Author    string
	ISBN      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter narrows a book listing. Empty fields match anything; non-empty fields
// are combined with AND and matched as case-insensitive substrings.
type Filter struct {
	Title  string
	Author string
	ISBN   string
}

func (f Filter) IsEmpty() bool {
	return f.Title == "" && f.Author == "" && f.ISBN == ""
}
