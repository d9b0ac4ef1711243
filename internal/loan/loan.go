package loan

import (
	"errors"
	"time"

	"lendingapi/internal/book"
)

var (
	// ErrNotFound is returned when a loan is not found.
	ErrNotFound = errors.New("loan not found")
	// ErrBookNotFound is returned when a loan names a book that does not exist.
	ErrBookNotFound = errors.New("book not found")
	// ErrAlreadyLoaned is returned when the book already has an open loan.
	ErrAlreadyLoaned = errors.New("book already loaned")
	// ErrInvalidID is returned for an operation on a loan that has no usable id.
	ErrInvalidID = errors.New("invalid loan id")
)

// Loan is a checkout of one book by one customer. LoanDate is a calendar date
// at midnight UTC. Returned is nil until the loan is explicitly marked.
type Loan struct {
	ID        int64
	BookID    int64
	Book      book.Book
	Customer  string
	Email     string
	LoanDate  time.Time
	Returned  *bool
	CreatedAt time.Time
}

// IsOpen reports whether the loan still holds its book.
func (l Loan) IsOpen() bool {
	return l.Returned == nil || !*l.Returned
}

// IsLate reports whether the loan is open and was taken strictly before cutoff.
func (l Loan) IsLate(cutoff time.Time) bool {
	return l.IsOpen() && l.LoanDate.Before(cutoff)
}

// Filter narrows a loan listing. When both fields are set a loan matches if
// either its book isbn or its customer matches exactly.
type Filter struct {
	ISBN     string
	Customer string
}

func (f Filter) IsEmpty() bool {
	return f.ISBN == "" && f.Customer == ""
}

// Matches applies the filter to l, whose Book must be populated.
func (f Filter) Matches(l Loan) bool {
	if f.IsEmpty() {
		return true
	}
	return (f.ISBN != "" && l.Book.ISBN == f.ISBN) ||
		(f.Customer != "" && l.Customer == f.Customer)
}

// Cutoff returns the first loan date that is not late on day today.
func Cutoff(today time.Time, graceDays int) time.Time {
	return today.AddDate(0, 0, -graceDays)
}
