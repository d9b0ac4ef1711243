package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lendingapi/internal/paging"
	"lendingapi/internal/platform/postgres"
)

const openLoanIndex = "loans_one_open_per_book"

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

const loanSelect = `
	SELECT l.id, l.book_id, l.customer, l.customer_email, l.loan_date, l.returned, l.created_at,
	       b.id, b.title, b.author, b.isbn, b.created_at, b.updated_at
	FROM loans l
	JOIN books b ON b.id = l.book_id`

func scanLoan(row pgx.Row) (Loan, error) {
	var l Loan
	err := row.Scan(
		&l.ID, &l.BookID, &l.Customer, &l.Email, &l.LoanDate, &l.Returned, &l.CreatedAt,
		&l.Book.ID, &l.Book.Title, &l.Book.Author, &l.Book.ISBN, &l.Book.CreatedAt, &l.Book.UpdatedAt,
	)
	return l, err
}

func collectLoans(rows pgx.Rows) ([]Loan, error) {
	defer rows.Close()
	var out []Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateOpen locks the book row, so concurrent loans of one book queue behind
// each other while loans of other books proceed. The partial unique index on
// open loans backs the check up.
func (r *PostgresRepo) CreateOpen(ctx context.Context, l *Loan) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := postgres.WithTx(timeoutCtx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(timeoutCtx, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, l.BookID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrBookNotFound
			}
			return fmt.Errorf("lock book: %w", err)
		}

		var open bool
		err = tx.QueryRow(timeoutCtx,
			`SELECT EXISTS (SELECT 1 FROM loans WHERE book_id = $1 AND returned IS NOT TRUE)`, l.BookID).Scan(&open)
		if err != nil {
			return fmt.Errorf("check open loan: %w", err)
		}
		if open {
			return ErrAlreadyLoaned
		}

		const sql = `
			INSERT INTO loans (book_id, customer, customer_email, loan_date, returned, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			RETURNING id, created_at`
		return tx.QueryRow(timeoutCtx, sql, l.BookID, l.Customer, l.Email, l.LoanDate, l.Returned).
			Scan(&l.ID, &l.CreatedAt)
	})
	if postgres.IsUniqueViolation(err, openLoanIndex) {
		return ErrAlreadyLoaned
	}
	return err
}

func (r *PostgresRepo) ExistsOpenForBook(ctx context.Context, bookID int64) (bool, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(timeoutCtx,
		`SELECT EXISTS (SELECT 1 FROM loans WHERE book_id = $1 AND returned IS NOT TRUE)`, bookID).Scan(&exists)
	return exists, err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Loan, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	l, err := scanLoan(r.db.QueryRow(timeoutCtx, loanSelect+` WHERE l.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Loan{}, ErrNotFound
		}
		return Loan{}, err
	}
	return l, nil
}

func (r *PostgresRepo) SetReturned(ctx context.Context, id int64, returned bool) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, `UPDATE loans SET returned = $2 WHERE id = $1`, id, returned)
	if err != nil {
		// Un-returning a loan whose book has since been loaned again.
		if postgres.IsUniqueViolation(err, openLoanIndex) {
			return ErrAlreadyLoaned
		}
		return fmt.Errorf("update loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, f Filter, p paging.Request) ([]Loan, int, error) {
	var clauses []string
	args := []any{}

	if f.ISBN != "" {
		args = append(args, f.ISBN)
		clauses = append(clauses, fmt.Sprintf("b.isbn = $%d", len(args)))
	}
	if f.Customer != "" {
		args = append(args, f.Customer)
		clauses = append(clauses, fmt.Sprintf("l.customer = $%d", len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " OR ")
	}
	return r.page(ctx, where, args, p)
}

func (r *PostgresRepo) ListByBook(ctx context.Context, bookID int64, p paging.Request) ([]Loan, int, error) {
	return r.page(ctx, " WHERE l.book_id = $1", []any{bookID}, p)
}

func (r *PostgresRepo) page(ctx context.Context, where string, args []any, p paging.Request) ([]Loan, int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	countSQL := `SELECT COUNT(*) FROM loans l JOIN books b ON b.id = l.book_id` + where
	if err := r.db.QueryRow(timeoutCtx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count loans: %w", err)
	}

	dataSQL := fmt.Sprintf(`%s%s ORDER BY l.id ASC LIMIT $%d OFFSET $%d`,
		loanSelect, where, len(args)+1, len(args)+2)
	argsWithPage := append(append([]any{}, args...), p.Limit(), p.Offset())

	rows, err := r.db.Query(timeoutCtx, dataSQL, argsWithPage...)
	if err != nil {
		return nil, 0, fmt.Errorf("list loans: %w", err)
	}
	out, err := collectLoans(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PostgresRepo) ListOpenBefore(ctx context.Context, date time.Time) ([]Loan, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx,
		loanSelect+` WHERE l.returned IS NOT TRUE AND l.loan_date < $1 ORDER BY l.loan_date, l.id`, date)
	if err != nil {
		return nil, fmt.Errorf("list late loans: %w", err)
	}
	return collectLoans(rows)
}
