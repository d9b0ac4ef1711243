package book

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

const isbnUniqueConstraint = "books_isbn_key"

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

const bookColumns = `id, title, author, isbn, created_at, updated_at`

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *PostgresRepo) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(timeoutCtx, `SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`, isbn).Scan(&exists)
	return exists, err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Book, error) {
	return r.getOne(ctx, "id", id)
}

func (r *PostgresRepo) GetByISBN(ctx context.Context, isbn string) (Book, error) {
	return r.getOne(ctx, "isbn", isbn)
}

func (r *PostgresRepo) getOne(ctx context.Context, column string, value any) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(r.db.QueryRow(timeoutCtx, `SELECT `+bookColumns+` FROM books WHERE `+column+` = $1`, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("get book by %s: %w", column, err)
	}
	return b, nil
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	const sql = `
		INSERT INTO books (title, author, isbn, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, sql, b.Title, b.Author, b.ISBN).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, isbnUniqueConstraint) {
			return ErrDuplicateISBN
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, b *Book) error {
	const sql = `
		UPDATE books SET title = $2, author = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, sql, b.ID, b.Title, b.Author).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

// Delete removes the book and its closed loans. The book row is locked so a
// loan cannot be opened against it between the check and the delete.
func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	return postgres.WithTx(timeoutCtx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(timeoutCtx, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock book: %w", err)
		}

		var onLoan bool
		err = tx.QueryRow(timeoutCtx,
			`SELECT EXISTS (SELECT 1 FROM loans WHERE book_id = $1 AND returned IS NOT TRUE)`, id).Scan(&onLoan)
		if err != nil {
			return fmt.Errorf("check open loan: %w", err)
		}
		if onLoan {
			return ErrOnLoan
		}

		if _, err := tx.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
}

// filterWhere turns the non-empty filter fields into ANDed ILIKE
// conditions. Patterns are escaped so user input matches literally.
func filterWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	for _, c := range []struct{ column, value string }{
		{"title", f.Title},
		{"author", f.Author},
		{"isbn", f.ISBN},
	} {
		if c.value == "" {
			continue
		}
		args = append(args, postgres.ContainsPattern(c.value))
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", c.column, len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepo) List(ctx context.Context, f Filter, p paging.Request) ([]Book, int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	where, args := filterWhere(f)

	var total int
	if err := r.db.QueryRow(timeoutCtx, "SELECT COUNT(*) FROM books "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}
	if total == 0 {
		return []Book{}, 0, nil
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM books %s ORDER BY id LIMIT $%d OFFSET $%d`, bookColumns, where, n+1, n+2)
	rows, err := r.db.Query(timeoutCtx, query, append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Book, error) {
		return scanBook(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan books: %w", err)
	}
	return out, total, nil
}
