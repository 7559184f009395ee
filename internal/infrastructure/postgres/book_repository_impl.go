package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-library-management/internal/domain/entity"
	"github.com/oksasatya/go-library-management/internal/domain/repository"
)

type BookRepository struct {
	db Querier
}

func NewBookRepository(db Querier) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) List(ctx context.Context) ([]entity.Book, error) {
	rows, err := r.db.Query(ctx, `SELECT id, title, author FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return collectBooks(rows)
}

func (r *BookRepository) GetByID(ctx context.Context, id int64) (*entity.Book, error) {
	b := &entity.Book{}
	err := r.db.QueryRow(ctx, `SELECT id, title, author FROM books WHERE id = $1`, id).Scan(&b.ID, &b.Title, &b.Author)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	return b, nil
}

func (r *BookRepository) Search(ctx context.Context, q string, limit int) ([]entity.Book, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(q)) + "%"
	rows, err := r.db.Query(ctx, `
		SELECT id, title, author FROM books
		WHERE title ILIKE $1 OR author ILIKE $1
		ORDER BY id
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return collectBooks(rows)
}

// Upsert inserts a book unless the same title/author already exists. Used by the seeder.
func (r *BookRepository) Upsert(ctx context.Context, b *entity.Book) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO books (title, author) VALUES ($1, $2)
		ON CONFLICT (title, author) DO UPDATE SET title = EXCLUDED.title
		RETURNING id
	`, b.Title, b.Author).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("upsert book: %w", err)
	}
	return nil
}

func collectBooks(rows pgx.Rows) ([]entity.Book, error) {
	books, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Book, error) {
		var b entity.Book
		err := row.Scan(&b.ID, &b.Title, &b.Author)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan books: %w", err)
	}
	return books, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ repository.BookRepository = (*BookRepository)(nil)
