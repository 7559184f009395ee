package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-library-management/internal/domain/entity"
	"github.com/oksasatya/go-library-management/internal/domain/repository"
)

type LoanRepository struct {
	db Querier
}

func NewLoanRepository(db Querier) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) HasActive(ctx context.Context, userID, bookID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM history
			WHERE user_id = $1 AND book_id = $2 AND return_date IS NULL
		)
	`, userID, bookID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active loan: %w", err)
	}
	return exists, nil
}

func (r *LoanRepository) Create(ctx context.Context, userID, bookID int64, borrowedAt time.Time) (*entity.Loan, error) {
	l := &entity.Loan{UserID: userID, BookID: bookID}
	err := r.db.QueryRow(ctx, `
		INSERT INTO history (user_id, book_id, borrow_date)
		VALUES ($1, $2, $3)
		RETURNING id, borrow_date
	`, userID, bookID, borrowedAt).Scan(&l.ID, &l.BorrowDate)
	if err != nil {
		// history_active_loan_uniq
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("insert loan: %w", err)
	}
	return l, nil
}

func (r *LoanRepository) CloseLatestActive(ctx context.Context, userID, bookID int64, returnedAt time.Time) (*entity.Loan, error) {
	l := &entity.Loan{}
	var ret time.Time
	err := r.db.QueryRow(ctx, `
		UPDATE history SET return_date = GREATEST($3, borrow_date)
		WHERE id = (
			SELECT id FROM history
			WHERE user_id = $1 AND book_id = $2 AND return_date IS NULL
			ORDER BY borrow_date DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING id, user_id, book_id, borrow_date, return_date
	`, userID, bookID, returnedAt).Scan(&l.ID, &l.UserID, &l.BookID, &l.BorrowDate, &ret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("close loan: %w", err)
	}
	l.ReturnDate = &ret
	return l, nil
}

func (r *LoanRepository) ActiveBooks(ctx context.Context, userID int64) ([]entity.Book, error) {
	rows, err := r.db.Query(ctx, `
		SELECT b.id, b.title, b.author FROM history h
		JOIN books b ON h.book_id = b.id
		WHERE h.user_id = $1 AND h.return_date IS NULL
		ORDER BY h.borrow_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active loans: %w", err)
	}
	return collectBooks(rows)
}

func (r *LoanRepository) History(ctx context.Context, userID int64) ([]entity.LoanRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT h.id, b.id, b.title, b.author, h.borrow_date, h.return_date FROM history h
		JOIN books b ON h.book_id = b.id
		WHERE h.user_id = $1
		ORDER BY h.borrow_date DESC, h.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.LoanRecord, error) {
		var rec entity.LoanRecord
		err := row.Scan(&rec.LoanID, &rec.BookID, &rec.Title, &rec.Author, &rec.BorrowDate, &rec.ReturnDate)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return records, nil
}

var _ repository.LoanRepository = (*LoanRepository)(nil)
