package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-library-management/internal/domain/entity"
)

// LoanRepository persists the borrow history.
type LoanRepository interface {
	HasActive(ctx context.Context, userID, bookID int64) (bool, error)
	// Create inserts an active loan. Returns ErrDuplicate when an active loan already exists.
	Create(ctx context.Context, userID, bookID int64, borrowedAt time.Time) (*entity.Loan, error)
	// CloseLatestActive sets the return date on the newest active loan for the pair.
	// Returns ErrNotFound when there is none.
	CloseLatestActive(ctx context.Context, userID, bookID int64, returnedAt time.Time) (*entity.Loan, error)
	ActiveBooks(ctx context.Context, userID int64) ([]entity.Book, error)
	History(ctx context.Context, userID int64) ([]entity.LoanRecord, error)
}
