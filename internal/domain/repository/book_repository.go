package repository

import (
	"context"

	"github.com/oksasatya/go-library-management/internal/domain/entity"
)

// BookRepository reads the catalog.
type BookRepository interface {
	List(ctx context.Context) ([]entity.Book, error)
	GetByID(ctx context.Context, id int64) (*entity.Book, error)
	// Search matches title or author case-insensitively.
	Search(ctx context.Context, q string, limit int) ([]entity.Book, error)
}
