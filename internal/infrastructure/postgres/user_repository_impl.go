package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-library-management/internal/domain/entity"
	"github.com/oksasatya/go-library-management/internal/domain/repository"
)

type UserRepository struct {
	db Querier
}

func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, mobile, email, password, gender, location, COALESCE(image, ''), created_at`

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	var image *string
	if u.ImageURL != "" {
		image = &u.ImageURL
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (name, mobile, email, password, gender, location, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, u.Name, u.Mobile, u.Email, u.Password, u.Gender, u.Location, image)

	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	u := &entity.User{}
	row := r.db.QueryRow(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.Name, &u.Mobile, &u.Email, &u.Password, &u.Gender, &u.Location,
		&u.ImageURL, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
