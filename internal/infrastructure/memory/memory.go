// Package memory holds in-process repositories with the same uniqueness and
// ordering rules as the Postgres schema. Used by tests and local tooling.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/go-library-management/internal/domain/entity"
	"github.com/oksasatya/go-library-management/internal/domain/repository"
)

// Store is the shared state behind the three repositories.
type Store struct {
	mu     sync.Mutex
	users  []entity.User
	books  []entity.Book
	loans  []entity.Loan
	nextID int64

	Users *UserRepository
	Books *BookRepository
	Loans *LoanRepository
}

func NewStore() *Store {
	s := &Store{}
	s.Users = &UserRepository{s: s}
	s.Books = &BookRepository{s: s}
	s.Loans = &LoanRepository{s: s}
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddBook seeds a catalog entry and returns it with its id.
func (s *Store) AddBook(title, author string) entity.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := entity.Book{ID: s.id(), Title: title, Author: author}
	s.books = append(s.books, b)
	return b
}

// AllLoans returns a copy of every history row.
func (s *Store) AllLoans() []entity.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Loan(nil), s.loans...)
}

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) book(id int64) (entity.Book, bool) {
	for _, b := range s.books {
		if b.ID == id {
			return b, true
		}
	}
	return entity.Book{}, false
}

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.users {
		if x.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = r.s.id()
	u.CreatedAt = time.Now().UTC()
	r.s.users = append(r.s.users, *u)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id })
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email == email })
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == repository.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *UserRepository) find(match func(entity.User) bool) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type BookRepository struct{ s *Store }

func (r *BookRepository) List(_ context.Context) ([]entity.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]entity.Book(nil), r.s.books...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *BookRepository) GetByID(_ context.Context, id int64) (*entity.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.book(id); ok {
		return &b, nil
	}
	return nil, repository.ErrNotFound
}

func (r *BookRepository) Search(ctx context.Context, q string, limit int) ([]entity.Book, error) {
	all, _ := r.List(ctx)
	q = strings.ToLower(q)
	var out []entity.Book
	for _, b := range all {
		if strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.Author), q) {
			out = append(out, b)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type LoanRepository struct{ s *Store }

func (r *LoanRepository) HasActive(_ context.Context, userID, bookID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.active(userID, bookID) >= 0, nil
}

// active returns the index of the newest active loan for the pair, or -1.
func (r *LoanRepository) active(userID, bookID int64) int {
	idx := -1
	for i, l := range r.s.loans {
		if l.UserID != userID || l.BookID != bookID || !l.Active() {
			continue
		}
		if idx < 0 || l.BorrowDate.After(r.s.loans[idx].BorrowDate) {
			idx = i
		}
	}
	return idx
}

func (r *LoanRepository) Create(_ context.Context, userID, bookID int64, borrowedAt time.Time) (*entity.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.book(bookID); !ok {
		return nil, repository.ErrNotFound
	}
	if r.active(userID, bookID) >= 0 {
		return nil, repository.ErrDuplicate
	}
	l := entity.Loan{ID: r.s.id(), UserID: userID, BookID: bookID, BorrowDate: borrowedAt}
	r.s.loans = append(r.s.loans, l)
	return &l, nil
}

func (r *LoanRepository) CloseLatestActive(_ context.Context, userID, bookID int64, returnedAt time.Time) (*entity.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.active(userID, bookID)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	ret := returnedAt
	if ret.Before(r.s.loans[i].BorrowDate) {
		ret = r.s.loans[i].BorrowDate
	}
	r.s.loans[i].ReturnDate = &ret
	l := r.s.loans[i]
	return &l, nil
}

func (r *LoanRepository) ActiveBooks(_ context.Context, userID int64) ([]entity.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loans := r.byUser(userID)
	var out []entity.Book
	for _, l := range loans {
		if !l.Active() {
			continue
		}
		if b, ok := r.s.book(l.BookID); ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *LoanRepository) History(_ context.Context, userID int64) ([]entity.LoanRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loans := r.byUser(userID)
	out := make([]entity.LoanRecord, 0, len(loans))
	for _, l := range loans {
		b, _ := r.s.book(l.BookID)
		out = append(out, entity.LoanRecord{
			LoanID:     l.ID,
			BookID:     l.BookID,
			Title:      b.Title,
			Author:     b.Author,
			BorrowDate: l.BorrowDate,
			ReturnDate: l.ReturnDate,
		})
	}
	return out, nil
}

// byUser returns the user's loans, newest borrow first (ties by id desc).
func (r *LoanRepository) byUser(userID int64) []entity.Loan {
	var out []entity.Loan
	for _, l := range r.s.loans {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BorrowDate.Equal(out[j].BorrowDate) {
			return out[i].BorrowDate.After(out[j].BorrowDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

var (
	_ repository.UserRepository = (*UserRepository)(nil)
	_ repository.BookRepository = (*BookRepository)(nil)
	_ repository.LoanRepository = (*LoanRepository)(nil)
)
