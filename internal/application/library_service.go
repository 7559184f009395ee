package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-library-management/internal/domain/entity"
	repo "github.com/oksasatya/go-library-management/internal/domain/repository"
	"github.com/oksasatya/go-library-management/pkg/mailer"
	mailtpl "github.com/oksasatya/go-library-management/pkg/mailer/templates"
)

const searchLimit = 20

// LibraryService runs the catalog and loan workflow. Every method takes an
// already-validated user id.
type LibraryService struct {
	Books    repo.BookRepository
	Loans    repo.LoanRepository
	Users    repo.UserRepository
	Search   BookSearcher // optional
	Notifier Notifier     // optional
	Logger   *logrus.Logger
	Now      func() time.Time
}

func NewLibraryService(books repo.BookRepository, loans repo.LoanRepository, users repo.UserRepository, search BookSearcher, notifier Notifier, logger *logrus.Logger) *LibraryService {
	return &LibraryService{
		Books:    books,
		Loans:    loans,
		Users:    users,
		Search:   search,
		Notifier: notifier,
		Logger:   logger,
		Now:      time.Now,
	}
}

// Dashboard is everything the user page shows.
type Dashboard struct {
	Books    []entity.Book
	Borrowed []entity.Book
	History  []entity.LoanRecord
	Query    string
}

func (s *LibraryService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *LibraryService) ListBooks(ctx context.Context) ([]entity.Book, error) {
	return s.Books.List(ctx)
}

func (s *LibraryService) ListActiveLoans(ctx context.Context, userID int64) ([]entity.Book, error) {
	return s.Loans.ActiveBooks(ctx, userID)
}

func (s *LibraryService) ListHistory(ctx context.Context, userID int64) ([]entity.LoanRecord, error) {
	return s.Loans.History(ctx, userID)
}

// SearchBooks uses the search index when configured and falls back to SQL on any index error.
func (s *LibraryService) SearchBooks(ctx context.Context, q string) ([]entity.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.ListBooks(ctx)
	}
	if s.Search != nil {
		books, err := s.Search.SearchBooks(ctx, q, searchLimit)
		if err == nil {
			return books, nil
		}
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("q", q).Warn("catalog index search failed, falling back to sql")
		}
	}
	return s.Books.Search(ctx, q, searchLimit)
}

// Dashboard loads the catalog (optionally filtered by q), active loans and history.
func (s *LibraryService) Dashboard(ctx context.Context, userID int64, q string) (*Dashboard, error) {
	books, err := s.SearchBooks(ctx, q)
	if err != nil {
		return nil, err
	}
	borrowed, err := s.ListActiveLoans(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.ListHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Books: books, Borrowed: borrowed, History: history, Query: strings.TrimSpace(q)}, nil
}

// Borrow opens a loan unless one is already active for the pair.
func (s *LibraryService) Borrow(ctx context.Context, userID, bookID int64) (*entity.Loan, error) {
	if userID <= 0 || bookID <= 0 {
		return nil, ErrInvalidAction
	}
	book, err := s.Books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	active, err := s.Loans.HasActive(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrAlreadyBorrowed
	}
	loan, err := s.Loans.Create(ctx, userID, bookID, s.now())
	if err != nil {
		// lost a race with a concurrent borrow
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAlreadyBorrowed
		}
		return nil, err
	}
	s.notifyLoan(ctx, userID, mailer.TemplateLoanBorrowed, book, loan)
	return loan, nil
}

// Return closes the most recent active loan for the pair.
func (s *LibraryService) Return(ctx context.Context, userID, bookID int64) (*entity.Loan, error) {
	if userID <= 0 || bookID <= 0 {
		return nil, ErrInvalidAction
	}
	loan, err := s.Loans.CloseLatestActive(ctx, userID, bookID, s.now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNoActiveLoan
		}
		return nil, err
	}
	if s.Notifier != nil {
		if book, err := s.Books.GetByID(ctx, bookID); err == nil {
			s.notifyLoan(ctx, userID, mailer.TemplateLoanReturned, book, loan)
		}
	}
	return loan, nil
}

func (s *LibraryService) notifyLoan(ctx context.Context, userID int64, template string, book *entity.Book, loan *entity.Loan) {
	if s.Notifier == nil || s.Users == nil {
		return
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("skip loan notification")
		}
		return
	}
	opts := []mailtpl.Option{mailtpl.WithBook(book.Title, book.Author), mailtpl.WithBorrowDate(loan.BorrowDate)}
	if loan.ReturnDate != nil {
		opts = append(opts, mailtpl.WithReturnDate(*loan.ReturnDate))
	}
	notify(ctx, s.Notifier, s.Logger, mailer.EmailJob{
		To:       u.Email,
		Template: template,
		Data:     mailtpl.ToMap(mailtpl.NewEmailData(u.Name, u.Email, opts...)),
	})
}
