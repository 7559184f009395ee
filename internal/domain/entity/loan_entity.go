package entity

import "time"

// Loan is one borrow of a book by a user. ReturnDate is nil while the loan is active.
// At most one active loan may exist per (UserID, BookID).
type Loan struct {
	ID         int64
	UserID     int64
	BookID     int64
	BorrowDate time.Time
	ReturnDate *time.Time
}

// Active reports whether the book has not been returned yet.
func (l *Loan) Active() bool { return l.ReturnDate == nil }

// LoanRecord is a history row joined with its book.
type LoanRecord struct {
	LoanID     int64
	BookID     int64
	Title      string
	Author     string
	BorrowDate time.Time
	ReturnDate *time.Time
}
