package application

import (
	"errors"

	"github.com/oksasatya/go-library-management/pkg/storage"
)

var (
	// validation
	ErrMissingFields    = errors.New("missing required fields")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooLong  = errors.New("password longer than 72 bytes")
	ErrInvalidAction    = errors.New("invalid action or book id")

	// conflict
	ErrEmailTaken      = errors.New("email already registered")
	ErrAlreadyBorrowed = errors.New("book already borrowed")

	// not found
	ErrNoActiveLoan = errors.New("no borrowed record found")
	ErrBookNotFound = errors.New("book not found")
	ErrUserNotFound = errors.New("user not found")

	// auth
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session invalid")

	// upstream
	ErrUploadFailed = storage.ErrUploadFailed
)
