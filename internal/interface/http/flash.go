package handlers

import (
	"errors"
	"expvar"

	"github.com/oksasatya/go-library-management/internal/application"
)

const (
	msgSignupOK       = "Signup successful! Please login."
	msgLoggedOut      = "Logged out successfully."
	msgBorrowed       = "Book borrowed successfully."
	msgReturned       = "Book returned successfully."
	msgMissingFields  = "Please fill all required fields"
	msgInvalidLogin   = "Invalid email or password"
	msgInvalidAction  = "Invalid action or book ID"
	msgDatabaseError  = "Database error occurred"
	msgSessionExpired = "Please login again."
	msgTooManyTries   = "Too many attempts, try again later"
)

// counters published on /debug/vars
var metrics = expvar.NewMap("library")

// flashFor maps a workflow error to the one-line message shown to the user.
// known is false for errors that should be logged.
func flashFor(err error) (msg string, known bool) {
	switch {
	case errors.Is(err, application.ErrMissingFields):
		return msgMissingFields, true
	case errors.Is(err, application.ErrPasswordMismatch):
		return "Passwords do not match", true
	case errors.Is(err, application.ErrPasswordTooLong):
		return "Password must be at most 72 characters long", true
	case errors.Is(err, application.ErrEmailTaken):
		return "Email already exists", true
	case errors.Is(err, application.ErrUploadFailed):
		return "Image upload failed", true
	case errors.Is(err, application.ErrInvalidCredentials):
		return msgInvalidLogin, true
	case errors.Is(err, application.ErrAlreadyBorrowed):
		return "You already borrowed this book and not yet returned.", true
	case errors.Is(err, application.ErrNoActiveLoan):
		return "No borrowed record found to return.", true
	case errors.Is(err, application.ErrBookNotFound):
		return "Book not found.", true
	case errors.Is(err, application.ErrInvalidAction):
		return msgInvalidAction, true
	default:
		return msgDatabaseError, false
	}
}
