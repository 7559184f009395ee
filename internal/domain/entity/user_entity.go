package entity

import (
	"time"
)

// User is a library member.
// Passwords are stored as bcrypt hashes in Password field
type User struct {
	ID        int64
	Name      string
	Mobile    string
	Email     string
	Password  string
	Gender    string
	Location  string
	ImageURL  string // empty when no profile image was uploaded
	CreatedAt time.Time
}
