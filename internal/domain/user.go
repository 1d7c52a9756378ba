package domain

import "time"

// User is an identity record in the business directory. Email and username
// are stored lower-cased and are unique across all users.
type User struct {
	ID           int64
	Email        string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
