package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cosmas28/business-connect-v2/internal/domain"
)

// Storage-level sentinels the service layer translates into its taxonomy.
var (
	// ErrNotFound signals the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate signals a uniqueness violation on insert. The unique
	// constraint in the database is what makes concurrent registrations
	// race-free; callers never check-then-write.
	ErrDuplicate = errors.New("repository: duplicate")
)

// UserRepository exposes persistence for directory users.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// RevocationRegistry is the durable blacklist of token identifiers. Revoke
// is idempotent; once it returns, every subsequent IsRevoked for the same
// jti reports true. DeleteExpired is a garbage-collection optimization only:
// rows may be dropped once the underlying token would have expired anyway.
type RevocationRegistry interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
