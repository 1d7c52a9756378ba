package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cosmas28/business-connect-v2/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository     = (*PostgresUserRepo)(nil)
	_ RevocationRegistry = (*PostgresRevocationRepo)(nil)
)

const uniqueViolationCode = "23505"

// PostgresUserRepo implements UserRepository on pgx.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const selectUserSQL = `SELECT id, email, username, first_name, last_name, password_hash, created_at, updated_at
FROM users`

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

const insertUserSQL = `INSERT INTO users (id, email, username, first_name, last_name, password_hash)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, email, username, first_name, last_name, password_hash, created_at, updated_at`

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx, insertUserSQL,
		user.ID,
		user.Email,
		user.Username,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
	)

	inserted, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, ErrDuplicate
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return inserted, nil
}

func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE email = $1`,
		email, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// PostgresRevocationRepo implements RevocationRegistry as an append-only set
// keyed by jti. The primary key makes revocation idempotent and concurrent
// revoke/is-revoked on the same jti linearizable at the database.
type PostgresRevocationRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRevocationRepo(pool *pgxpool.Pool) *PostgresRevocationRepo {
	return &PostgresRevocationRepo{db: pool}
}

func (r *PostgresRevocationRepo) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2) ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *PostgresRevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`,
		jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

func (r *PostgresRevocationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired revocations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
