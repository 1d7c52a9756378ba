package domain

import "time"

// TokenKind discriminates what a signed token may be used for. An access
// token is never accepted where a refresh token is required, and vice versa.
type TokenKind string

const (
	// KindAccess is a short-lived token presented on protected requests.
	KindAccess TokenKind = "access"
	// KindRefresh is a long-lived token exchanged for new access tokens.
	KindRefresh TokenKind = "refresh"
	// KindReset authorizes exactly one password change for its bound email.
	KindReset TokenKind = "reset"
)

// IssuedToken is the decoded claim set returned alongside the encoded string
// at issuance time. Tokens are immutable after issuance.
type IssuedToken struct {
	Encoded   string
	JTI       string
	UserID    int64
	Email     string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RevokedToken records one jti invalidated before its natural expiry. Rows
// are append-only; ExpiresAt allows garbage collection once the token would
// have expired anyway.
type RevokedToken struct {
	JTI       string
	ExpiresAt time.Time
	RevokedAt time.Time
}
