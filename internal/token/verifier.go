package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/cosmas28/business-connect-v2/internal/domain"
)

// Verification failures, ordered cheapest-first by the Verify algorithm.
var (
	ErrMalformed        = errors.New("token: malformed")
	ErrInvalidSignature = errors.New("token: invalid signature")
	ErrExpired          = errors.New("token: expired")
	ErrWrongKind        = errors.New("token: wrong kind")
	ErrRevoked          = errors.New("token: revoked")
)

// RevocationRegistry is the membership check the verifier consults last,
// since it is the only step requiring external I/O.
type RevocationRegistry interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Verifier validates presented tokens against signature, expiry, kind and
// revocation status.
type Verifier struct {
	secret   []byte
	issuer   string
	registry RevocationRegistry
}

// NewVerifier constructs a Verifier sharing the Issuer's secret.
func NewVerifier(secret []byte, issuer string, registry RevocationRegistry) *Verifier {
	return &Verifier{secret: secret, issuer: issuer, registry: registry}
}

var allowedAlgorithms = []gojose.SignatureAlgorithm{gojose.HS256}

// Verify checks the encoded token and returns its claims only if every check
// passes. Check order: structure, signature, expiry, kind, revocation. A
// registry failure is returned as-is so callers can distinguish
// infrastructure trouble from an invalid token.
func (v *Verifier) Verify(ctx context.Context, encoded string, want domain.TokenKind) (domain.IssuedToken, error) {
	parsed, err := gojwt.ParseSigned(encoded, allowedAlgorithms)
	if err != nil {
		return domain.IssuedToken{}, ErrMalformed
	}

	var std gojwt.Claims
	var custom customClaims
	if err := parsed.Claims(v.secret, &std, &custom); err != nil {
		return domain.IssuedToken{}, ErrInvalidSignature
	}

	if std.ID == "" || std.Subject == "" || std.Expiry == nil {
		return domain.IssuedToken{}, ErrMalformed
	}
	userID, err := strconv.ParseInt(std.Subject, 10, 64)
	if err != nil {
		return domain.IssuedToken{}, ErrMalformed
	}

	// Zero leeway: a token expired even a second ago must fail here,
	// before the registry is ever consulted.
	now := time.Now().UTC()
	if err := std.ValidateWithLeeway(gojwt.Expected{Issuer: v.issuer, Time: now}, 0); err != nil {
		if errors.Is(err, gojwt.ErrExpired) {
			return domain.IssuedToken{}, ErrExpired
		}
		return domain.IssuedToken{}, ErrMalformed
	}

	if custom.Kind != want {
		return domain.IssuedToken{}, ErrWrongKind
	}

	revoked, err := v.registry.IsRevoked(ctx, std.ID)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return domain.IssuedToken{}, ErrRevoked
	}

	issuedAt := now
	if std.IssuedAt != nil {
		issuedAt = std.IssuedAt.Time()
	}
	return domain.IssuedToken{
		Encoded:   encoded,
		JTI:       std.ID,
		UserID:    userID,
		Email:     custom.Email,
		Kind:      custom.Kind,
		IssuedAt:  issuedAt,
		ExpiresAt: std.Expiry.Time(),
	}, nil
}
