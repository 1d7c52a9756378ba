package token

import (
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/cosmas28/business-connect-v2/internal/domain"
)

// customClaims carry the non-registered part of the payload. Kind keeps
// access, refresh and reset tokens from being interchangeable; Email is set
// on reset tokens only and binds the token to one account.
type customClaims struct {
	Kind  domain.TokenKind `json:"kind"`
	Email string           `json:"email,omitempty"`
}

// Issuer mints signed tokens. The signing secret is process-wide and must be
// shared by every instance verifying the same token namespace.
type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
}

// NewIssuer constructs an Issuer for the given HS256 secret and lifetimes.
func NewIssuer(secret []byte, issuer string, accessTTL, refreshTTL, resetTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		resetTTL:   resetTTL,
	}
}

// IssueAccess mints a short-lived access token for the user.
func (i *Issuer) IssueAccess(userID int64) (domain.IssuedToken, error) {
	return i.issue(userID, "", domain.KindAccess, i.accessTTL)
}

// IssueRefresh mints a long-lived refresh token for the user.
func (i *Issuer) IssueRefresh(userID int64) (domain.IssuedToken, error) {
	return i.issue(userID, "", domain.KindRefresh, i.refreshTTL)
}

// IssueReset mints a short-lived token bound to the given email. Verifying
// it yields only the email; it grants no general access.
func (i *Issuer) IssueReset(userID int64, email string) (domain.IssuedToken, error) {
	return i.issue(userID, email, domain.KindReset, i.resetTTL)
}

func (i *Issuer) issue(userID int64, email string, kind domain.TokenKind, ttl time.Duration) (domain.IssuedToken, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: i.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	jti := uuid.NewString()
	std := gojwt.Claims{
		ID:       jti,
		Subject:  strconv.FormatInt(userID, 10),
		Issuer:   i.issuer,
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(ttl)),
	}
	custom := customClaims{Kind: kind, Email: email}

	encoded, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("serialize jwt: %w", err)
	}

	return domain.IssuedToken{
		Encoded:   encoded,
		JTI:       jti,
		UserID:    userID,
		Email:     email,
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
