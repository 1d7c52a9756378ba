package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cosmas28/business-connect-v2/internal/config"
	"github.com/cosmas28/business-connect-v2/internal/domain"
	pw "github.com/cosmas28/business-connect-v2/internal/password"
	"github.com/cosmas28/business-connect-v2/internal/repository"
	"github.com/cosmas28/business-connect-v2/internal/token"
)

// RegisterInput carries a signup request.
type RegisterInput struct {
	Email           string
	Username        string
	FirstName       string
	LastName        string
	Password        string
	ConfirmPassword string
}

// LoginResult is the access/refresh pair returned on successful login.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       int64  `json:"user_id"`
}

// RefreshResult carries the reissued access token.
type RefreshResult struct {
	AccessToken string `json:"access_token"`
}

// AuthService composes the password hasher, token issuer/verifier, user
// store and revocation registry into the authentication flows.
type AuthService struct {
	users     repository.UserRepository
	registry  repository.RevocationRegistry
	issuer    *token.Issuer
	verifier  *token.Verifier
	snowflake *snowflake.Node
	cfg       config.Config
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, registry repository.RevocationRegistry, issuer *token.Issuer, verifier *token.Verifier, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		registry:  registry,
		issuer:    issuer,
		verifier:  verifier,
		snowflake: node,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/cosmas28/business-connect-v2/internal/service"),
	}
}

// Register creates a new user account. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.ToLower(strings.TrimSpace(in.Username))

	if email == "" || username == "" {
		return domain.User{}, newValidationError("Email and Username are required!")
	}
	if in.Password == "" || in.ConfirmPassword == "" {
		return domain.User{}, newValidationError("Password and Confirmation password are required!")
	}
	if err := validatePassword(in.Password, in.ConfirmPassword); err != nil {
		return domain.User{}, err
	}

	hash, err := pw.Hash(in.Password)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, newUnavailableError()
	}

	user := domain.User{
		ID:           s.snowflake.Generate().Int64(),
		Email:        email,
		Username:     username,
		FirstName:    capitalize(in.FirstName),
		LastName:     capitalize(in.LastName),
		PasswordHash: hash,
	}

	storeCtx, cancel := s.storageContext(ctx)
	defer cancel()
	created, err := s.users.Create(storeCtx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, newConflictError("User already exists. Sign in!")
		}
		span.RecordError(err)
		return domain.User{}, newUnavailableError()
	}

	s.audit("user.register.success", "user_id", created.ID, "username", created.Username)
	return created, nil
}

// Login validates credentials and issues a fresh access/refresh pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || password == "" {
		return LoginResult{}, newValidationError("Email and password are required!")
	}

	storeCtx, cancel := s.storageContext(ctx)
	defer cancel()
	user, err := s.users.GetByEmail(storeCtx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, newInvalidCredentialsError()
		}
		span.RecordError(err)
		return LoginResult{}, newUnavailableError()
	}

	if !pw.Verify(password, user.PasswordHash) {
		return LoginResult{}, newInvalidCredentialsError()
	}

	access, err := s.issuer.IssueAccess(user.ID)
	if err != nil {
		span.RecordError(err)
		return LoginResult{}, newUnavailableError()
	}
	refresh, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		span.RecordError(err)
		return LoginResult{}, newUnavailableError()
	}

	s.audit("user.login.success", "user_id", user.ID, "access_jti", access.JTI, "refresh_jti", refresh.JTI)
	return LoginResult{
		AccessToken:  access.Encoded,
		RefreshToken: refresh.Encoded,
		UserID:       user.ID,
	}, nil
}

// Logout revokes the presented token. The token must still be valid; a
// second logout with the same token fails because the jti is already
// revoked, while the registry insert itself stays idempotent.
func (s *AuthService) Logout(ctx context.Context, encoded string, kind domain.TokenKind) error {
	ctx, span := s.startSpan(ctx, "AuthService.Logout")
	defer span.End()

	claims, err := s.verify(ctx, encoded, kind)
	if err != nil {
		return err
	}

	storeCtx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.registry.Revoke(storeCtx, claims.JTI, claims.ExpiresAt); err != nil {
		span.RecordError(err)
		return newUnavailableError()
	}

	s.audit("user.logout.success", "user_id", claims.UserID, "jti", claims.JTI, "kind", string(kind))
	return nil
}

// Refresh exchanges a valid refresh token for a new access token without
// re-entering credentials. The refresh token keeps its own lifecycle.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Refresh")
	defer span.End()

	claims, err := s.verify(ctx, refreshToken, domain.KindRefresh)
	if err != nil {
		return RefreshResult{}, err
	}

	access, err := s.issuer.IssueAccess(claims.UserID)
	if err != nil {
		span.RecordError(err)
		return RefreshResult{}, newUnavailableError()
	}

	s.audit("token.refresh.success", "user_id", claims.UserID, "access_jti", access.JTI)
	return RefreshResult{AccessToken: access.Encoded}, nil
}

// VerifyAccess validates an access token for protected requests.
func (s *AuthService) VerifyAccess(ctx context.Context, encoded string) (domain.IssuedToken, error) {
	return s.verify(ctx, encoded, domain.KindAccess)
}

// RequestPasswordReset mints a reset token bound to the account's email.
// Delivering the token to the user is the caller's concern.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (domain.IssuedToken, error) {
	ctx, span := s.startSpan(ctx, "AuthService.RequestPasswordReset")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return domain.IssuedToken{}, newValidationError("Email is required!")
	}

	storeCtx, cancel := s.storageContext(ctx)
	defer cancel()
	user, err := s.users.GetByEmail(storeCtx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.IssuedToken{}, newNotFoundError("Email not registered!")
		}
		span.RecordError(err)
		return domain.IssuedToken{}, newUnavailableError()
	}

	reset, err := s.issuer.IssueReset(user.ID, user.Email)
	if err != nil {
		span.RecordError(err)
		return domain.IssuedToken{}, newUnavailableError()
	}

	s.audit("password.reset.requested", "user_id", user.ID, "reset_jti", reset.JTI)
	return reset, nil
}

// ResetPassword overwrites the stored hash for the given email. This is the
// direct variant; callers who cannot prove ownership of the mailbox must go
// through ResetPasswordWithToken instead.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword, confirmPassword string) error {
	ctx, span := s.startSpan(ctx, "AuthService.ResetPassword")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return newValidationError("Email is required!")
	}
	return s.resetPassword(ctx, span, normalized, newPassword, confirmPassword)
}

// ResetPasswordWithToken overwrites the stored hash for the email bound
// inside a valid reset token, then revokes the token so it authorizes
// exactly one change.
func (s *AuthService) ResetPasswordWithToken(ctx context.Context, resetToken, newPassword, confirmPassword string) error {
	ctx, span := s.startSpan(ctx, "AuthService.ResetPasswordWithToken")
	defer span.End()

	claims, err := s.verify(ctx, resetToken, domain.KindReset)
	if err != nil {
		return err
	}
	if claims.Email == "" {
		return newAuthError("Invalid token. Please request a new password reset.")
	}

	if err := s.resetPassword(ctx, span, claims.Email, newPassword, confirmPassword); err != nil {
		return err
	}

	storeCtx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.registry.Revoke(storeCtx, claims.JTI, claims.ExpiresAt); err != nil {
		// The password is already changed; losing the revocation only
		// leaves the short reset window open.
		span.RecordError(err)
		s.log().Warn("revoke used reset token failed", zap.String("jti", claims.JTI), zap.Error(err))
	}
	return nil
}

func (s *AuthService) resetPassword(ctx context.Context, span trace.Span, email, newPassword, confirmPassword string) error {
	if newPassword == "" || confirmPassword == "" {
		return newValidationError("Password is required!")
	}
	if err := validatePassword(newPassword, confirmPassword); err != nil {
		return err
	}

	hash, err := pw.Hash(newPassword)
	if err != nil {
		span.RecordError(err)
		return newUnavailableError()
	}

	storeCtx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.users.UpdatePassword(storeCtx, email, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newNotFoundError("Email not registered!")
		}
		span.RecordError(err)
		return newUnavailableError()
	}

	s.audit("password.reset.success", "email", email)
	return nil
}

// verify runs token verification and translates failures into the service
// error taxonomy. Registry outages surface as service_unavailable, never as
// a rejected token, and never as silent success.
func (s *AuthService) verify(ctx context.Context, encoded string, kind domain.TokenKind) (domain.IssuedToken, error) {
	storeCtx, cancel := s.storageContext(ctx)
	defer cancel()

	claims, err := s.verifier.Verify(storeCtx, encoded, kind)
	if err == nil {
		return claims, nil
	}
	switch {
	case errors.Is(err, token.ErrExpired):
		return domain.IssuedToken{}, newAuthError("The token is expired. Please login!")
	case errors.Is(err, token.ErrRevoked):
		return domain.IssuedToken{}, newAuthError("The token has been revoked. Please login!")
	case errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrInvalidSignature),
		errors.Is(err, token.ErrWrongKind):
		return domain.IssuedToken{}, newAuthError("Invalid token. Please login!")
	default:
		s.log().Error("token verification infrastructure failure", zap.Error(err))
		return domain.IssuedToken{}, newUnavailableError()
	}
}

func validatePassword(password, confirm string) error {
	if err := pw.Validate(password); err != nil {
		return newValidationError(err.Error())
	}
	if password != confirm {
		return newValidationError("Password does not match the confirmation password!")
	}
	return nil
}

func capitalize(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(trimmed)
	return string(unicode.ToUpper(first)) + strings.ToLower(trimmed[size:])
}

func (s *AuthService) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.StorageTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
