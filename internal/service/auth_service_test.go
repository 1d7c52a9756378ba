package service_test

import (
	"context"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cosmas28/business-connect-v2/internal/config"
	"github.com/cosmas28/business-connect-v2/internal/domain"
	"github.com/cosmas28/business-connect-v2/internal/repository"
	"github.com/cosmas28/business-connect-v2/internal/service"
	"github.com/cosmas28/business-connect-v2/internal/token"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestService(t *testing.T) (*service.AuthService, *memoryUserRepo, *memoryRegistry) {
	t.Helper()

	cfg := config.Config{
		TokenIssuer:     "business-connect",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		ResetTokenTTL:   time.Minute,
		StorageTimeout:  time.Second,
	}
	users := newMemoryUserRepo()
	registry := newMemoryRegistry()
	issuer := token.NewIssuer(testSecret, cfg.TokenIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.ResetTokenTTL)
	verifier := token.NewVerifier(testSecret, cfg.TokenIssuer, registry)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return service.NewAuthService(users, registry, issuer, verifier, node, cfg, zap.NewNop()), users, registry
}

func registerInput() service.RegisterInput {
	return service.RegisterInput{
		Email:           "a@x.com",
		Username:        "alice",
		FirstName:       "alice",
		LastName:        "wonder",
		Password:        "Abcdef1",
		ConfirmPassword: "Abcdef1",
	}
}

func TestRegisterSuccess(t *testing.T) {
	svc, users, _ := newTestService(t)

	created, err := svc.Register(context.Background(), registerInput())
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "a@x.com", created.Email)
	require.Equal(t, "alice", created.Username)
	require.Equal(t, "Alice", created.FirstName)
	require.Equal(t, "Wonder", created.LastName)
	require.NotEmpty(t, created.PasswordHash)
	require.NotEqual(t, "Abcdef1", created.PasswordHash, "plaintext must never be stored")

	stored, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, stored.ID)
}

func TestRegisterNormalizesCase(t *testing.T) {
	svc, users, _ := newTestService(t)

	in := registerInput()
	in.Email = "A@X.Com"
	in.Username = "ALICE"
	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	stored, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "alice", stored.Username)
}

func TestRegisterCapitalizesMultibyteNames(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := registerInput()
	in.FirstName = "élodie"
	in.LastName = "ÖZTÜRK"
	created, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "Élodie", created.FirstName)
	require.Equal(t, "Öztürk", created.LastName)
	require.True(t, utf8.ValidString(created.FirstName))
	require.True(t, utf8.ValidString(created.LastName))
}

func TestRegisterDuplicateConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput())
	requireServiceError(t, err, service.CodeConflict)

	in := registerInput()
	in.Email = "other@x.com"
	_, err = svc.Register(ctx, in)
	requireServiceError(t, err, service.CodeConflict)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*service.RegisterInput)
	}{
		{"missing email", func(in *service.RegisterInput) { in.Email = "" }},
		{"missing username", func(in *service.RegisterInput) { in.Username = "" }},
		{"missing password", func(in *service.RegisterInput) { in.Password = "" }},
		{"short password", func(in *service.RegisterInput) { in.Password = "Abc1"; in.ConfirmPassword = "Abc1" }},
		{"digits only", func(in *service.RegisterInput) { in.Password = "1234567"; in.ConfirmPassword = "1234567" }},
		{"letters only", func(in *service.RegisterInput) { in.Password = "Abcdefg"; in.ConfirmPassword = "Abcdefg" }},
		{"mismatched confirmation", func(in *service.RegisterInput) { in.ConfirmPassword = "Abcdef2" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := registerInput()
			tc.mutate(&in)
			_, err := svc.Register(ctx, in)
			requireServiceError(t, err, service.CodeValidation)
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	result, err := svc.Login(ctx, "a@x.com", "Abcdef1")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.NotEqual(t, result.AccessToken, result.RefreshToken)
	require.Equal(t, created.ID, result.UserID)

	access, err := svc.VerifyAccess(ctx, result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, created.ID, access.UserID)
}

func TestLoginUniformInvalidCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	// Unknown email and wrong password must be indistinguishable.
	_, unknownErr := svc.Login(ctx, "nobody@x.com", "Abcdef1")
	_, wrongErr := svc.Login(ctx, "a@x.com", "Wrong123")
	requireServiceError(t, unknownErr, service.CodeInvalidCredentials)
	requireServiceError(t, wrongErr, service.CodeInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	result, err := svc.Login(ctx, "a@x.com", "Abcdef1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.AccessToken, domain.KindAccess))

	_, err = svc.VerifyAccess(ctx, result.AccessToken)
	requireServiceError(t, err, service.CodeAuth)

	// The refresh token from the same login has its own lifecycle.
	refreshed, err := svc.Refresh(ctx, result.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
}

func TestLogoutTwiceFailsSecondTime(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	result, err := svc.Login(ctx, "a@x.com", "Abcdef1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.AccessToken, domain.KindAccess))
	err = svc.Logout(ctx, result.AccessToken, domain.KindAccess)
	requireServiceError(t, err, service.CodeAuth)
}

func TestLogoutWrongKindRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	result, err := svc.Login(ctx, "a@x.com", "Abcdef1")
	require.NoError(t, err)

	err = svc.Logout(ctx, result.AccessToken, domain.KindRefresh)
	requireServiceError(t, err, service.CodeAuth)
}

func TestRefreshAfterLogoutRefreshFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	result, err := svc.Login(ctx, "a@x.com", "Abcdef1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.RefreshToken, domain.KindRefresh))
	_, err = svc.Refresh(ctx, result.RefreshToken)
	requireServiceError(t, err, service.CodeAuth)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	result, err := svc.Login(ctx, "a@x.com", "Abcdef1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, result.AccessToken)
	requireServiceError(t, err, service.CodeAuth)
}

func TestResetPasswordDirect(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, "a@x.com", "Newpass1", "Newpass1"))

	_, err = svc.Login(ctx, "a@x.com", "Abcdef1")
	requireServiceError(t, err, service.CodeInvalidCredentials)
	_, err = svc.Login(ctx, "a@x.com", "Newpass1")
	require.NoError(t, err)
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.ResetPassword(context.Background(), "nobody@x.com", "Newpass1", "Newpass1")
	requireServiceError(t, err, service.CodeNotFound)
}

func TestResetPasswordWithTokenSingleUse(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	reset, err := svc.RequestPasswordReset(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "a@x.com", reset.Email)

	require.NoError(t, svc.ResetPasswordWithToken(ctx, reset.Encoded, "Newpass1", "Newpass1"))
	_, err = svc.Login(ctx, "a@x.com", "Newpass1")
	require.NoError(t, err)

	// The token authorized exactly one change.
	err = svc.ResetPasswordWithToken(ctx, reset.Encoded, "Another1", "Another1")
	requireServiceError(t, err, service.CodeAuth)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RequestPasswordReset(context.Background(), "nobody@x.com")
	requireServiceError(t, err, service.CodeNotFound)
}

func TestConcurrentLogoutIdempotentRegistry(t *testing.T) {
	svc, _, registry := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	result, err := svc.Login(ctx, "a@x.com", "Abcdef1")
	require.NoError(t, err)

	claims, err := svc.VerifyAccess(ctx, result.AccessToken)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = registry.Revoke(ctx, claims.JTI, claims.ExpiresAt)
		}()
	}
	wg.Wait()

	revoked, err := registry.IsRevoked(ctx, claims.JTI)
	require.NoError(t, err)
	require.True(t, revoked)
	require.Equal(t, 1, registry.count(claims.JTI), "revocation insert must be idempotent")
}

func requireServiceError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	svcErr, ok := err.(*service.Error)
	require.True(t, ok, "expected *service.Error, got %T: %v", err, err)
	require.Equal(t, code, svcErr.Code)
}

// memoryUserRepo implements repository.UserRepository with the same
// uniqueness guarantees the database constraint provides.
type memoryUserRepo struct {
	mu         sync.Mutex
	byEmail    map[string]domain.User
	byUsername map[string]domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		byEmail:    make(map[string]domain.User),
		byUsername: make(map[string]domain.User),
	}
}

func (m *memoryUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byUsername[username]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return domain.User{}, repository.ErrDuplicate
	}
	if _, ok := m.byUsername[user.Username]; ok {
		return domain.User{}, repository.ErrDuplicate
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	m.byEmail[user.Email] = user
	m.byUsername[user.Username] = user
	return user, nil
}

func (m *memoryUserRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	m.byEmail[email] = user
	m.byUsername[user.Username] = user
	return nil
}

// memoryRegistry implements repository.RevocationRegistry.
type memoryRegistry struct {
	mu      sync.Mutex
	revoked map[string]domain.RevokedToken
	inserts map[string]int
}

func newMemoryRegistry() *memoryRegistry {
	return &memoryRegistry{
		revoked: make(map[string]domain.RevokedToken),
		inserts: make(map[string]int),
	}
}

func (m *memoryRegistry) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.revoked[jti]; ok {
		return nil
	}
	m.revoked[jti] = domain.RevokedToken{JTI: jti, ExpiresAt: expiresAt, RevokedAt: time.Now().UTC()}
	m.inserts[jti]++
	return nil
}

func (m *memoryRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *memoryRegistry) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for jti, record := range m.revoked {
		if record.ExpiresAt.Before(now) {
			delete(m.revoked, jti)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memoryRegistry) count(jti string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts[jti]
}
