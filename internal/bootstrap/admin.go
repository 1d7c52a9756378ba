package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/cosmas28/business-connect-v2/internal/config"
	"github.com/cosmas28/business-connect-v2/internal/domain"
	"github.com/cosmas28/business-connect-v2/internal/password"
	"github.com/cosmas28/business-connect-v2/internal/repository"
)

// EnsureAdmin creates a default admin account for dev/e2e if missing. It is
// a no-op when ADMIN_EMAIL is not configured.
func EnsureAdmin(lc fx.Lifecycle, cfg config.Config, users repository.UserRepository, node *snowflake.Node, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureAdmin(ctx, cfg, users, node, logger)
		},
	})
}

func ensureAdmin(ctx context.Context, cfg config.Config, users repository.UserRepository, node *snowflake.Node, logger *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return nil
	}
	if strings.TrimSpace(cfg.AdminPassword) == "" {
		return fmt.Errorf("admin bootstrap: ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}

	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}

	hashed, err := password.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}

	user := domain.User{
		ID:           node.Generate().Int64(),
		Email:        email,
		Username:     "admin",
		FirstName:    "Admin",
		LastName:     "User",
		PasswordHash: hashed,
	}

	created, err := users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("bootstrap create user: %w", err)
	}

	if logger != nil {
		logger.Info("bootstrap admin user created",
			zap.String("email", created.Email),
			zap.Int64("user_id", created.ID),
		)
	}
	return nil
}
