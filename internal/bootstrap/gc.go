package bootstrap

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/cosmas28/business-connect-v2/internal/repository"
)

const gcInterval = time.Hour

// SweepRevokedTokens periodically deletes revocation records whose tokens
// have passed their natural expiry. Correctness does not depend on the
// sweep; expired tokens fail verification before the registry is consulted.
func SweepRevokedTokens(lc fx.Lifecycle, registry repository.RevocationRegistry, logger *zap.Logger) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				defer close(done)
				ticker := time.NewTicker(gcInterval)
				defer ticker.Stop()
				for {
					select {
					case <-runCtx.Done():
						return
					case <-ticker.C:
						deleted, err := registry.DeleteExpired(runCtx, time.Now().UTC())
						if err != nil {
							logger.Warn("revoked token sweep failed", zap.Error(err))
							continue
						}
						if deleted > 0 {
							logger.Info("revoked token sweep", zap.Int64("deleted", deleted))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
