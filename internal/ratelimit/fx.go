package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/scrollvite/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewPublicInviteLimiter),
)

// NewPublicInviteLimiter shares buckets through Redis when a client is
// configured and falls back to per-process buckets otherwise.
func NewPublicInviteLimiter(lc fx.Lifecycle, cfg config.Config, client *redis.Client, log *zap.Logger) Limiter {
	if client != nil {
		return NewTokenBucket(client, cfg.PublicInviteRate, cfg.PublicInviteBurst)
	}

	limiter := NewMemoryLimiter(cfg.PublicInviteRate, cfg.PublicInviteBurst)
	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						limiter.Sweep()
					case <-stop:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			close(stop)
			return nil
		},
	})
	log.Named("ratelimit").Info("using in-process public invite limiter")
	return limiter
}
