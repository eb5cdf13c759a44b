package notify

import (
	"context"

	"github.com/smallbiznis/scrollvite/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notify",
	fx.Provide(provideNotifier),
	fx.Provide(func(lc fx.Lifecycle, n Notifier, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
		d := NewDispatcher(n, defaultTimeout, m, log)
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				done := make(chan struct{})
				go func() {
					d.Wait()
					close(done)
				}()
				select {
				case <-done:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		})
		return d
	}),
)
