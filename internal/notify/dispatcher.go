package notify

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/scrollvite/internal/observability/metrics"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Dispatcher delivers notifications in the background. Failures are logged
// and counted; callers never see them.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, timeout time.Duration, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		notifier: notifier,
		timeout:  timeout,
		log:      log.Named("notify.dispatcher"),
		metrics:  m,
	}
}

func (d *Dispatcher) PurchaseCompleted(ctx context.Context, n PurchaseNotification) {
	if d == nil || d.notifier == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification panicked", zap.Any("panic", r), zap.String("order_id", n.OrderID))
				d.metrics.RecordNotificationFailed(context.Background(), "email")
			}
		}()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.notifier.PurchaseCompleted(sendCtx, n); err != nil {
			d.log.Warn("purchase notification failed",
				zap.String("order_id", n.OrderID),
				zap.Error(err),
			)
			d.metrics.RecordNotificationFailed(sendCtx, "email")
			return
		}
		d.log.Info("purchase notification sent", zap.String("order_id", n.OrderID))
	}()
}

// Wait blocks until in-flight notifications finish.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
