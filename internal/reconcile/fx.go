package reconcile

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/invoicenexus/internal/config"
	"github.com/smallbiznis/invoicenexus/internal/observability/metrics"
)

var Module = fx.Module("reconcile",
	fx.Provide(func(m *metrics.WorkspaceMetrics) Observer { return m }),
	fx.Provide(New),
)

// Scheduled runs the job in the background while the app is up.
var Scheduled = fx.Invoke(Schedule)

func Schedule(lc fx.Lifecycle, cfg config.Config, job *Job, log *zap.Logger) {
	if cfg.ReconcileInterval <= 0 {
		log.Info("reconcile loop disabled")
		return
	}

	var cancel context.CancelFunc
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				job.RunEvery(ctx, cfg.ReconcileInterval)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
