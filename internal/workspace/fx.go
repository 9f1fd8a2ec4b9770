package workspace

import (
	"context"

	"github.com/smallbiznis/invoicenexus/internal/config"
	"github.com/smallbiznis/invoicenexus/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("workspace",
	fx.Provide(func(m *metrics.WorkspaceMetrics) Recorder { return m }),
	fx.Provide(NewRegistry),
	fx.Invoke(ScheduleSweep),
)

// ScheduleSweep releases workspaces of expired sessions in the background.
func ScheduleSweep(lc fx.Lifecycle, cfg config.Config, reg *Registry, log *zap.Logger) {
	if cfg.WorkspaceSweepInterval <= 0 {
		log.Info("workspace sweep disabled")
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
				reg.SweepEvery(ctx, cfg.WorkspaceSweepInterval)
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
