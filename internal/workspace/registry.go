package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/invoicenexus/internal/clock"
	"github.com/smallbiznis/invoicenexus/internal/config"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Workspace is a bound session: its store and its notification inbox.
type Workspace struct {
	*Store
	Inbox *Inbox

	expiresAt time.Time
}

type liveGauge interface {
	SetLiveWorkspaces(n int)
}

type RegistryParams struct {
	fx.In

	Gateway  gateway.Gateway
	Recorder Recorder `optional:"true"`
	Clock    clock.Clock
	Log      *zap.Logger
	Config   config.Config
}

// Registry maps session keys to their workspaces.
type Registry struct {
	gw        gateway.Gateway
	recorder  Recorder
	clock     clock.Clock
	log       *zap.Logger
	inboxSize int

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewRegistry(p RegistryParams) *Registry {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		gw:         p.Gateway,
		recorder:   p.Recorder,
		clock:      p.Clock,
		log:        log,
		inboxSize:  p.Config.NotificationInboxSize,
		workspaces: map[string]*Workspace{},
	}
}

// Bind forwards state to the workspace of key, creating it on the first present
// state. An absent state releases the workspace.
func (r *Registry) Bind(ctx context.Context, key string, state SessionState) (*Workspace, error) {
	if !state.Present {
		r.Release(ctx, key)
		return nil, ErrNoSession
	}

	r.mu.Lock()
	ws, ok := r.workspaces[key]
	if !ok {
		sessionLog := r.log.With(zap.String("user_id", userID(state)))
		inbox := NewInbox(r.inboxSize, sessionLog.Named("notifications"))
		ws = &Workspace{
			Store: New(Params{
				Gateway:  r.gw,
				Notifier: inbox,
				Recorder: r.recorder,
				Clock:    r.clock,
				Log:      sessionLog,
			}),
			Inbox: inbox,
		}
		r.workspaces[key] = ws
	}
	ws.expiresAt = state.ExpiresAt
	live := len(r.workspaces)
	r.mu.Unlock()

	if !ok {
		r.reportLive(live)
	}
	// A failed refresh is already in the inbox; the workspace stays usable.
	if err := ws.SetSession(ctx, state); err != nil {
		r.log.Warn("workspace refresh failed", zap.Error(err))
	}
	return ws, nil
}

// Release tears the workspace of key down and forgets it.
func (r *Registry) Release(ctx context.Context, key string) {
	r.mu.Lock()
	ws, ok := r.workspaces[key]
	delete(r.workspaces, key)
	live := len(r.workspaces)
	r.mu.Unlock()

	if !ok {
		return
	}
	_ = ws.SetSession(ctx, SessionState{})
	r.reportLive(live)
}

// Sweep releases every workspace whose session expired at or before now and
// returns how many were released.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	var expired []string
	for key, ws := range r.workspaces {
		if !ws.expiresAt.IsZero() && !now.Before(ws.expiresAt) {
			expired = append(expired, key)
		}
	}
	r.mu.Unlock()

	for _, key := range expired {
		r.Release(ctx, key)
	}
	if len(expired) > 0 {
		r.log.Info("expired workspaces released", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// SweepEvery runs Sweep on every tick until ctx is done.
func (r *Registry) SweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx, r.clock.Now())
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

func (r *Registry) reportLive(n int) {
	if g, ok := r.recorder.(liveGauge); ok {
		g.SetLiveWorkspaces(n)
	}
}
