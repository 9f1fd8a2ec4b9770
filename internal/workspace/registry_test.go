package workspace

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/smallbiznis/invoicenexus/internal/clock"
	"github.com/smallbiznis/invoicenexus/internal/config"
	"github.com/smallbiznis/invoicenexus/internal/gateway/gatewaytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	ops  map[string]int
	live int
}

func (f *fakeRecorder) ObserveOperation(operation, outcome string, _ time.Duration) {
	f.ops[operation+":"+outcome]++
}

func (f *fakeRecorder) SetLiveWorkspaces(n int) { f.live = n }

func TestRegistryBindAndRelease(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	rec := &fakeRecorder{ops: map[string]int{}}
	reg := NewRegistry(RegistryParams{
		Gateway:  gw,
		Recorder: rec,
		Clock:    clock.NewFakeClock(gatewaytest.Epoch),
		Config:   config.Config{NotificationInboxSize: 5},
	})
	ctx := context.Background()

	ws, err := reg.Bind(ctx, "sid-1", presentSession())
	require.NoError(t, err)
	_, err = ws.AddEmployee(ctx, jane())
	require.NoError(t, err)

	again, err := reg.Bind(ctx, "sid-1", presentSession())
	require.NoError(t, err)
	assert.Same(t, ws, again)
	assert.Len(t, again.Employees(), 1)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, rec.live)
	assert.Equal(t, 1, rec.ops["refresh:success"])
	assert.Equal(t, 1, rec.ops["add_employee:success"])
	assert.Equal(t, 1, ws.Inbox.Len())

	other, err := reg.Bind(ctx, "sid-2", presentSession())
	require.NoError(t, err)
	assert.NotSame(t, ws, other)
	assert.Len(t, other.Employees(), 1)

	reg.Release(ctx, "sid-1")
	assert.Empty(t, ws.Employees())
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Bind(ctx, "sid-2", SessionState{})
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, reg.Len())
	assert.Zero(t, rec.live)
}

func TestRegistrySweepReleasesExpiredSessions(t *testing.T) {
	gw, _ := gatewaytest.NewGateway(t)
	fake := clock.NewFakeClock(gatewaytest.Epoch)
	rec := &fakeRecorder{ops: map[string]int{}}
	reg := NewRegistry(RegistryParams{
		Gateway:  gw,
		Recorder: rec,
		Clock:    fake,
		Config:   config.Config{NotificationInboxSize: 5},
	})
	ctx := context.Background()

	short := presentSession()
	short.ExpiresAt = fake.Now().Add(time.Hour)
	expiring, err := reg.Bind(ctx, "sid-short", short)
	require.NoError(t, err)
	_, err = expiring.AddEmployee(ctx, jane())
	require.NoError(t, err)

	long := presentSession()
	long.ExpiresAt = fake.Now().Add(7 * 24 * time.Hour)
	_, err = reg.Bind(ctx, "sid-long", long)
	require.NoError(t, err)

	_, err = reg.Bind(ctx, "sid-forever", presentSession())
	require.NoError(t, err)

	assert.Zero(t, reg.Sweep(ctx, fake.Now()))
	assert.Equal(t, 3, reg.Len())

	fake.Advance(time.Hour)
	assert.Equal(t, 1, reg.Sweep(ctx, fake.Now()))
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 2, rec.live)
	assert.Empty(t, expiring.Employees())
	assert.False(t, expiring.Session().Present)

	fake.Advance(7 * 24 * time.Hour)
	assert.Equal(t, 1, reg.Sweep(ctx, fake.Now()))
	assert.Equal(t, 1, reg.Len())
}

func TestInboxKeepsNewest(t *testing.T) {
	inbox := NewInbox(3, nil)
	for i := 0; i < 5; i++ {
		inbox.Notify(context.Background(), Notification{ID: fmt.Sprint(i)})
	}

	got := inbox.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "4", got[2].ID)
	assert.Empty(t, inbox.Drain())
}
