package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/evocart/pkg/logging"
)

func TestSweepOnce_CancelsOnlyStalePending(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.fill(t, 1)
	f.svc.Now = func() time.Time { return time.Now().Add(-72 * time.Hour) }
	stale, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)

	f.fill(t, 2)
	f.svc.Now = nil
	fresh, err := f.svc.BeginCheckout(ctx, 2)
	require.NoError(t, err)

	w := &Sweeper{Svc: f.svc, TTL: 48 * time.Hour, Interval: time.Minute, Log: logging.Discard()}
	assert.Equal(t, 1, w.SweepOnce(ctx))
	assert.Equal(t, 0, w.SweepOnce(ctx))

	got, err := f.svc.Repo.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCancelled), got.Status)

	got, err = f.svc.Repo.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusPendingPayment), got.Status)

	// The cart survives, so the next checkout starts a new order.
	next, err := f.svc.BeginCheckout(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, next.ID)
	assert.Contains(t, f.pub.seen(), "order_expired")
}

func TestSweeperRun_DisabledAndStops(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	l := logging.Discard()

	done := make(chan struct{})
	go func() {
		(&Sweeper{Svc: f.svc, TTL: 0, Interval: time.Minute, Log: l}).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper should return immediately")
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		(&Sweeper{Svc: f.svc, TTL: time.Hour, Interval: 5 * time.Millisecond, Log: l}).Run(ctx)
		close(stopped)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
