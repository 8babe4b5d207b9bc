package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerPublishesChangesOnly(t *testing.T) {
	gw := NewSimGateway("agro1investor", dec("100"), 9)
	poller := NewBalancePoller(gw, time.Hour)

	var mu sync.Mutex
	var updates []decimal.Decimal
	poller.Subscribe(func(b decimal.Decimal) {
		mu.Lock()
		updates = append(updates, b)
		mu.Unlock()
	})

	ctx := context.Background()

	// First reading always publishes.
	poller.RefreshNow(ctx)
	// Unchanged balance publishes nothing.
	poller.RefreshNow(ctx)
	// A change publishes again.
	gw.SetBalance(dec("60"))
	poller.RefreshNow(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 2)
	assert.True(t, updates[0].Equal(dec("100")))
	assert.True(t, updates[1].Equal(dec("60")))
}

func TestPollerSkipsWhenDisconnected(t *testing.T) {
	gw := NewSimGateway("agro1investor", dec("100"), 9)
	require.NoError(t, gw.Disconnect())

	poller := NewBalancePoller(gw, time.Hour)
	var called bool
	poller.Subscribe(func(decimal.Decimal) { called = true })

	poller.RefreshNow(context.Background())
	assert.False(t, called)
}

func TestPollerLoopStops(t *testing.T) {
	gw := NewSimGateway("agro1investor", dec("100"), 9)
	poller := NewBalancePoller(gw, 10*time.Millisecond)

	done := make(chan decimal.Decimal, 1)
	poller.Subscribe(func(b decimal.Decimal) {
		select {
		case done <- b:
		default:
		}
	})

	poller.Start(context.Background())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller never published")
	}

	poller.Stop()
}
