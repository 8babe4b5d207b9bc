package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrostake/aic/internal/logger"
)

var pollerLogger = logger.GetForComponent("balance_poller")

// BalancePoller refreshes the gateway's native balance on a fixed interval
// and fans out changes to subscribers. It runs on its own goroutine and is
// never blocked by an in-flight submission.
type BalancePoller struct {
	gateway  SignerGateway
	interval time.Duration

	mu    sync.Mutex
	last  decimal.Decimal
	seen  bool
	subs  []func(decimal.Decimal)
	stop  chan struct{}
	done  chan struct{}
	begun bool
}

// NewBalancePoller wires a poller to the given gateway.
func NewBalancePoller(gw SignerGateway, interval time.Duration) *BalancePoller {
	return &BalancePoller{
		gateway:  gw,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Subscribe registers a callback invoked on every observed balance change.
// Callbacks run on the poller goroutine and must not block.
func (p *BalancePoller) Subscribe(fn func(decimal.Decimal)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// Start begins polling. Safe to call once.
func (p *BalancePoller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.begun {
		p.mu.Unlock()
		return
	}
	p.begun = true
	p.mu.Unlock()

	go p.loop(ctx)
}

// Stop halts polling and waits for the loop to exit.
func (p *BalancePoller) Stop() {
	close(p.stop)
	<-p.done
}

// RefreshNow fetches the balance immediately, outside the timer cadence. Used
// after state-changing operations so the debit shows up without waiting a full
// interval.
func (p *BalancePoller) RefreshNow(ctx context.Context) {
	p.poll(ctx)
}

func (p *BalancePoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Prime the first reading before the first tick.
	p.poll(ctx)

	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *BalancePoller) poll(ctx context.Context) {
	if !p.gateway.IsConnected() {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	balance, err := p.gateway.NativeBalance(fetchCtx)
	if err != nil {
		pollerLogger.Warn().Err(err).Msg("Balance refresh failed")
		return
	}

	p.mu.Lock()
	changed := !p.seen || !balance.Equal(p.last)
	p.last = balance
	p.seen = true
	subs := make([]func(decimal.Decimal), len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	if !changed {
		return
	}

	pollerLogger.Debug().Str("balance", balance.String()).Msg("Native balance changed")
	for _, fn := range subs {
		fn(balance)
	}
}
