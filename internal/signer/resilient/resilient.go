// Package resilient wraps a signing gateway with a circuit breaker so a
// struggling wallet agent fails fast instead of holding every issuance
// request open until its timeout.
package resilient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"skillchain/internal/signer"
	dErrors "skillchain/pkg/domain-errors"
	"skillchain/pkg/platform/circuit"
)

const defaultProbeInterval = 30 * time.Second

// Gateway decorates a signer.Gateway with a circuit breaker. While the
// circuit is open, calls fail fast with CodeSignerUnavailable; one probe per
// probe interval is let through so consecutive successes can close the
// circuit again. Rejections by the wallet operator are deliberate answers,
// not agent failures, and do not trip the circuit.
type Gateway struct {
	inner   signer.Gateway
	breaker *circuit.Breaker
	logger  *slog.Logger

	probeInterval time.Duration
	mu            sync.Mutex
	lastProbe     time.Time
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithBreaker overrides the default breaker thresholds.
func WithBreaker(b *circuit.Breaker) Option {
	return func(g *Gateway) {
		g.breaker = b
	}
}

// WithProbeInterval sets how often an open circuit lets a probe through.
func WithProbeInterval(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.probeInterval = d
		}
	}
}

// New wraps the given gateway.
func New(inner signer.Gateway, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		inner:         inner,
		breaker:       circuit.New("signer-gateway"),
		logger:        logger,
		probeInterval: defaultProbeInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect delegates to the wrapped gateway under the circuit breaker.
func (g *Gateway) Connect(ctx context.Context) (signer.WalletInfo, error) {
	if !g.admit() {
		return signer.WalletInfo{}, dErrors.New(dErrors.CodeSignerUnavailable, "signing agent circuit open")
	}
	info, err := g.inner.Connect(ctx)
	g.record(err)
	return info, err
}

// Sign delegates to the wrapped gateway under the circuit breaker.
func (g *Gateway) Sign(ctx context.Context, payload []byte, identity string) (string, error) {
	if !g.admit() {
		return "", dErrors.New(dErrors.CodeSignerUnavailable, "signing agent circuit open")
	}
	signature, err := g.inner.Sign(ctx, payload, identity)
	g.record(err)
	return signature, err
}

// admit reports whether a call may proceed. An open circuit admits one
// probe per probe interval.
func (g *Gateway) admit() bool {
	if !g.breaker.IsOpen() {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if time.Since(g.lastProbe) < g.probeInterval {
		return false
	}
	g.lastProbe = time.Now()
	return true
}

func (g *Gateway) record(err error) {
	if err == nil {
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.logger.Info("signer circuit closed", "breaker", g.breaker.Name())
		}
		return
	}
	if dErrors.HasCode(err, dErrors.CodeSignerRejected) {
		return
	}
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.logger.Warn("signer circuit opened", "breaker", g.breaker.Name())
	}
}
