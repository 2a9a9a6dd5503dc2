package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sehxxnee/botbuilder/pkg/resilience"
)

// BreakerGateway wraps a Gateway with a circuit breaker. While the circuit
// is open it reports the service as unavailable via an empty vector instead
// of hammering the endpoint.
type BreakerGateway struct {
	inner   Gateway
	breaker *resilience.CircuitBreaker
	latency prometheus.Histogram
}

var _ Gateway = (*BreakerGateway)(nil)

// NewBreaker wraps inner. stateGauge and latency may be nil.
func NewBreaker(inner Gateway, stateGauge prometheus.Gauge, latency prometheus.Histogram) *BreakerGateway {
	cfg := resilience.CircuitBreakerConfig{
		FailureThreshold:    5,
		ResetTimeout:        30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
	if stateGauge != nil {
		cfg.OnStateChange = func(s resilience.State) {
			stateGauge.Set(float64(s))
		}
	}
	return &BreakerGateway{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker("embedding", cfg),
		latency: latency,
	}
}

func (g *BreakerGateway) Dimension() int {
	return g.inner.Dimension()
}

func (g *BreakerGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	start := time.Now()
	err := g.breaker.Execute(func() error {
		var embedErr error
		vec, embedErr = g.inner.Embed(ctx, text)
		return embedErr
	})
	if g.latency != nil {
		g.latency.Observe(time.Since(start).Seconds())
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return vec, nil
}
