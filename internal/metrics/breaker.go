package metrics

import "github.com/sonanterra/queueengine/internal/provider"

// BreakerObserver adapts provider.Breaker's state transitions onto
// ProviderBreakerState, satisfying provider.BreakerObserver without
// internal/provider importing internal/metrics.
type BreakerObserver struct{}

// NewBreakerObserver returns a provider.BreakerObserver backed by this
// package's Prometheus gauge.
func NewBreakerObserver() BreakerObserver { return BreakerObserver{} }

func (BreakerObserver) SetState(providerName string, state provider.BreakerState) {
	ProviderBreakerState.WithLabelValues(providerName).Set(float64(state))
}
