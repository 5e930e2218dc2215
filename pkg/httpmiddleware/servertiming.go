package httpmiddleware

import (
	"context"
	"net/http"

	servertiming "github.com/mitchellh/go-server-timing"
)

// ServerTiming collects metrics started with StartTiming into the
// Server-Timing response header.
func ServerTiming() Middleware {
	return func(next http.Handler) http.Handler {
		return servertiming.Middleware(next, nil)
	}
}

// TimingMetric is a running Server-Timing metric.
type TimingMetric struct {
	metric *servertiming.Metric
}

// Stop ends the metric. It is a no-op on a nil or disabled metric.
func (m *TimingMetric) Stop() {
	if m != nil && m.metric != nil {
		m.metric.Stop()
	}
}

// StartTiming starts the named metric. Outside ServerTiming it returns a
// no-op metric.
func StartTiming(ctx context.Context, name string) *TimingMetric {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return &TimingMetric{}
	}
	return &TimingMetric{metric: timing.NewMetric(name).Start()}
}
