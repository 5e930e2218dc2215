package catalog

import (
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/booknest/internal/domain/book"
)

const instrumentationName = "github.com/xenking/booknest/internal/domain/catalog"

// Option configures a Repository or Ranker.
type Option func(*options)

type options struct {
	lg             *zap.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	seed           func() []book.Book
}

func defaultOptions() options {
	return options{
		lg:             zap.NewNop(),
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
		seed:           book.Seed,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used to report fallbacks and dropped records.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) {
		if lg != nil {
			o.lg = lg
		}
	}
}

// WithMeterProvider sets the meter provider for fallback and drop counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// WithTracerProvider sets the tracer provider for remote read spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithSeed overrides the fallback collection.
func WithSeed(seed func() []book.Book) Option {
	return func(o *options) {
		if seed != nil {
			o.seed = seed
		}
	}
}
