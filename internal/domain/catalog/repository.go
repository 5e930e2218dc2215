package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/booknest/internal/domain/book"
)

// Page is a normalized page of the catalog.
type Page struct {
	Books []book.Book
	// Next is the token of the following page, empty when there is none.
	Next string
	// Fallback is true when Books is the seed collection.
	Fallback bool
}

// Repository acquires the canonical book collection from a Source and
// substitutes the seed collection whenever the source cannot deliver.
type Repository struct {
	source     Source
	normalizer *book.Normalizer
	seed       func() []book.Book
	lg         *zap.Logger
	tracer     trace.Tracer

	fallbacks metric.Int64Counter
	dropped   metric.Int64Counter
}

// NewRepository creates a Repository reading from source.
func NewRepository(source Source, normalizer *book.Normalizer, opts ...Option) (*Repository, error) {
	o := buildOptions(opts)
	meter := o.meterProvider.Meter(instrumentationName)

	fallbacks, err := meter.Int64Counter("catalog.fallbacks",
		metric.WithDescription("Catalog loads served from the seed collection"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create fallbacks counter")
	}
	dropped, err := meter.Int64Counter("catalog.dropped_records",
		metric.WithDescription("Remote records dropped during normalization"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create dropped counter")
	}

	return &Repository{
		source:     source,
		normalizer: normalizer,
		seed:       o.seed,
		lg:         o.lg,
		tracer:     o.tracerProvider.Tracer(instrumentationName),
		fallbacks:  fallbacks,
		dropped:    dropped,
	}, nil
}

// Load reads the first page of the catalog in a single attempt. It never
// fails: on any transport failure, and when the source returns no usable
// records, the normalized seed collection is returned instead.
func (r *Repository) Load(ctx context.Context) Page {
	ctx, span := r.tracer.Start(ctx, "catalog.Load")
	defer span.End()

	books, next, err := r.fetch(ctx, Query{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback")
		return r.fallback(ctx, "transport failure", err)
	}
	if len(books) == 0 {
		return r.fallback(ctx, "empty catalog page", nil)
	}

	span.SetAttributes(attribute.Int("catalog.books", len(books)))
	return Page{Books: books, Next: next}
}

// LoadPage reads the page identified by token. Unlike Load it does not fall
// back: a failure yields an empty page and a *TransportError for the caller
// to report.
func (r *Repository) LoadPage(ctx context.Context, token string) (Page, error) {
	if token == "" {
		return Page{}, ErrNoMorePages
	}

	ctx, span := r.tracer.Start(ctx, "catalog.LoadPage")
	defer span.End()

	books, next, err := r.fetch(ctx, Query{PageToken: token})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load page")
		return Page{}, err
	}
	span.SetAttributes(attribute.Int("catalog.books", len(books)))
	return Page{Books: books, Next: next}, nil
}

// Ranked reads the first page of the remote catalog in the given ordering.
func (r *Repository) Ranked(ctx context.Context, ordering string, size int) ([]book.Book, error) {
	books, _, err := r.fetch(ctx, Query{Ordering: ordering, PageSize: size})
	return books, err
}

func (r *Repository) fetch(ctx context.Context, q Query) ([]book.Book, string, error) {
	if r.source == nil {
		return nil, "", &TransportError{Op: "fetch books", Err: errors.New("no source configured")}
	}

	page, err := r.source.FetchBooks(ctx, q)
	if err != nil {
		var tErr *TransportError
		if errors.As(err, &tErr) {
			return nil, "", err
		}
		return nil, "", &TransportError{Op: "fetch books", Err: err}
	}
	if page == nil {
		return nil, "", &TransportError{Op: "fetch books", Err: errors.New("nil page")}
	}

	books, invalid := r.normalizer.NormalizeRemote(page.Records)
	dropped := make([]error, 0, len(page.Malformed)+len(invalid))
	dropped = append(dropped, page.Malformed...)
	dropped = append(dropped, invalid...)
	if len(dropped) > 0 {
		r.dropped.Add(ctx, int64(len(dropped)))
		for _, d := range dropped {
			r.lg.Debug("Dropped malformed record", zap.Error(d))
		}
		r.lg.Warn("Dropped malformed catalog records",
			zap.Int("dropped", len(dropped)),
			zap.Int("kept", len(books)),
		)
	}
	return books, page.NextPageToken, nil
}

func (r *Repository) fallback(ctx context.Context, reason string, cause error) Page {
	r.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	r.lg.Warn("Serving seed catalog", zap.String("reason", reason), zap.Error(cause))

	books, _ := r.normalizer.NormalizeAll(seedRecords(r.seed()))
	return Page{Books: books, Fallback: true}
}

func seedRecords(books []book.Book) []book.Record {
	records := make([]book.Record, len(books))
	for i, b := range books {
		records[i] = b
	}
	return records
}
