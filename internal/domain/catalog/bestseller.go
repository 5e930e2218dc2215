package catalog

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/booknest/internal/domain/book"
)

// RankedSource serves a remote ranked query. *Repository implements it.
type RankedSource interface {
	Ranked(ctx context.Context, ordering string, size int) ([]book.Book, error)
}

// Ranker derives the top-rated books, preferring the remote ranked query and
// falling back to ranking the local collection.
type Ranker struct {
	remote RankedSource
	local  func() []book.Book
	seed   func() []book.Book
	lg     *zap.Logger
	tracer trace.Tracer
}

// NewRanker creates a Ranker. local returns the currently loaded collection;
// when it is nil or returns nothing, the seed collection is ranked instead.
func NewRanker(remote RankedSource, local func() []book.Book, opts ...Option) *Ranker {
	o := buildOptions(opts)
	return &Ranker{
		remote: remote,
		local:  local,
		seed:   o.seed,
		lg:     o.lg,
		tracer: o.tracerProvider.Tracer(instrumentationName),
	}
}

// TopN returns at most n books ordered by rating, highest first, with ties
// kept in source order. It never pads the result.
func (r *Ranker) TopN(ctx context.Context, n int) []book.Book {
	if n <= 0 {
		return []book.Book{}
	}

	ctx, span := r.tracer.Start(ctx, "catalog.TopN")
	defer span.End()
	span.SetAttributes(attribute.Int("catalog.top_n", n))

	if r.remote != nil {
		books, err := r.remote.Ranked(ctx, OrderByRatingDesc, n)
		switch {
		case err != nil:
			span.RecordError(err)
			r.lg.Warn("Ranking bestsellers locally", zap.Error(err))
		case len(books) == 0:
			r.lg.Warn("Ranking bestsellers locally", zap.String("reason", "empty remote ranking"))
		default:
			return head(RankByRating(books), n)
		}
	}

	var pool []book.Book
	if r.local != nil {
		pool = r.local()
	}
	if len(pool) == 0 {
		pool = r.seed()
	}
	return head(RankByRating(pool), n)
}

func head(books []book.Book, n int) []book.Book {
	if len(books) > n {
		return books[:n]
	}
	return books
}
