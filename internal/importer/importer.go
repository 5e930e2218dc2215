// Package importer loads gzip-compressed JSON-lines catalog exports into a
// book store.
//
// Exports overlap: the same book id may appear in several files. Import runs
// three passes. Pass 1 builds a bloom filter of the ids in every file. Pass 2
// writes each record whose id no other filter reports and sets aside the ids
// that may be shared. Pass 3 re-reads the files holding shared ids and writes
// each of them once, from the last file that contains it.
package importer

import (
	"bufio"
	"context"
	"math/bits"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/booknest/internal/client/booknest"
	"github.com/xenking/booknest/internal/domain/book"
)

// MaxFiles is the number of files one Import call accepts.
const MaxFiles = 64

const (
	defaultBatchSize     = 500
	defaultExpectedBooks = 1_000_000
	bloomFPR             = 0.001
	progressEvery        = 100_000
	maxLineSize          = 1 << 20
)

// Options configures an Importer.
type Options struct {
	// BatchSize is the number of books written per store call.
	BatchSize int
	// ExpectedBooks sizes the per-file bloom filters.
	ExpectedBooks uint
	Logger        *zap.Logger
}

func (o *Options) setDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.ExpectedBooks == 0 {
		o.ExpectedBooks = defaultExpectedBooks
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Stats summarizes an import.
type Stats struct {
	Read       int64
	Malformed  int64
	Duplicates int64
	Written    int64
}

type counters struct {
	read       atomic.Int64
	malformed  atomic.Int64
	duplicates atomic.Int64
	written    atomic.Int64
}

func (c *counters) stats() Stats {
	return Stats{
		Read:       c.read.Load(),
		Malformed:  c.malformed.Load(),
		Duplicates: c.duplicates.Load(),
		Written:    c.written.Load(),
	}
}

// Importer writes normalized export records into a book.Store.
type Importer struct {
	store      book.Store
	normalizer *book.Normalizer
	opts       Options
	lg         *zap.Logger
}

// New creates an Importer.
func New(store book.Store, normalizer *book.Normalizer, opts Options) *Importer {
	opts.setDefaults()
	return &Importer{
		store:      store,
		normalizer: normalizer,
		opts:       opts,
		lg:         opts.Logger,
	}
}

// Import loads files into the store. An id found in several files is written
// from the last of them; within one file the last line wins. Lines that do
// not decode or normalize are counted as malformed and skipped.
func (im *Importer) Import(ctx context.Context, files []string) (Stats, error) {
	var c counters
	if len(files) == 0 {
		return c.stats(), errors.New("no input files")
	}
	if len(files) > MaxFiles {
		return c.stats(), errors.Errorf("too many input files: %d > %d", len(files), MaxFiles)
	}

	im.lg.Info("Pass 1: building bloom filters", zap.Int("files", len(files)))
	filters, err := im.buildFilters(ctx, files)
	if err != nil {
		return c.stats(), errors.Wrap(err, "build bloom filters")
	}

	im.lg.Info("Pass 2: writing unique records")
	masks, err := im.writeUnique(ctx, files, filters, &c)
	if err != nil {
		return c.stats(), errors.Wrap(err, "write unique records")
	}

	owners := ownersOf(masks)
	im.lg.Info("Pass 3: writing shared records", zap.Int("shared", len(owners)))
	if err := im.writeShared(ctx, files, owners, &c); err != nil {
		return c.stats(), errors.Wrap(err, "write shared records")
	}

	stats := c.stats()
	im.lg.Info("Import complete",
		zap.Int64("read", stats.Read),
		zap.Int64("malformed", stats.Malformed),
		zap.Int64("duplicates", stats.Duplicates),
		zap.Int64("written", stats.Written),
	)
	return stats, nil
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (im *Importer) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.opts.ExpectedBooks, bloomFPR)
			var n int
			if err := streamFile(ctx, path, func(line []byte) error {
				raw, err := booknest.DecodeBook(line)
				if err != nil || raw.ID <= 0 {
					return nil
				}
				filter.AddString(idKey(raw.ID))
				n++
				return nil
			}); err != nil {
				return errors.Wrapf(err, "file %d", i+1)
			}
			im.lg.Debug("Pass 1 file done", zap.String("file", path), zap.Int("ids", n))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// writeUnique writes records no other file may contain. For every id that
// may be shared it returns the bitmask of files that hold it.
func (im *Importer) writeUnique(
	ctx context.Context,
	files []string,
	filters []*bloom.BloomFilter,
	c *counters,
) (map[int64]uint64, error) {
	candidates := make([]map[int64]uint64, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			own := make(map[int64]uint64)
			bit := uint64(1) << uint(i)
			w := im.newWriter(ctx, c)

			err := im.streamBooks(ctx, path, c, true, func(b book.Book) error {
				key := idKey(b.ID)
				for j, f := range filters {
					if j != i && f.TestString(key) {
						own[b.ID] |= bit
						return nil
					}
				}
				return w.add(b)
			})
			if err == nil {
				err = w.flush()
			}
			if err != nil {
				return errors.Wrapf(err, "file %d", i+1)
			}
			candidates[i] = own
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[int64]uint64)
	for _, own := range candidates {
		for id, mask := range own {
			merged[id] |= mask
		}
	}
	return merged, nil
}

// ownersOf maps each possibly shared id to the index of the last file that
// really contains it. Bloom false positives leave a single bit set, so the id
// stays with its only file.
func ownersOf(masks map[int64]uint64) map[int64]int {
	owners := make(map[int64]int, len(masks))
	for id, mask := range masks {
		owners[id] = bits.Len64(mask) - 1
	}
	return owners
}

func (im *Importer) writeShared(ctx context.Context, files []string, owners map[int64]int, c *counters) error {
	if len(owners) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			w := im.newWriter(ctx, c)
			err := im.streamBooks(ctx, path, c, false, func(b book.Book) error {
				owner, shared := owners[b.ID]
				switch {
				case !shared:
					return nil
				case owner != i:
					c.duplicates.Add(1)
					return nil
				}
				return w.add(b)
			})
			if err == nil {
				err = w.flush()
			}
			return errors.Wrapf(err, "file %d", i+1)
		})
	}
	return g.Wait()
}

// streamBooks decodes and normalizes every line of path. Counting is done in
// one pass only so rereads do not inflate the stats.
func (im *Importer) streamBooks(ctx context.Context, path string, c *counters, count bool, fn func(book.Book) error) error {
	return streamFile(ctx, path, func(line []byte) error {
		if count {
			if n := c.read.Add(1); n%progressEvery == 0 {
				im.lg.Info("Progress", zap.Int64("read", n))
			}
		}
		raw, err := booknest.DecodeBook(line)
		if err != nil {
			if count {
				c.malformed.Add(1)
				im.lg.Debug("Undecodable line", zap.String("file", path), zap.Error(err))
			}
			return nil
		}
		b, err := im.normalizer.Normalize(raw)
		if err != nil {
			if count {
				c.malformed.Add(1)
				im.lg.Debug("Malformed record", zap.String("file", path), zap.Error(err))
			}
			return nil
		}
		return fn(b)
	})
}

type writer struct {
	ctx   context.Context
	store book.Store
	size  int
	batch []book.Book
	c     *counters
}

func (im *Importer) newWriter(ctx context.Context, c *counters) *writer {
	return &writer{
		ctx:   ctx,
		store: im.store,
		size:  im.opts.BatchSize,
		batch: make([]book.Book, 0, im.opts.BatchSize),
		c:     c,
	}
}

func (w *writer) add(b book.Book) error {
	w.batch = append(w.batch, b)
	if len(w.batch) >= w.size {
		return w.flush()
	}
	return nil
}

func (w *writer) flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	if err := w.store.Upsert(w.ctx, w.batch); err != nil {
		return errors.Wrap(err, "upsert batch")
	}
	w.c.written.Add(int64(len(w.batch)))
	w.batch = make([]book.Book, 0, w.size)
	return nil
}

// streamFile opens a gzip-compressed file and calls fn for each non-empty
// line. The line is only valid during the call.
func streamFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
