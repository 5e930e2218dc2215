package book

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SourceKind identifies the schema a record arrived in.
type SourceKind int

const (
	// SourceRemote records come from the catalog service and need parsing.
	SourceRemote SourceKind = iota
	// SourceSeed records come from the built-in collection and are canonical.
	SourceSeed
)

func (k SourceKind) String() string {
	switch k {
	case SourceRemote:
		return "remote"
	case SourceSeed:
		return "seed"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// DefaultDescription is used when a remote record has no description.
const DefaultDescription = "Kitob haqida ma'lumot"

// DefaultIcon is the placeholder glyph for remote records without a cover.
const DefaultIcon = "📚"

// markup is the synthetic factor applied to price when a remote record has no
// discount price. It only feeds the discount badge.
var markup = decimal.RequireFromString("1.2")

// Record is a source record the Normalizer knows how to map into a Book.
// It is implemented by RawBook (remote schema) and Book (seed schema).
type Record interface {
	Kind() SourceKind
}

// Kind reports SourceSeed: a Book is already canonical.
func (b Book) Kind() SourceKind { return SourceSeed }

// RawBook is a catalog record in the remote service schema. Numeric fields
// arrive as text. An ID of zero means the field was absent.
type RawBook struct {
	ID            int64
	Title         string
	AuthorName    string
	CategorySlug  string
	Price         string
	DiscountPrice string
	Rating        string
	ReviewCount   int
	CoverImage    string
	Description   string
}

// Kind reports SourceRemote.
func (RawBook) Kind() SourceKind { return SourceRemote }

// MalformedRecordError reports a record dropped during normalization.
type MalformedRecordError struct {
	ID     int64
	Source SourceKind
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record %d: %s %s", e.Source, e.ID, e.Field, e.Reason)
}

// Normalizer maps heterogeneous source records into canonical books.
type Normalizer struct {
	// MediaBaseURL is prepended to relative cover image paths.
	MediaBaseURL string
}

// NewNormalizer returns a Normalizer resolving cover images against mediaBaseURL.
func NewNormalizer(mediaBaseURL string) *Normalizer {
	return &Normalizer{MediaBaseURL: mediaBaseURL}
}

// Normalize converts r into a Book. Records missing id, title, or price are
// rejected with a *MalformedRecordError.
func (n *Normalizer) Normalize(r Record) (Book, error) {
	switch rec := r.(type) {
	case RawBook:
		return n.normalizeRemote(rec)
	case *RawBook:
		return n.normalizeRemote(*rec)
	case Book:
		return normalizeSeed(rec)
	case *Book:
		return normalizeSeed(*rec)
	default:
		return Book{}, &MalformedRecordError{Field: "record", Reason: fmt.Sprintf("unsupported type %T", r)}
	}
}

// NormalizeAll normalizes every record, dropping malformed ones. The returned
// errors describe each dropped record in input order.
func (n *Normalizer) NormalizeAll(records []Record) ([]Book, []error) {
	books := make([]Book, 0, len(records))
	var dropped []error
	for _, r := range records {
		b, err := n.Normalize(r)
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		books = append(books, b)
	}
	return books, dropped
}

// NormalizeRemote is NormalizeAll for a page of remote records.
func (n *Normalizer) NormalizeRemote(raws []RawBook) ([]Book, []error) {
	records := make([]Record, len(raws))
	for i, r := range raws {
		records[i] = r
	}
	return n.NormalizeAll(records)
}

func (n *Normalizer) normalizeRemote(r RawBook) (Book, error) {
	malformed := func(field, reason string) error {
		return &MalformedRecordError{ID: r.ID, Source: SourceRemote, Field: field, Reason: reason}
	}
	if r.ID <= 0 {
		return Book{}, malformed("id", "missing")
	}
	if strings.TrimSpace(r.Title) == "" {
		return Book{}, malformed("title", "missing")
	}
	if strings.TrimSpace(r.Price) == "" {
		return Book{}, malformed("price", "missing")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return Book{}, malformed("price", "not a decimal")
	}
	if price.IsNegative() {
		return Book{}, malformed("price", "negative")
	}

	original := price.Mul(markup)
	if s := strings.TrimSpace(r.DiscountPrice); s != "" {
		if d, err := decimal.NewFromString(s); err == nil {
			original = d
		}
	}

	desc := r.Description
	if strings.TrimSpace(desc) == "" {
		desc = DefaultDescription
	}

	return Book{
		ID:            r.ID,
		Title:         r.Title,
		Author:        r.AuthorName,
		Category:      r.CategorySlug,
		Price:         price,
		OriginalPrice: original,
		Rating:        parseRating(r.Rating),
		RatingCount:   max(r.ReviewCount, 0),
		CoverImageURL: n.coverURL(r.CoverImage),
		Icon:          DefaultIcon,
		Description:   desc,
	}, nil
}

func normalizeSeed(b Book) (Book, error) {
	switch {
	case b.ID <= 0:
		return Book{}, &MalformedRecordError{ID: b.ID, Source: SourceSeed, Field: "id", Reason: "missing"}
	case strings.TrimSpace(b.Title) == "":
		return Book{}, &MalformedRecordError{ID: b.ID, Source: SourceSeed, Field: "title", Reason: "missing"}
	case b.Price.IsNegative():
		return Book{}, &MalformedRecordError{ID: b.ID, Source: SourceSeed, Field: "price", Reason: "negative"}
	}
	return b, nil
}

// parseRating parses a text rating, clamping it to [0, 5]. Unparseable
// ratings become 0.
func parseRating(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return min(max(v, 0), 5)
}

func (n *Normalizer) coverURL(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if n.MediaBaseURL == "" {
		return p
	}
	return strings.TrimRight(n.MediaBaseURL, "/") + "/" + strings.TrimLeft(p, "/")
}
