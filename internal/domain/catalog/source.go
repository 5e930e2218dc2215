// Package catalog acquires the book collection and derives views over it.
package catalog

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/booknest/internal/domain/book"
)

// Orderings understood by remote sources.
const (
	OrderByRatingDesc = "-rating"
)

// ErrNoMorePages is returned by LoadPage when there is no page to fetch.
var ErrNoMorePages = errors.New("no more pages")

// Query selects a page of the remote catalog. The zero value requests the
// default first page.
type Query struct {
	// PageToken is the opaque token of a previously returned page.
	PageToken string
	Ordering  string
	PageSize  int
}

// RemotePage is a single page of raw records returned by a Source.
type RemotePage struct {
	Records []book.RawBook
	// Malformed describes records the source could not decode. They are
	// dropped like records that fail normalization.
	Malformed []error
	// NextPageToken is empty on the last page.
	NextPageToken string
}

// Source reads raw catalog records from the remote catalog service.
type Source interface {
	FetchBooks(ctx context.Context, q Query) (*RemotePage, error)
}

// TransportError wraps any failure to obtain a page from a Source: an
// unreachable service, a non-success status, or an undecodable body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("catalog transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
