package booknest

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/booknest/internal/domain/book"
)

// BookList is a page-number paginated book list response.
type BookList struct {
	Count    int
	Next     string
	Previous string
	Results  []book.RawBook
	// Malformed holds a *book.MalformedRecordError for every result that
	// is valid JSON but does not decode as a book.
	Malformed []error
}

// DecodeBookList decodes a {count, next, previous, results} response body.
// Unknown fields are skipped. A result with badly typed fields is reported in
// Malformed and the rest of the page is kept; only a body that is not valid
// JSON fails the whole list.
func DecodeBookList(data []byte) (*BookList, error) {
	var list BookList
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "count":
			n, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "count")
			}
			list.Count = n
		case "next":
			s, err := optString(d)
			if err != nil {
				return errors.Wrap(err, "next")
			}
			list.Next = s
		case "previous":
			s, err := optString(d)
			if err != nil {
				return errors.Wrap(err, "previous")
			}
			list.Previous = s
		case "results":
			if err := d.Arr(func(d *jx.Decoder) error {
				raw, err := d.Raw()
				if err != nil {
					return err
				}
				b, err := decodeRawBook(jx.DecodeBytes(raw))
				if err != nil {
					list.Malformed = append(list.Malformed, &book.MalformedRecordError{
						ID:     b.ID,
						Source: book.SourceRemote,
						Field:  "record",
						Reason: err.Error(),
					})
					return nil
				}
				list.Results = append(list.Results, b)
				return nil
			}); err != nil {
				return errors.Wrap(err, "results")
			}
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &list, nil
}

// DecodeBook decodes a single book object, e.g. one line of a JSON-lines
// catalog export.
func DecodeBook(data []byte) (book.RawBook, error) {
	return decodeRawBook(jx.DecodeBytes(data))
}

func decodeRawBook(d *jx.Decoder) (book.RawBook, error) {
	var b book.RawBook
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			if d.Next() == jx.Null {
				return d.Null()
			}
			b.ID, err = d.Int64()
		case "title":
			b.Title, err = optString(d)
		case "author":
			b.AuthorName, err = nestedString(d, "name")
		case "category":
			b.CategorySlug, err = nestedString(d, "slug")
		case "price":
			b.Price, err = numericText(d)
		case "discount_price":
			b.DiscountPrice, err = numericText(d)
		case "rating":
			b.Rating, err = numericText(d)
		case "review_count":
			if d.Next() == jx.Null {
				return d.Null()
			}
			b.ReviewCount, err = d.Int()
		case "cover_image":
			b.CoverImage, err = optString(d)
		case "description":
			b.Description, err = optString(d)
		default:
			return d.Skip()
		}
		return errors.Wrap(err, key)
	})
	return b, err
}

// optString reads a string or null.
func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// numericText reads a decimal sent as a string, a JSON number, or null, and
// returns its text.
func numericText(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return d.Str()
	}
}

// nestedString reads field from an object such as {"name": "..."}. A plain
// string is accepted as the value itself.
func nestedString(d *jx.Decoder, field string) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.String:
		return d.Str()
	}

	var out string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != field {
			return d.Skip()
		}
		s, err := optString(d)
		out = s
		return err
	})
	return out, err
}
