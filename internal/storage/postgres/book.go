package postgres

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/booknest/internal/domain/book"
)

const (
	bookColumns = `id, title, author, category_slug, price, discount_price, rating,
		review_count, cover_image, icon, description`

	getBookByIDSQL = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	listCategoriesSQL = `SELECT slug, name FROM categories ORDER BY name, slug`

	upsertCategorySQL = `INSERT INTO categories (slug, name) VALUES ($1, $2)
		ON CONFLICT (slug) DO NOTHING`

	upsertBookSQL = `INSERT INTO books (` + bookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			category_slug = EXCLUDED.category_slug,
			price = EXCLUDED.price,
			discount_price = EXCLUDED.discount_price,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			cover_image = EXCLUDED.cover_image,
			icon = EXCLUDED.icon,
			description = EXCLUDED.description`
)

var orderClauses = map[string]string{
	book.OrderCreatedDesc: "created_at DESC, id DESC",
	book.OrderRatingDesc:  "rating DESC, id ASC",
	book.OrderRatingAsc:   "rating ASC, id ASC",
	book.OrderPriceAsc:    "price ASC, id ASC",
	book.OrderPriceDesc:   "price DESC, id ASC",
	book.OrderTitleAsc:    "title ASC, id ASC",
}

var _ book.Store = (*BookRepository)(nil)

// BookRepository implements book.Store backed by PostgreSQL.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository returns a BookRepository that uses the given pool.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

// List returns one page of books matching p and the total match count.
func (r *BookRepository) List(ctx context.Context, p book.ListParams) ([]book.Book, int, error) {
	where, args := listFilter(p)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM books"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count books")
	}
	if total == 0 || p.Offset() >= total {
		return []book.Book{}, total, nil
	}

	query, args := listQuery(p)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list books")
	}
	books, err := pgx.CollectRows(rows, scanBook)
	if err != nil {
		return nil, 0, errors.Wrap(err, "scan books")
	}
	return books, total, nil
}

// GetByID returns the book with the given id or book.ErrNotFound.
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*book.Book, error) {
	rows, err := r.pool.Query(ctx, getBookByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get book %d", id)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBook)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get book %d", id)
	}
	return &b, nil
}

// Categories lists the known categories by display name.
func (r *BookRepository) Categories(ctx context.Context) ([]book.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (book.Category, error) {
		var c book.Category
		err := row.Scan(&c.Slug, &c.Name)
		return c, err
	})
}

// Upsert inserts or replaces books in one transaction, registering any new
// category slug on the way.
func (r *BookRepository) Upsert(ctx context.Context, books []book.Book) error {
	if len(books) == 0 {
		return nil
	}
	// Categories are locked in slug order so concurrent imports cannot deadlock.
	var slugs []string
	for _, b := range books {
		if b.Category != "" {
			slugs = append(slugs, b.Category)
		}
	}
	slices.Sort(slugs)
	slugs = slices.Compact(slugs)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, slug := range slugs {
			batch.Queue(upsertCategorySQL, slug, book.CategoryName(slug))
		}
		for _, b := range books {
			batch.Queue(upsertBookSQL, upsertArgs(b)...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "upsert books")
		}
		return nil
	})
}

func upsertArgs(b book.Book) []any {
	discount := decimal.NullDecimal{}
	if b.OriginalPrice.IsPositive() {
		discount = decimal.NewNullDecimal(b.OriginalPrice)
	}
	return []any{
		b.ID,
		b.Title,
		b.Author,
		b.Category,
		b.Price,
		discount,
		decimal.NewFromFloat(b.Rating).Round(1),
		b.RatingCount,
		b.CoverImageURL,
		b.Icon,
		b.Description,
	}
}

// listFilter builds the WHERE clause shared by the count and page queries.
func listFilter(p book.ListParams) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if p.Category != "" && p.Category != book.CategoryAll {
		args = append(args, p.Category)
		conds = append(conds, "category_slug = $"+strconv.Itoa(len(args)))
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := "$" + strconv.Itoa(len(args))
		conds = append(conds, "(title ILIKE "+n+" OR author ILIKE "+n+" OR description ILIKE "+n+")")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func listQuery(p book.ListParams) (string, []any) {
	where, args := listFilter(p)

	order, ok := orderClauses[p.Ordering]
	if !ok {
		order = orderClauses[book.OrderCreatedDesc]
	}

	args = append(args, p.PageSize, p.Offset())
	query := "SELECT " + bookColumns + " FROM books" + where +
		" ORDER BY " + order +
		" LIMIT $" + strconv.Itoa(len(args)-1) +
		" OFFSET $" + strconv.Itoa(len(args))
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanBook(row pgx.CollectableRow) (book.Book, error) {
	var (
		b        book.Book
		discount decimal.NullDecimal
		rating   decimal.Decimal
	)
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Category, &b.Price, &discount, &rating,
		&b.RatingCount, &b.CoverImageURL, &b.Icon, &b.Description,
	)
	if discount.Valid {
		b.OriginalPrice = discount.Decimal
	}
	b.Rating = rating.InexactFloat64()
	return b, err
}
