//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/booknest/internal/domain/book"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "booknest",
				"POSTGRES_PASSWORD": "booknest",
				"POSTGRES_DB":       "booknest",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(t, err)

	pool, err := NewPool(ctx, "postgres://booknest:booknest@"+endpoint+"/booknest?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// Idempotent.
	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func TestBookRepository(t *testing.T) {
	pool := startPostgres(t)
	repo := NewBookRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, book.Seed()))

	t.Run("GetByID", func(t *testing.T) {
		b, err := repo.GetByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Xamsa", b.Title)
		assert.True(t, decimal.NewFromInt(75000).Equal(b.Price))
		assert.True(t, decimal.NewFromInt(95000).Equal(b.OriginalPrice))
		assert.InDelta(t, 4.9, b.Rating, 1e-9)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 404)
		require.ErrorIs(t, err, book.ErrNotFound)
	})

	t.Run("rating order", func(t *testing.T) {
		books, total, err := repo.List(ctx, book.ListParams{Page: 1, PageSize: 2, Ordering: book.OrderRatingDesc})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		require.Len(t, books, 2)
		assert.Equal(t, []int64{2, 3}, []int64{books[0].ID, books[1].ID})
	})

	t.Run("category", func(t *testing.T) {
		books, total, err := repo.List(ctx, book.ListParams{Page: 1, PageSize: 20, Category: "texnik"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, int64(6), books[0].ID)
	})

	t.Run("search", func(t *testing.T) {
		books, total, err := repo.List(ctx, book.ListParams{Page: 1, PageSize: 20, Search: "NAVOIY"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, int64(3), books[0].ID)
	})

	t.Run("page past end", func(t *testing.T) {
		books, total, err := repo.List(ctx, book.ListParams{Page: 9, PageSize: 5})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		assert.Empty(t, books)
	})

	t.Run("categories", func(t *testing.T) {
		cats, err := repo.Categories(ctx)
		require.NoError(t, err)
		assert.Len(t, cats, 6)
		assert.Contains(t, cats, book.Category{Slug: "sherlar", Name: "She'rlar"})
	})

	t.Run("upsert replaces", func(t *testing.T) {
		b := book.Seed()[0]
		b.Title = "O'tgan kunlar (yangi nashr)"
		require.NoError(t, repo.Upsert(ctx, []book.Book{b}))

		got, err := repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.Title, got.Title)
	})
}
