package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations())
	return repo
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupRepo(t)
	require.NoError(t, repo.RunMigrations())
}

func TestGetAllProducts_Seeded(t *testing.T) {
	repo := setupRepo(t)

	products, err := repo.GetAllProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 6)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, "Tênis de Caminhada Leve Confortável", products[0].Title)
	assert.Equal(t, 179.9, products[0].Price)
}

func TestGetProduct(t *testing.T) {
	repo := setupRepo(t)

	p, err := repo.GetProduct(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Tênis Adidas Duramo Lite 2.0", p.Title)

	_, err = repo.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetStock(t *testing.T) {
	repo := setupRepo(t)

	s, err := repo.GetStock(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Amount)
	assert.Equal(t, int64(6), s.ID)

	_, err = repo.GetStock(context.Background(), 99)
	assert.ErrorIs(t, err, ErrStockNotFound)
}

func TestSetStock(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetStock(ctx, 1, 0))
	s, err := repo.GetStock(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Amount)

	assert.ErrorIs(t, repo.SetStock(ctx, 99, 1), ErrProductNotFound)
	assert.Error(t, repo.SetStock(ctx, 1, -1))
}
