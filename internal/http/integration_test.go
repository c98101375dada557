package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/fjod/go_cart/cart-session/internal/catalog"
	"github.com/fjod/go_cart/cart-session/internal/logger"
	"github.com/fjod/go_cart/cart-session/internal/notify"
	"github.com/fjod/go_cart/cart-session/internal/repository"
	"github.com/fjod/go_cart/cart-session/internal/service"
	"github.com/fjod/go_cart/cart-session/internal/storefront"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStorefront serves the seeded sqlite catalog over HTTP.
func newStorefront(t *testing.T) *httptest.Server {
	t.Helper()
	repo, err := catalog.NewRepository(filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations())

	r := chi.NewRouter()
	catalog.NewHandler(repo).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		repo.Close()
	})
	return srv
}

func newIntegrationRouter(t *testing.T, provider repository.SlotProvider, storefrontURL string) http.Handler {
	t.Helper()
	client, err := storefront.NewClient(storefrontURL, 2*time.Second)
	require.NoError(t, err)

	sessions := service.NewSessions(provider, service.Deps{
		Catalog:  client,
		Stock:    client,
		Notifier: notify.Discard{},
		Logger:   logger.Discard(),
	}, service.SessionsConfig{})
	t.Cleanup(func() { sessions.Close() })

	return newTestRouter(sessions)
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartResponse {
	t.Helper()
	var resp CartResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestIntegration_CartAgainstStorefront(t *testing.T) {
	sf := newStorefront(t)
	provider := repository.NewMemoryProvider()
	router := newIntegrationRouter(t, provider, sf.URL)
	const session = "integration-1"

	// product 1 has 3 in stock
	for i := 0; i < 3; i++ {
		rec := doRequest(router, "POST", "/api/v1/cart/items", AddProductRequestDTO{ProductID: 1}, session)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := doRequest(router, "POST", "/api/v1/cart/items", AddProductRequestDTO{ProductID: 1}, session)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(router, "POST", "/api/v1/cart/items", AddProductRequestDTO{ProductID: 3}, session)
	require.Equal(t, http.StatusCreated, rec.Code)
	cart := decodeCart(t, rec)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(1), cart.Items[0].ID)
	assert.Equal(t, 3, cart.Items[0].Amount)
	assert.Equal(t, "Tênis Adidas Duramo Lite 2.0", cart.Items[1].Title)
	assert.Equal(t, 219.9, cart.Items[1].Price)

	rec = doRequest(router, "PUT", "/api/v1/cart/items/3", UpdateAmountRequestDTO{Amount: 5}, session)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(router, "PUT", "/api/v1/cart/items/1", UpdateAmountRequestDTO{Amount: 2}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeCart(t, rec).Items[0].Amount)

	rec = doRequest(router, "DELETE", "/api/v1/cart/items/6", nil, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(router, "DELETE", "/api/v1/cart/items/1", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(3), cart.Items[0].ID)

	// a fresh registry over the same slots sees the persisted cart
	reopened := newIntegrationRouter(t, provider, sf.URL)
	rec = doRequest(reopened, "GET", "/api/v1/cart", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Amount)
}

func TestIntegration_UnknownProductIsLookupFailure(t *testing.T) {
	sf := newStorefront(t)
	router := newIntegrationRouter(t, repository.NewMemoryProvider(), sf.URL)

	rec := doRequest(router, "POST", "/api/v1/cart/items", AddProductRequestDTO{ProductID: 99}, "integration-2")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "lookup_failed", resp.Code)
}

func TestIntegration_StorefrontDown(t *testing.T) {
	sf := newStorefront(t)
	url := sf.URL
	sf.Close()

	router := newIntegrationRouter(t, repository.NewMemoryProvider(), url)
	rec := doRequest(router, "POST", "/api/v1/cart/items", AddProductRequestDTO{ProductID: 1}, "integration-3")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = doRequest(router, "GET", "/api/v1/cart", nil, "integration-3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
}
