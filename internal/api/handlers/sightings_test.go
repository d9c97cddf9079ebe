package handlers_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdprice/crowdprice/internal/api/handlers"
	"github.com/crowdprice/crowdprice/internal/store"
	"github.com/crowdprice/crowdprice/pkg/logger"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// countingSweeper records how many matcher passes were kicked.
type countingSweeper struct {
	sweeps atomic.Int64
}

func (s *countingSweeper) Sweep(context.Context) error {
	s.sweeps.Add(1)
	return nil
}

func newSightingAPI(t *testing.T, s store.Store, sw handlers.Sweeper) humatest.TestAPI {
	t.Helper()

	h := handlers.NewSightingHandler(s, sw, logger.Discard())
	_, api := humatest.New(t)
	handlers.RegisterSightingRoutes(api, h, asUser("user-1", "ana@example.com"))
	return api
}

func seedStore(t *testing.T, s store.Store) *domain.Store {
	t.Helper()

	st := &domain.Store{Name: "Supermercado Don Pepe", Lat: -34.61, Lon: -58.40}
	require.NoError(t, s.CreateStore(context.Background(), st))
	return st
}

func TestSightingHandler_Create(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	st := seedStore(t, s)
	sweeper := &countingSweeper{}
	api := newSightingAPI(t, s, sweeper)

	resp := api.Post("/api/v1/sightings", map[string]any{
		"product_name": "Leche Entera 1L",
		"currency":     "ARS",
		"price":        1250.50,
		"store_id":     st.ID,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"recorded"`)

	ctx := context.Background()

	// The shelf name was normalized into the canonical product key.
	p, err := s.GetProductByName(ctx, "leche entera 1 l", domain.CurrencyARS)
	require.NoError(t, err)

	sightings, err := s.ListSightingsByStores(ctx, []string{st.ID})
	require.NoError(t, err)
	require.Len(t, sightings, 1)
	assert.Equal(t, p.ID, sightings[0].ProductID)
	assert.Equal(t, "user-1", sightings[0].UserID)
	assert.InDelta(t, 1250.50, sightings[0].Price, 0.001)
	assert.False(t, sightings[0].IsValidated)

	// A matcher pass is kicked in the background.
	assert.Eventually(t, func() bool {
		return sweeper.sweeps.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSightingHandler_CreateReusesProduct(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	st := seedStore(t, s)
	api := newSightingAPI(t, s, nil)

	for _, name := range []string{"Leche 1L", "leche 1 l", "LECHE 1l"} {
		resp := api.Post("/api/v1/sightings", map[string]any{
			"product_name": name,
			"currency":     "ARS",
			"price":        1000,
			"store_id":     st.ID,
		})
		require.Equal(t, http.StatusCreated, resp.Code)
	}

	sightings, err := s.ListSightingsByStores(context.Background(), []string{st.ID})
	require.NoError(t, err)
	require.Len(t, sightings, 3)

	// Spelling variants collapse onto one product.
	for _, sg := range sightings {
		assert.Equal(t, sightings[0].ProductID, sg.ProductID)
	}
}

func TestSightingHandler_CreateRejections(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	st := seedStore(t, s)
	api := newSightingAPI(t, s, nil)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name: "unknown store",
			body: map[string]any{
				"product_name": "Leche 1L",
				"currency":     "ARS",
				"price":        1000,
				"store_id":     "no-such-store",
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "name empty after normalization",
			body: map[string]any{
				"product_name": "...",
				"currency":     "ARS",
				"price":        1000,
				"store_id":     st.ID,
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "unsupported currency",
			body: map[string]any{
				"product_name": "Leche 1L",
				"currency":     "GBP",
				"price":        1000,
				"store_id":     st.ID,
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "non-positive price",
			body: map[string]any{
				"product_name": "Leche 1L",
				"currency":     "ARS",
				"price":        0,
				"store_id":     st.ID,
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := api.Post("/api/v1/sightings", tt.body)
			assert.Equal(t, tt.wantStatus, resp.Code)
		})
	}
}

func TestSightingHandler_CreateRequiresAuth(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	st := seedStore(t, s)

	// No session middleware: the handler must refuse.
	h := handlers.NewSightingHandler(s, nil, logger.Discard())
	_, api := humatest.New(t)
	handlers.RegisterSightingRoutes(api, h)

	resp := api.Post("/api/v1/sightings", map[string]any{
		"product_name": "Leche 1L",
		"currency":     "ARS",
		"price":        1000,
		"store_id":     st.ID,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
