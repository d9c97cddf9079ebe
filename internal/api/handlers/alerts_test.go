package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdprice/crowdprice/internal/api/handlers"
	"github.com/crowdprice/crowdprice/internal/store"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

func newAlertAPI(t *testing.T, s store.Store, userID string) humatest.TestAPI {
	t.Helper()

	h := handlers.NewAlertHandler(s)
	_, api := humatest.New(t)
	handlers.RegisterAlertRoutes(api, h, asUser(userID, userID+"@example.com"))
	return api
}

func TestAlertHandler_Create(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	api := newAlertAPI(t, s, "user-1")

	resp := api.Post("/api/v1/alerts", map[string]any{
		"product_name": "Leche Entera 1L",
		"currency":     "ARS",
		"target_price": 1200.0,
		"radius_km":    5,
		"lat":          -34.6037,
		"lon":          -58.3816,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Contains(t, resp.Body.String(), `"active":true`)

	ctx := context.Background()

	// The alert can precede the first sighting: the product is upserted.
	p, err := s.GetProductByName(ctx, "leche entera 1 l", domain.CurrencyARS)
	require.NoError(t, err)

	alerts, err := s.ListAlertsByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, p.ID, a.ProductID)
	require.NotNil(t, a.TargetPrice)
	assert.InDelta(t, 1200, *a.TargetPrice, 0.001)
	assert.InDelta(t, -34.6037, a.Lat, 0.0001, "reference point captured at creation")
	assert.InDelta(t, -58.3816, a.Lon, 0.0001)
	assert.True(t, a.Active)
}

func TestAlertHandler_CreateWithoutTargetPrice(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	api := newAlertAPI(t, s, "user-1")

	resp := api.Post("/api/v1/alerts", map[string]any{
		"product_name": "Arroz 1kg",
		"currency":     "ARS",
		"radius_km":    3,
		"lat":          -34.6,
		"lon":          -58.4,
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	alerts, err := s.ListAlertsByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Nil(t, alerts[0].TargetPrice, "any price matches when no target is set")
}

func TestAlertHandler_ListOnlyOwn(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	productID, err := s.UpsertProduct(ctx, "leche 1 l", domain.CurrencyARS)
	require.NoError(t, err)

	mine := &domain.Alert{UserID: "user-1", ProductID: productID, RadiusKm: 5, Active: true}
	theirs := &domain.Alert{UserID: "user-2", ProductID: productID, RadiusKm: 5, Active: true}
	require.NoError(t, s.CreateAlert(ctx, mine))
	require.NoError(t, s.CreateAlert(ctx, theirs))

	api := newAlertAPI(t, s, "user-1")

	resp := api.Get("/api/v1/alerts")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), mine.ID)
	assert.NotContains(t, resp.Body.String(), theirs.ID)
}

func TestAlertHandler_SetActive(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	productID, err := s.UpsertProduct(ctx, "leche 1 l", domain.CurrencyARS)
	require.NoError(t, err)

	a := &domain.Alert{UserID: "user-1", ProductID: productID, RadiusKm: 5, Active: true}
	require.NoError(t, s.CreateAlert(ctx, a))

	api := newAlertAPI(t, s, "user-1")

	resp := api.Put("/api/v1/alerts/"+a.ID+"/active", map[string]any{
		"active": false,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	got, err := s.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	resp = api.Put("/api/v1/alerts/"+a.ID+"/active", map[string]any{
		"active": true,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	got, err = s.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestAlertHandler_SetActiveNotOwner(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	ctx := context.Background()

	productID, err := s.UpsertProduct(ctx, "leche 1 l", domain.CurrencyARS)
	require.NoError(t, err)

	a := &domain.Alert{UserID: "user-2", ProductID: productID, RadiusKm: 5, Active: true}
	require.NoError(t, s.CreateAlert(ctx, a))

	api := newAlertAPI(t, s, "user-1")

	resp := api.Put("/api/v1/alerts/"+a.ID+"/active", map[string]any{
		"active": false,
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// The alert is untouched.
	got, err := s.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestAlertHandler_SetActiveNotFound(t *testing.T) {
	t.Parallel()

	api := newAlertAPI(t, store.NewMemoryStore(), "user-1")

	resp := api.Put("/api/v1/alerts/no-such-alert/active", map[string]any{
		"active": false,
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
