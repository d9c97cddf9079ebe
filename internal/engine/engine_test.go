package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdprice/crowdprice/internal/engine"
	"github.com/crowdprice/crowdprice/internal/notify"
	"github.com/crowdprice/crowdprice/internal/store"
	"github.com/crowdprice/crowdprice/pkg/logger"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Obelisco, Buenos Aires: the alert reference point used throughout.
const (
	refLat = -34.6037
	refLon = -58.3816
)

type capturingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *capturingNotifier) Publish(_ context.Context, ev notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturingNotifier) Events() []notify.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.Event(nil), c.events...)
}

type fixture struct {
	store    *store.MemoryStore
	notifier *capturingNotifier
	matcher  *engine.Matcher

	productID   string
	nearStoreID string // ~3 km from the reference point
	farStoreID  string // ~6.7 km from the reference point
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s := store.NewMemoryStore()
	s.SetNowFunc(func() time.Time { return now })

	productID, err := s.UpsertProduct(ctx, "leche 1 l", domain.CurrencyARS)
	require.NoError(t, err)

	near := &domain.Store{Name: "Chino Corrientes", Lat: -34.6300, Lon: -58.3900}
	require.NoError(t, s.CreateStore(ctx, near))
	far := &domain.Store{Name: "Coto Avellaneda", Lat: -34.6637, Lon: -58.3816}
	require.NoError(t, s.CreateStore(ctx, far))

	n := &capturingNotifier{}
	m := engine.NewMatcher(s, n,
		engine.WithLogger(logger.Discard()),
		engine.WithNowFunc(func() time.Time { return now }),
	)

	return &fixture{
		store:       s,
		notifier:    n,
		matcher:     m,
		productID:   productID,
		nearStoreID: near.ID,
		farStoreID:  far.ID,
	}
}

func (f *fixture) setMinMatches(t *testing.T, n int) {
	t.Helper()
	ctx := context.Background()
	settings, err := f.store.GetSettings(ctx)
	require.NoError(t, err)
	settings.MinMatches = n
	require.NoError(t, f.store.UpdateSettings(ctx, settings))
}

func (f *fixture) addAlert(t *testing.T, target *float64, radiusKm float64) *domain.Alert {
	t.Helper()
	a := &domain.Alert{
		UserID:      "u1",
		ProductID:   f.productID,
		TargetPrice: target,
		RadiusKm:    radiusKm,
		Lat:         refLat,
		Lon:         refLon,
		Active:      true,
	}
	require.NoError(t, f.store.CreateAlert(context.Background(), a))
	return a
}

func (f *fixture) addSighting(t *testing.T, storeID string, price float64, at time.Time) *domain.Sighting {
	t.Helper()
	sg := &domain.Sighting{
		UserID:    "reporter",
		ProductID: f.productID,
		StoreID:   storeID,
		Price:     price,
		CreatedAt: at,
	}
	require.NoError(t, f.store.InsertSighting(context.Background(), sg))
	return sg
}

func (f *fixture) notificationCount(t *testing.T) int {
	t.Helper()
	got, err := f.store.ListNotificationsSince(context.Background(), "u1", 0, 100)
	require.NoError(t, err)
	return len(got)
}

func ptr(v float64) *float64 { return &v }

func TestSweep_PriceTolerance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// target 100, tolerance 10%: 109 passes, 111 does not.
	tests := []struct {
		name    string
		price   float64
		matches bool
	}{
		{"below target", 95, true},
		{"within tolerance", 109, true},
		{"at tolerance edge", 110, true},
		{"above tolerance", 111, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.setMinMatches(t, 1)
			f.addAlert(t, ptr(100), 5)
			f.addSighting(t, f.nearStoreID, tt.price, now.Add(-time.Hour))

			require.NoError(t, f.matcher.Sweep(ctx))

			if tt.matches {
				assert.Equal(t, 1, f.notificationCount(t))
			} else {
				assert.Zero(t, f.notificationCount(t))
			}
		})
	}
}

func TestSweep_RadiusTest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.setMinMatches(t, 1)
	f.addAlert(t, ptr(100), 5)

	// ~3 km away: inside the 5 km radius.
	inRange := f.addSighting(t, f.nearStoreID, 100, now.Add(-time.Hour))
	// ~6.7 km away: outside.
	f.addSighting(t, f.farStoreID, 100, now.Add(-time.Hour))

	require.NoError(t, f.matcher.Sweep(ctx))

	got, err := f.store.ListNotificationsSince(ctx, "u1", 0, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inRange.ID, got[0].SightingID)
}

func TestSweep_NilTargetSkipsPriceTest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.setMinMatches(t, 1)
	f.addAlert(t, nil, 5)
	f.addSighting(t, f.nearStoreID, 999999, now.Add(-time.Hour))

	require.NoError(t, f.matcher.Sweep(ctx))
	assert.Equal(t, 1, f.notificationCount(t))
}

func TestSweep_MinMatchesVolumeGate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	// default settings: min_matches 2
	f.addAlert(t, ptr(100), 5)

	// A single unverified outlier must not validate the alert.
	f.addSighting(t, f.nearStoreID, 90, now.Add(-2*time.Hour))
	require.NoError(t, f.matcher.Sweep(ctx))
	assert.Zero(t, f.notificationCount(t))

	got, err := f.store.ListSightingsSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.False(t, got[0].IsValidated)

	// A second independent observation pushes the group over the gate.
	f.addSighting(t, f.nearStoreID, 92, now.Add(-time.Hour))
	require.NoError(t, f.matcher.Sweep(ctx))
	assert.Equal(t, 2, f.notificationCount(t))

	got, err = f.store.ListSightingsSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	for _, sg := range got {
		assert.True(t, sg.IsValidated, "sighting %s", sg.ID)
	}
}

func TestSweep_WindowExcludesOldSightings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.setMinMatches(t, 1)
	f.addAlert(t, ptr(100), 5)

	// default window is 7 days
	f.addSighting(t, f.nearStoreID, 90, now.AddDate(0, 0, -8))

	require.NoError(t, f.matcher.Sweep(ctx))
	assert.Zero(t, f.notificationCount(t))
}

func TestSweep_NotificationIdempotence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.setMinMatches(t, 1)
	f.addAlert(t, ptr(100), 5)
	f.addSighting(t, f.nearStoreID, 90, now.Add(-time.Hour))

	require.NoError(t, f.matcher.Sweep(ctx))
	require.NoError(t, f.matcher.Sweep(ctx))
	require.NoError(t, f.matcher.Sweep(ctx))

	assert.Equal(t, 1, f.notificationCount(t))
	assert.Len(t, f.notifier.Events(), 1)
}

func TestSweep_AlertStaysActiveAndMatchesRepeatedly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.setMinMatches(t, 1)
	a := f.addAlert(t, ptr(100), 5)

	f.addSighting(t, f.nearStoreID, 90, now.Add(-2*time.Hour))
	require.NoError(t, f.matcher.Sweep(ctx))

	f.addSighting(t, f.nearStoreID, 85, now.Add(-time.Hour))
	require.NoError(t, f.matcher.Sweep(ctx))

	assert.Equal(t, 2, f.notificationCount(t))

	got, err := f.store.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestSweep_InactiveAlertIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.setMinMatches(t, 1)
	a := f.addAlert(t, ptr(100), 5)
	require.NoError(t, f.store.SetAlertActive(ctx, a.ID, false))

	f.addSighting(t, f.nearStoreID, 90, now.Add(-time.Hour))

	require.NoError(t, f.matcher.Sweep(ctx))
	assert.Zero(t, f.notificationCount(t))
}

func TestSweep_ProductMustMatchExactly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.setMinMatches(t, 1)

	otherProduct, err := f.store.UpsertProduct(ctx, "yerba 500 g", domain.CurrencyARS)
	require.NoError(t, err)

	f.addAlert(t, nil, 5)
	sg := &domain.Sighting{
		UserID: "reporter", ProductID: otherProduct, StoreID: f.nearStoreID,
		Price: 10, CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, f.store.InsertSighting(ctx, sg))

	require.NoError(t, f.matcher.Sweep(ctx))
	assert.Zero(t, f.notificationCount(t))
}

func TestSweep_MalformedAlertSkippedNotFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.setMinMatches(t, 1)

	// negative radius: skipped with a log line
	f.addAlert(t, ptr(100), -1)
	// healthy alert still evaluated in the same pass
	f.addAlert(t, ptr(100), 5)

	f.addSighting(t, f.nearStoreID, 90, now.Add(-time.Hour))

	require.NoError(t, f.matcher.Sweep(ctx))
	assert.Equal(t, 1, f.notificationCount(t))
}

func TestSweep_PublishesEnrichedEvent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.setMinMatches(t, 1)
	a := f.addAlert(t, ptr(100), 5)
	sg := f.addSighting(t, f.nearStoreID, 90, now.Add(-time.Hour))

	require.NoError(t, f.matcher.Sweep(ctx))

	events := f.notifier.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, a.ID, ev.AlertID)
	assert.Equal(t, sg.ID, ev.SightingID)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, "leche 1 l", ev.ProductName)
	assert.Equal(t, "Leche 1 l", ev.DisplayName)
	assert.Equal(t, "Chino Corrientes", ev.StoreName)
	assert.InDelta(t, 90, ev.Price, 1e-9)
	assert.Equal(t, domain.CurrencyARS, ev.Currency)
	assert.Positive(t, ev.NotificationID)
}

type settingsFailingStore struct {
	store.Store
}

func (s *settingsFailingStore) GetSettings(context.Context) (*domain.Settings, error) {
	return nil, assert.AnError
}

func TestSweep_SettingsReadFailureIsFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	f.addAlert(t, ptr(100), 5)
	f.addSighting(t, f.nearStoreID, 90, now.Add(-time.Hour))

	failing := &settingsFailingStore{Store: f.store}
	m := engine.NewMatcher(failing, f.notifier,
		engine.WithLogger(logger.Discard()),
		engine.WithNowFunc(func() time.Time { return now }),
	)

	err := m.Sweep(ctx)
	require.Error(t, err)

	// nothing partially applied
	assert.Zero(t, f.notificationCount(t))
	got, err := f.store.ListSightingsSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.False(t, got[0].IsValidated)
}
