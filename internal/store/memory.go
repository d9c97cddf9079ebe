package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crowdprice/crowdprice/pkg/geo"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// MemoryStore is an in-memory Store used by unit tests and local
// development. It mirrors the Postgres implementation's semantics,
// including upsert-on-conflict and the (alert, sighting) notification
// uniqueness.
type MemoryStore struct {
	mu sync.Mutex

	products      map[string]domain.Product
	stores        map[string]domain.Store
	sightings     map[string]domain.Sighting
	alerts        map[string]domain.Alert
	notifications []domain.Notification
	users         map[string]domain.User
	settings      domain.Settings

	nextNotificationID int64
	nowFunc            func() time.Time
}

// NewMemoryStore creates an empty MemoryStore with default settings
// matching the initial migration (10% tolerance, 7-day window, 2 matches).
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[string]domain.Product),
		stores:    make(map[string]domain.Store),
		sightings: make(map[string]domain.Sighting),
		alerts:    make(map[string]domain.Alert),
		users:     make(map[string]domain.User),
		settings: domain.Settings{
			TolerancePct: 0.10,
			WindowDays:   7,
			MinMatches:   2,
		},
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the clock, letting tests control created_at stamps.
func (m *MemoryStore) SetNowFunc(f func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nowFunc = f
}

// UpsertProduct inserts the (name, currency) pair or returns the existing
// product's id.
func (m *MemoryStore) UpsertProduct(
	_ context.Context,
	canonicalName string,
	currency domain.Currency,
) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.products {
		if p.CanonicalName == canonicalName && p.Currency == currency {
			return p.ID, nil
		}
	}

	p := domain.Product{
		ID:            uuid.NewString(),
		CanonicalName: canonicalName,
		Currency:      currency,
		CreatedAt:     m.nowFunc(),
	}
	m.products[p.ID] = p
	return p.ID, nil
}

// GetProductByName retrieves a product by canonical name and currency.
func (m *MemoryStore) GetProductByName(
	_ context.Context,
	canonicalName string,
	currency domain.Currency,
) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.products {
		if p.CanonicalName == canonicalName && p.Currency == currency {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListProductsByIDs returns the products for the given ids.
func (m *MemoryStore) ListProductsByIDs(
	_ context.Context,
	ids []string,
) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// CreateStore inserts a new store.
func (m *MemoryStore) CreateStore(_ context.Context, st *domain.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st.CreatedAt = m.nowFunc()
	m.stores[st.ID] = *st
	return nil
}

// GetStore retrieves a store by id.
func (m *MemoryStore) GetStore(_ context.Context, id string) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.stores[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &st, nil
}

// ListStoresByIDs returns the stores for the given ids.
func (m *MemoryStore) ListStoresByIDs(_ context.Context, ids []string) ([]domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Store
	for _, id := range ids {
		if st, ok := m.stores[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

// NearbyStores returns stores within radiusKm of the point, nearest first.
func (m *MemoryStore) NearbyStores(
	_ context.Context,
	lat, lon, radiusKm float64,
) ([]domain.StoreWithDistance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.StoreWithDistance
	for _, st := range m.stores {
		meters := geo.DistanceMeters(lat, lon, st.Lat, st.Lon)
		if meters <= radiusKm*1000 {
			out = append(out, domain.StoreWithDistance{Store: st, DistanceMeters: meters})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	return out, nil
}

// InsertSighting appends a new price observation.
func (m *MemoryStore) InsertSighting(_ context.Context, sg *domain.Sighting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sg.ID == "" {
		sg.ID = uuid.NewString()
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = m.nowFunc()
	}
	m.sightings[sg.ID] = *sg
	return nil
}

// ListSightingsByStores returns sightings at the given stores, newest first.
func (m *MemoryStore) ListSightingsByStores(
	_ context.Context,
	storeIDs []string,
) ([]domain.Sighting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]struct{}, len(storeIDs))
	for _, id := range storeIDs {
		wanted[id] = struct{}{}
	}

	var out []domain.Sighting
	for _, sg := range m.sightings {
		if _, ok := wanted[sg.StoreID]; ok {
			out = append(out, sg)
		}
	}
	sortSightingsNewestFirst(out)
	return out, nil
}

// ListSightingsSince returns sightings created at or after since, newest
// first.
func (m *MemoryStore) ListSightingsSince(
	_ context.Context,
	since time.Time,
) ([]domain.Sighting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Sighting
	for _, sg := range m.sightings {
		if !sg.CreatedAt.Before(since) {
			out = append(out, sg)
		}
	}
	sortSightingsNewestFirst(out)
	return out, nil
}

// MarkSightingValidated flips the is_validated flag.
func (m *MemoryStore) MarkSightingValidated(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sg, ok := m.sightings[id]
	if !ok {
		return ErrNotFound
	}
	sg.IsValidated = true
	m.sightings[id] = sg
	return nil
}

// CreateAlert inserts a new alert.
func (m *MemoryStore) CreateAlert(_ context.Context, a *domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = m.nowFunc()
	m.alerts[a.ID] = *a
	return nil
}

// GetAlert retrieves an alert by id.
func (m *MemoryStore) GetAlert(_ context.Context, id string) (*domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// ListAlertsByUser returns a user's alerts, newest first.
func (m *MemoryStore) ListAlertsByUser(
	_ context.Context,
	userID string,
) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Alert
	for _, a := range m.alerts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListActiveAlerts returns all active alerts, oldest first.
func (m *MemoryStore) ListActiveAlerts(_ context.Context) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Alert
	for _, a := range m.alerts {
		if a.Active {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SetAlertActive toggles an alert's active flag.
func (m *MemoryStore) SetAlertActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return ErrNotFound
	}
	a.Active = active
	m.alerts[id] = a
	return nil
}

// InsertNotification creates a notification unless the (alert, sighting)
// pair already has one.
func (m *MemoryStore) InsertNotification(
	_ context.Context,
	n *domain.Notification,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.notifications {
		if existing.AlertID == n.AlertID && existing.SightingID == n.SightingID {
			return false, nil
		}
	}

	m.nextNotificationID++
	n.ID = m.nextNotificationID
	n.CreatedAt = m.nowFunc()
	m.notifications = append(m.notifications, *n)
	return true, nil
}

// ListNotificationsSince returns a user's notifications with id greater
// than sinceID, oldest first.
func (m *MemoryStore) ListNotificationsSince(
	_ context.Context,
	userID string,
	sinceID int64,
	limit int,
) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && n.ID > sinceID {
			out = append(out, n)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// UpsertUser inserts or refreshes a user. The admin flag of an existing
// user is preserved.
func (m *MemoryStore) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[u.ID]; ok {
		existing.Email = u.Email
		m.users[u.ID] = existing
		return nil
	}
	m.users[u.ID] = *u
	return nil
}

// GetUser retrieves a user by id.
func (m *MemoryStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// SetAdmin marks a user as admin. Test helper; Postgres manages the flag
// out of band.
func (m *MemoryStore) SetAdmin(id string, admin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		u.IsAdmin = admin
		m.users[id] = u
	}
}

// GetSettings returns a copy of the current settings snapshot.
func (m *MemoryStore) GetSettings(_ context.Context) (*domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.settings
	return &s, nil
}

// UpdateSettings replaces the settings snapshot atomically.
func (m *MemoryStore) UpdateSettings(_ context.Context, s *domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = m.nowFunc()
	m.settings = *s
	return nil
}

// Migrate is a no-op for the in-memory store.
func (m *MemoryStore) Migrate(context.Context) error { return nil }

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// sortSightingsNewestFirst orders by created_at descending, then id
// descending, matching the SQL ordering.
func sortSightingsNewestFirst(s []domain.Sighting) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].ID > s[j].ID
		}
		return s[i].CreatedAt.After(s[j].CreatedAt)
	})
}
