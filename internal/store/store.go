// Package store defines the datastore abstraction for crowdprice.
// All business logic depends on the Store interface, never on concrete
// implementations. This enables in-memory testing without a running
// database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines all data access operations for crowdprice.
type Store interface {
	// Products. UpsertProduct inserts the (canonical name, currency) pair
	// or returns the existing product's id on conflict — at most one winner
	// under concurrent creation.
	UpsertProduct(ctx context.Context, canonicalName string, currency domain.Currency) (string, error)
	GetProductByName(ctx context.Context, canonicalName string, currency domain.Currency) (*domain.Product, error)
	ListProductsByIDs(ctx context.Context, ids []string) ([]domain.Product, error)

	// Stores.
	CreateStore(ctx context.Context, s *domain.Store) error
	GetStore(ctx context.Context, id string) (*domain.Store, error)
	ListStoresByIDs(ctx context.Context, ids []string) ([]domain.Store, error)
	// NearbyStores returns stores within radiusKm of (lat, lon), nearest
	// first, each annotated with its distance in meters.
	NearbyStores(ctx context.Context, lat, lon, radiusKm float64) ([]domain.StoreWithDistance, error)

	// Sightings. Sightings are append-only facts: InsertSighting never
	// updates, and only MarkSightingValidated mutates an existing row.
	InsertSighting(ctx context.Context, s *domain.Sighting) error
	ListSightingsByStores(ctx context.Context, storeIDs []string) ([]domain.Sighting, error)
	ListSightingsSince(ctx context.Context, since time.Time) ([]domain.Sighting, error)
	MarkSightingValidated(ctx context.Context, id string) error

	// Alerts.
	CreateAlert(ctx context.Context, a *domain.Alert) error
	GetAlert(ctx context.Context, id string) (*domain.Alert, error)
	ListAlertsByUser(ctx context.Context, userID string) ([]domain.Alert, error)
	ListActiveAlerts(ctx context.Context) ([]domain.Alert, error)
	SetAlertActive(ctx context.Context, id string, active bool) error

	// Notifications. InsertNotification reports whether a row was created;
	// a (alert, sighting) conflict returns created=false with no error.
	InsertNotification(ctx context.Context, n *domain.Notification) (created bool, err error)
	ListNotificationsSince(ctx context.Context, userID string, sinceID int64, limit int) ([]domain.Notification, error)

	// Users.
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// Settings. The singleton policy row is read and replaced as one
	// atomic snapshot.
	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, s *domain.Settings) error

	// Migrations.
	Migrate(ctx context.Context) error

	// Health.
	Ping(ctx context.Context) error
}
