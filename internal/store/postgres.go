package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/crowdprice/crowdprice/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled
// PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, tested via integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// UpsertProduct inserts a product or returns the existing id for the
// (canonical name, currency) pair.
func (s *PostgresStore) UpsertProduct(
	ctx context.Context,
	canonicalName string,
	currency domain.Currency,
) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, queryUpsertProduct, canonicalName, string(currency)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upserting product: %w", err)
	}
	return id, nil
}

// GetProductByName retrieves a product by its canonical name and currency.
func (s *PostgresStore) GetProductByName(
	ctx context.Context,
	canonicalName string,
	currency domain.Currency,
) (*domain.Product, error) {
	p := &domain.Product{}
	err := s.pool.QueryRow(ctx, queryGetProductByName, canonicalName, string(currency)).Scan(
		&p.ID, &p.CanonicalName, &p.Currency, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// ListProductsByIDs returns the products whose ids appear in ids.
func (s *PostgresStore) ListProductsByIDs(
	ctx context.Context,
	ids []string,
) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, queryListProductsByIDs, ids)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CanonicalName, &p.Currency, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// CreateStore inserts a new store.
func (s *PostgresStore) CreateStore(ctx context.Context, st *domain.Store) error {
	args := pgx.NamedArgs{
		"name":    st.Name,
		"address": st.Address,
		"lat":     st.Lat,
		"lon":     st.Lon,
	}

	if err := s.pool.QueryRow(ctx, queryCreateStore, args).Scan(&st.ID, &st.CreatedAt); err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	return nil
}

// GetStore retrieves a store by its ID.
func (s *PostgresStore) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	st := &domain.Store{}
	err := s.pool.QueryRow(ctx, queryGetStore, id).Scan(
		&st.ID, &st.Name, &st.Address, &st.Lat, &st.Lon, &st.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting store: %w", err)
	}
	return st, nil
}

// ListStoresByIDs returns the stores whose ids appear in ids.
func (s *PostgresStore) ListStoresByIDs(
	ctx context.Context,
	ids []string,
) ([]domain.Store, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, queryListStoresByIDs, ids)
	if err != nil {
		return nil, fmt.Errorf("querying stores: %w", err)
	}
	defer rows.Close()

	var stores []domain.Store
	for rows.Next() {
		var st domain.Store
		if err := rows.Scan(&st.ID, &st.Name, &st.Address, &st.Lat, &st.Lon, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning store: %w", err)
		}
		stores = append(stores, st)
	}

	return stores, rows.Err()
}

// NearbyStores returns stores within radiusKm of (lat, lon), nearest first.
func (s *PostgresStore) NearbyStores(
	ctx context.Context,
	lat, lon, radiusKm float64,
) ([]domain.StoreWithDistance, error) {
	args := pgx.NamedArgs{
		"lat":       lat,
		"lon":       lon,
		"radius_km": radiusKm,
	}

	rows, err := s.pool.Query(ctx, queryNearbyStores, args)
	if err != nil {
		return nil, fmt.Errorf("querying nearby stores: %w", err)
	}
	defer rows.Close()

	var stores []domain.StoreWithDistance
	for rows.Next() {
		var st domain.StoreWithDistance
		if err := rows.Scan(
			&st.ID, &st.Name, &st.Address, &st.Lat, &st.Lon, &st.CreatedAt,
			&st.DistanceMeters,
		); err != nil {
			return nil, fmt.Errorf("scanning nearby store: %w", err)
		}
		stores = append(stores, st)
	}

	return stores, rows.Err()
}

// InsertSighting appends a new price observation.
func (s *PostgresStore) InsertSighting(ctx context.Context, sg *domain.Sighting) error {
	args := pgx.NamedArgs{
		"user_id":    sg.UserID,
		"product_id": sg.ProductID,
		"store_id":   sg.StoreID,
		"price":      sg.Price,
		"lat":        sg.Lat,
		"lon":        sg.Lon,
	}

	if err := s.pool.QueryRow(ctx, queryInsertSighting, args).Scan(&sg.ID, &sg.CreatedAt); err != nil {
		return fmt.Errorf("inserting sighting: %w", err)
	}
	return nil
}

// ListSightingsByStores returns all sightings at the given stores, newest
// first.
func (s *PostgresStore) ListSightingsByStores(
	ctx context.Context,
	storeIDs []string,
) ([]domain.Sighting, error) {
	if len(storeIDs) == 0 {
		return nil, nil
	}
	return s.querySightings(ctx, queryListSightingsByStores, storeIDs)
}

// ListSightingsSince returns all sightings created at or after since,
// newest first.
func (s *PostgresStore) ListSightingsSince(
	ctx context.Context,
	since time.Time,
) ([]domain.Sighting, error) {
	return s.querySightings(ctx, queryListSightingsSince, since)
}

// MarkSightingValidated flips the derived is_validated flag.
func (s *PostgresStore) MarkSightingValidated(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, queryMarkSightingValidated, id); err != nil {
		return fmt.Errorf("marking sighting validated: %w", err)
	}
	return nil
}

// CreateAlert inserts a new alert.
func (s *PostgresStore) CreateAlert(ctx context.Context, a *domain.Alert) error {
	args := pgx.NamedArgs{
		"user_id":      a.UserID,
		"product_id":   a.ProductID,
		"target_price": a.TargetPrice,
		"radius_km":    a.RadiusKm,
		"lat":          a.Lat,
		"lon":          a.Lon,
		"active":       a.Active,
	}

	if err := s.pool.QueryRow(ctx, queryCreateAlert, args).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("creating alert: %w", err)
	}
	return nil
}

// GetAlert retrieves an alert by its ID.
func (s *PostgresStore) GetAlert(ctx context.Context, id string) (*domain.Alert, error) {
	a := &domain.Alert{}
	err := s.pool.QueryRow(ctx, queryGetAlert, id).Scan(
		&a.ID, &a.UserID, &a.ProductID, &a.TargetPrice,
		&a.RadiusKm, &a.Lat, &a.Lon, &a.Active, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting alert: %w", err)
	}
	return a, nil
}

// ListAlertsByUser returns a user's alerts, newest first.
func (s *PostgresStore) ListAlertsByUser(
	ctx context.Context,
	userID string,
) ([]domain.Alert, error) {
	return s.queryAlerts(ctx, queryListAlertsByUser, userID)
}

// ListActiveAlerts returns all active alerts, oldest first.
func (s *PostgresStore) ListActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	return s.queryAlerts(ctx, queryListActiveAlerts)
}

// SetAlertActive toggles an alert's active flag.
func (s *PostgresStore) SetAlertActive(ctx context.Context, id string, active bool) error {
	if _, err := s.pool.Exec(ctx, querySetAlertActive, id, active); err != nil {
		return fmt.Errorf("setting alert active: %w", err)
	}
	return nil
}

// InsertNotification creates a notification for an (alert, sighting) pair.
// A conflict with an existing pair is not an error: created is false and
// the caller treats the sighting as already notified.
func (s *PostgresStore) InsertNotification(
	ctx context.Context,
	n *domain.Notification,
) (bool, error) {
	err := s.pool.QueryRow(ctx, queryInsertNotification,
		n.UserID, n.AlertID, n.SightingID,
	).Scan(&n.ID, &n.CreatedAt)

	// ON CONFLICT DO NOTHING returns no rows — already notified.
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inserting notification: %w", err)
	}
	return true, nil
}

// ListNotificationsSince returns a user's notifications with id greater
// than sinceID, oldest first.
func (s *PostgresStore) ListNotificationsSince(
	ctx context.Context,
	userID string,
	sinceID int64,
	limit int,
) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx, queryListNotificationsSince, userID, sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.AlertID, &n.SightingID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// UpsertUser inserts a user or refreshes the email of an existing one.
// The admin flag is never modified by upsert; it is managed out of band.
func (s *PostgresStore) UpsertUser(ctx context.Context, u *domain.User) error {
	if _, err := s.pool.Exec(ctx, queryUpsertUser, u.ID, u.Email, u.IsAdmin); err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	err := s.pool.QueryRow(ctx, queryGetUser, id).Scan(&u.ID, &u.Email, &u.IsAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetSettings reads the singleton policy row as one snapshot.
func (s *PostgresStore) GetSettings(ctx context.Context) (*domain.Settings, error) {
	st := &domain.Settings{}
	err := s.pool.QueryRow(ctx, queryGetSettings).Scan(
		&st.TolerancePct, &st.WindowDays, &st.MinMatches, &st.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("getting settings: %w", err)
	}
	return st, nil
}

// UpdateSettings replaces all three policy fields in a single statement,
// so concurrent readers see either the old or the new snapshot, never a
// mix.
func (s *PostgresStore) UpdateSettings(ctx context.Context, st *domain.Settings) error {
	err := s.pool.QueryRow(ctx, queryUpdateSettings,
		st.TolerancePct, st.WindowDays, st.MinMatches,
	).Scan(&st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating settings: %w", err)
	}
	return nil
}

// querySightings is a helper for sighting list queries.
func (s *PostgresStore) querySightings(
	ctx context.Context,
	query string,
	args ...any,
) ([]domain.Sighting, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sightings: %w", err)
	}
	defer rows.Close()

	var sightings []domain.Sighting
	for rows.Next() {
		var sg domain.Sighting
		if err := rows.Scan(
			&sg.ID, &sg.UserID, &sg.ProductID, &sg.StoreID,
			&sg.Price, &sg.Lat, &sg.Lon, &sg.CreatedAt, &sg.IsValidated,
		); err != nil {
			return nil, fmt.Errorf("scanning sighting: %w", err)
		}
		sightings = append(sightings, sg)
	}

	return sightings, rows.Err()
}

// queryAlerts is a helper for alert list queries.
func (s *PostgresStore) queryAlerts(
	ctx context.Context,
	query string,
	args ...any,
) ([]domain.Alert, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.ProductID, &a.TargetPrice,
			&a.RadiusKm, &a.Lat, &a.Lon, &a.Active, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}
