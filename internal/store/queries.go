package store

// SQL query constants organized by entity.
// All SQL lives here — PostgresStore methods reference these constants.

// Product queries.
const (
	// Insert-or-return-existing in one statement. The no-op DO UPDATE
	// makes the RETURNING clause yield the surviving row's id on conflict.
	queryUpsertProduct = `
		INSERT INTO products (canonical_name, currency, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (canonical_name, currency) DO UPDATE SET
			canonical_name = EXCLUDED.canonical_name
		RETURNING id`

	queryGetProductByName = `
		SELECT id, canonical_name, currency, created_at
		FROM products
		WHERE canonical_name = $1 AND currency = $2`

	queryListProductsByIDs = `
		SELECT id, canonical_name, currency, created_at
		FROM products
		WHERE id = ANY($1)`
)

// Store queries.
const (
	queryCreateStore = `
		INSERT INTO stores (name, address, lat, lon, created_at)
		VALUES (@name, @address, @lat, @lon, now())
		RETURNING id, created_at`

	queryGetStore = `
		SELECT id, name, COALESCE(address, ''), lat, lon, created_at
		FROM stores
		WHERE id = $1`

	queryListStoresByIDs = `
		SELECT id, name, COALESCE(address, ''), lat, lon, created_at
		FROM stores
		WHERE id = ANY($1)`

	// Haversine distance in meters, filtered to the radius and ordered
	// nearest first. 6371000 is the mean Earth radius in meters.
	queryNearbyStores = `
		SELECT id, name, COALESCE(address, ''), lat, lon, created_at, distance_meters
		FROM (
			SELECT *,
				2 * 6371000 * asin(sqrt(
					pow(sin(radians(lat - @lat) / 2), 2) +
					cos(radians(@lat)) * cos(radians(lat)) *
					pow(sin(radians(lon - @lon) / 2), 2)
				)) AS distance_meters
			FROM stores
		) s
		WHERE distance_meters <= @radius_km * 1000
		ORDER BY distance_meters ASC`
)

// Sighting queries.
const (
	queryInsertSighting = `
		INSERT INTO sightings (
			user_id, product_id, store_id, price, lat, lon, created_at, is_validated
		) VALUES (
			@user_id, @product_id, @store_id, @price, @lat, @lon, now(), false
		)
		RETURNING id, created_at`

	queryListSightingsByStores = `
		SELECT id, user_id, product_id, store_id, price, lat, lon, created_at, is_validated
		FROM sightings
		WHERE store_id = ANY($1)
		ORDER BY created_at DESC, id DESC`

	queryListSightingsSince = `
		SELECT id, user_id, product_id, store_id, price, lat, lon, created_at, is_validated
		FROM sightings
		WHERE created_at >= $1
		ORDER BY created_at DESC, id DESC`

	queryMarkSightingValidated = `
		UPDATE sightings SET is_validated = true WHERE id = $1`
)

// Alert queries.
const (
	queryCreateAlert = `
		INSERT INTO alerts (
			user_id, product_id, target_price, radius_km, lat, lon, active, created_at
		) VALUES (
			@user_id, @product_id, @target_price, @radius_km, @lat, @lon, @active, now()
		)
		RETURNING id, created_at`

	queryGetAlert = `
		SELECT id, user_id, product_id, target_price, radius_km, lat, lon, active, created_at
		FROM alerts
		WHERE id = $1`

	queryListAlertsByUser = `
		SELECT id, user_id, product_id, target_price, radius_km, lat, lon, active, created_at
		FROM alerts
		WHERE user_id = $1
		ORDER BY created_at DESC`

	queryListActiveAlerts = `
		SELECT id, user_id, product_id, target_price, radius_km, lat, lon, active, created_at
		FROM alerts
		WHERE active
		ORDER BY created_at ASC`

	querySetAlertActive = `
		UPDATE alerts SET active = $2 WHERE id = $1`
)

// Notification queries.
const (
	// The UNIQUE(alert_id, sighting_id) constraint makes concurrent
	// matcher passes race-safe: the loser's insert returns no rows.
	queryInsertNotification = `
		INSERT INTO notifications (user_id, alert_id, sighting_id, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (alert_id, sighting_id) DO NOTHING
		RETURNING id, created_at`

	queryListNotificationsSince = `
		SELECT id, user_id, alert_id, sighting_id, created_at
		FROM notifications
		WHERE user_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3`
)

// User queries.
const (
	queryUpsertUser = `
		INSERT INTO users (id, email, is_admin)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`

	queryGetUser = `
		SELECT id, email, is_admin
		FROM users
		WHERE id = $1`
)

// Settings queries. Settings live in a single row keyed by id = 1.
const (
	queryGetSettings = `
		SELECT validation_price_tolerance_pct, validation_window_days,
			validation_min_matches, updated_at
		FROM settings
		WHERE id = 1`

	queryUpdateSettings = `
		UPDATE settings SET
			validation_price_tolerance_pct = $1,
			validation_window_days = $2,
			validation_min_matches = $3,
			updated_at = now()
		WHERE id = 1
		RETURNING updated_at`
)
