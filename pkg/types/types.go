// Package domain defines the core business types for crowdprice.
package domain

import (
	"time"
)

// Currency is the ISO currency code a product's prices are reported in.
type Currency string

// Supported currencies.
const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyARS, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// ConfidenceTier classifies how trustworthy an aggregated price is,
// derived from the number of independent sightings.
type ConfidenceTier string

// Confidence tiers.
const (
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

// TierForCount derives the confidence tier from a sighting count.
// One report is a single unconfirmed observation; two or three reports are
// medium confidence; four or more are high confidence.
func TierForCount(count int) ConfidenceTier {
	switch {
	case count <= 1:
		return ConfidenceLow
	case count <= 3:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// Product is a canonical (normalized name, currency) pair. Products are
// created on first sight via upsert and never deleted.
type Product struct {
	ID            string    `json:"id"             db:"id"`
	CanonicalName string    `json:"canonical_name" db:"canonical_name"`
	Currency      Currency  `json:"currency"       db:"currency"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
}

// Store is a physical venue where prices are observed. Its location is
// immutable once created.
type Store struct {
	ID        string    `json:"id"                db:"id"`
	Name      string    `json:"name"              db:"name"`
	Address   string    `json:"address,omitempty" db:"address"`
	Lat       float64   `json:"lat"               db:"lat"`
	Lon       float64   `json:"lon"               db:"lon"`
	CreatedAt time.Time `json:"created_at"        db:"created_at"`
}

// StoreWithDistance is a store annotated with its distance from a query
// point, as returned by the nearby-stores geospatial query.
type StoreWithDistance struct {
	Store
	DistanceMeters float64 `json:"distance_meters" db:"distance_meters"`
}

// Sighting is a single user-reported price observation: one row per report,
// append-only. Only the is_validated flag is ever updated, and only by the
// matcher as a derived signal.
type Sighting struct {
	ID          string    `json:"id"           db:"id"`
	UserID      string    `json:"user_id"      db:"user_id"`
	ProductID   string    `json:"product_id"   db:"product_id"`
	StoreID     string    `json:"store_id"     db:"store_id"`
	Price       float64   `json:"price"        db:"price"`
	Lat         float64   `json:"lat"          db:"lat"`
	Lon         float64   `json:"lon"          db:"lon"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
	IsValidated bool      `json:"is_validated" db:"is_validated"`
}

// Alert is a standing request to be notified when a product is sighted at
// or below a target price within a radius of the reference point. The
// reference point is captured at creation time.
type Alert struct {
	ID          string    `json:"id"                     db:"id"`
	UserID      string    `json:"user_id"                db:"user_id"`
	ProductID   string    `json:"product_id"             db:"product_id"`
	TargetPrice *float64  `json:"target_price,omitempty" db:"target_price"`
	RadiusKm    float64   `json:"radius_km"              db:"radius_km"`
	Lat         float64   `json:"lat"                    db:"lat"`
	Lon         float64   `json:"lon"                    db:"lon"`
	Active      bool      `json:"active"                 db:"active"`
	CreatedAt   time.Time `json:"created_at"             db:"created_at"`
}

// Notification records that an alert matched a sighting. At most one
// notification exists per (alert, sighting) pair; the datastore enforces
// the uniqueness. IDs are monotonically increasing so clients can poll
// with a since-id cursor.
type Notification struct {
	ID         int64     `json:"id"          db:"id"`
	UserID     string    `json:"user_id"     db:"user_id"`
	AlertID    string    `json:"alert_id"    db:"alert_id"`
	SightingID string    `json:"sighting_id" db:"sighting_id"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// Settings is the singleton validation policy consumed by the matcher.
// It is read as one snapshot per matcher pass and replaced atomically on
// update.
type Settings struct {
	TolerancePct float64   `json:"validation_price_tolerance_pct" db:"validation_price_tolerance_pct"`
	WindowDays   int       `json:"validation_window_days"         db:"validation_window_days"`
	MinMatches   int       `json:"validation_min_matches"         db:"validation_min_matches"`
	UpdatedAt    time.Time `json:"updated_at"                     db:"updated_at"`
}

// User is an authenticated account as resolved from the identity provider.
type User struct {
	ID      string `json:"id"       db:"id"`
	Email   string `json:"email"    db:"email"`
	IsAdmin bool   `json:"is_admin" db:"is_admin"`
}
