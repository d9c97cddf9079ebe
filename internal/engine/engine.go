// Package engine implements alert matching and sighting validation. A
// sweep evaluates every active alert against recent sightings under one
// consistent settings snapshot, flips validated sightings, and emits
// each notification exactly once.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crowdprice/crowdprice/internal/metrics"
	"github.com/crowdprice/crowdprice/internal/notify"
	"github.com/crowdprice/crowdprice/internal/store"
	"github.com/crowdprice/crowdprice/pkg/geo"
	"github.com/crowdprice/crowdprice/pkg/normalize"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// Matcher evaluates active alerts against recent sightings.
type Matcher struct {
	store    store.Store
	notifier notify.Notifier
	log      *slog.Logger
	now      func() time.Time
}

// NewMatcher creates a new Matcher with injected dependencies.
func NewMatcher(s store.Store, n notify.Notifier, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		store:    s,
		notifier: n,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MatcherOption configures the Matcher.
type MatcherOption func(*Matcher)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) MatcherOption {
	return func(m *Matcher) {
		m.log = l
	}
}

// WithNowFunc overrides the clock, letting tests pin "now".
func WithNowFunc(f func() time.Time) MatcherOption {
	return func(m *Matcher) {
		m.now = f
	}
}

type groupKey struct {
	productID string
	storeID   string
}

// Sweep runs one full matching pass. It reads a single settings
// snapshot up front; if that read fails the pass is aborted with
// nothing applied. Individual malformed alerts are skipped and logged,
// never fatal to the batch.
func (m *Matcher) Sweep(ctx context.Context) error {
	start := time.Now()
	metrics.SweepsTotal.Inc()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		metrics.SweepErrorsTotal.Inc()
		return fmt.Errorf("reading settings snapshot: %w", err)
	}

	alerts, err := m.store.ListActiveAlerts(ctx)
	if err != nil {
		metrics.SweepErrorsTotal.Inc()
		return fmt.Errorf("listing active alerts: %w", err)
	}
	if len(alerts) == 0 {
		return nil
	}

	since := m.now().AddDate(0, 0, -settings.WindowDays)
	sightings, err := m.store.ListSightingsSince(ctx, since)
	if err != nil {
		metrics.SweepErrorsTotal.Inc()
		return fmt.Errorf("listing sightings since %s: %w", since.Format(time.RFC3339), err)
	}
	if len(sightings) == 0 {
		return nil
	}

	stores, products, err := m.lookups(ctx, sightings)
	if err != nil {
		metrics.SweepErrorsTotal.Inc()
		return err
	}

	// Count independent observations per (product, store) inside the
	// window. The volume gate below compares against this.
	groupCounts := make(map[groupKey]int)
	for _, sg := range sightings {
		groupCounts[groupKey{sg.ProductID, sg.StoreID}]++
	}

	validated := make(map[string]bool)
	for i := range alerts {
		a := &alerts[i]
		if err := checkAlert(a); err != nil {
			m.log.Warn("skipping malformed alert",
				"alert_id", a.ID, "error", err)
			metrics.MalformedAlertsTotal.Inc()
			continue
		}
		m.evaluateAlert(ctx, a, settings, sightings, groupCounts, stores, products, validated)
	}

	return nil
}

// checkAlert rejects alerts the sweep cannot evaluate.
func checkAlert(a *domain.Alert) error {
	if a.RadiusKm < 0 {
		return fmt.Errorf("negative radius %.2f", a.RadiusKm)
	}
	if a.Lat < -90 || a.Lat > 90 || a.Lon < -180 || a.Lon > 180 {
		return fmt.Errorf("reference point out of range (%.4f, %.4f)", a.Lat, a.Lon)
	}
	return nil
}

func (m *Matcher) evaluateAlert(
	ctx context.Context,
	a *domain.Alert,
	settings *domain.Settings,
	sightings []domain.Sighting,
	groupCounts map[groupKey]int,
	stores map[string]domain.Store,
	products map[string]domain.Product,
	validated map[string]bool,
) {
	for i := range sightings {
		sg := &sightings[i]
		if sg.ProductID != a.ProductID {
			continue
		}

		st, ok := stores[sg.StoreID]
		if !ok {
			continue
		}
		if !geo.WithinRadiusKm(a.Lat, a.Lon, st.Lat, st.Lon, a.RadiusKm) {
			continue
		}

		if a.TargetPrice != nil &&
			sg.Price > *a.TargetPrice*(1+settings.TolerancePct) {
			continue
		}

		// A single outlier report never validates: the group needs
		// enough independent observations inside the window.
		if groupCounts[groupKey{sg.ProductID, sg.StoreID}] < settings.MinMatches {
			continue
		}

		if !sg.IsValidated && !validated[sg.ID] {
			if err := m.store.MarkSightingValidated(ctx, sg.ID); err != nil {
				m.log.Error("marking sighting validated failed",
					"sighting_id", sg.ID, "error", err)
			} else {
				validated[sg.ID] = true
				metrics.SightingsValidatedTotal.Inc()
			}
		}

		m.emit(ctx, a, sg, st, products[sg.ProductID])
	}
}

// emit persists the notification and, when the insert actually created
// a row, pushes it out. The UNIQUE(alert_id, sighting_id) constraint
// makes re-runs and concurrent sweeps safe.
func (m *Matcher) emit(
	ctx context.Context,
	a *domain.Alert,
	sg *domain.Sighting,
	st domain.Store,
	p domain.Product,
) {
	n := &domain.Notification{
		UserID:     a.UserID,
		AlertID:    a.ID,
		SightingID: sg.ID,
	}
	created, err := m.store.InsertNotification(ctx, n)
	if err != nil {
		m.log.Error("inserting notification failed",
			"alert_id", a.ID, "sighting_id", sg.ID, "error", err)
		return
	}
	if !created {
		return
	}

	metrics.NotificationsEmittedTotal.Inc()
	m.log.Info("notification emitted",
		"alert_id", a.ID,
		"sighting_id", sg.ID,
		"user_id", a.UserID,
		"price", sg.Price,
	)

	ev := notify.Event{
		NotificationID: n.ID,
		UserID:         a.UserID,
		AlertID:        a.ID,
		SightingID:     sg.ID,
		ProductName:    p.CanonicalName,
		DisplayName:    normalize.Prettify(p.CanonicalName),
		StoreName:      st.Name,
		Price:          sg.Price,
		Currency:       p.Currency,
		CreatedAt:      n.CreatedAt,
	}
	if err := m.notifier.Publish(ctx, ev); err != nil {
		// Polling still delivers it; push is best effort.
		m.log.Warn("push delivery failed",
			"notification_id", n.ID, "error", err)
	}
}

// lookups fetches the stores and products referenced by the sightings.
func (m *Matcher) lookups(
	ctx context.Context,
	sightings []domain.Sighting,
) (map[string]domain.Store, map[string]domain.Product, error) {
	storeIDs := make([]string, 0)
	productIDs := make([]string, 0)
	seenStores := make(map[string]bool)
	seenProducts := make(map[string]bool)
	for _, sg := range sightings {
		if !seenStores[sg.StoreID] {
			seenStores[sg.StoreID] = true
			storeIDs = append(storeIDs, sg.StoreID)
		}
		if !seenProducts[sg.ProductID] {
			seenProducts[sg.ProductID] = true
			productIDs = append(productIDs, sg.ProductID)
		}
	}

	storeRows, err := m.store.ListStoresByIDs(ctx, storeIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("listing stores: %w", err)
	}
	productRows, err := m.store.ListProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("listing products: %w", err)
	}

	stores := make(map[string]domain.Store, len(storeRows))
	for _, st := range storeRows {
		stores[st.ID] = st
	}
	products := make(map[string]domain.Product, len(productRows))
	for _, p := range productRows {
		products[p.ID] = p
	}
	return stores, products, nil
}
