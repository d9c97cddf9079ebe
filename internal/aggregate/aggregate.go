// Package aggregate summarizes raw price sightings into per-(product,
// store) entries for browsing. It is a pure transform: callers fetch
// the sightings and lookup maps, Summarize does the rest.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/crowdprice/crowdprice/pkg/normalize"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// SortOrder selects the ordering of summarized entries.
type SortOrder string

const (
	SortRecency   SortOrder = "recency"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

// Query narrows and orders the summary. A zero Query returns everything
// sorted by recency.
type Query struct {
	// Filter is free text matched against the canonical product name
	// (normalized) or the display name (lowercased). Either match keeps
	// the entry.
	Filter string
	Sort   SortOrder
	// Limit caps the result after sorting; 0 means no cap.
	Limit int
}

// PriceEntry is one summarized (product, store) pair.
type PriceEntry struct {
	ProductID      string                `json:"product_id"`
	StoreID        string                `json:"store_id"`
	ProductName    string                `json:"product_name"`
	DisplayName    string                `json:"display_name"`
	Currency       domain.Currency       `json:"currency"`
	StoreName      string                `json:"store_name"`
	DistanceMeters float64               `json:"distance_meters"`
	Price          float64               `json:"price"`
	ObservedAt     time.Time             `json:"observed_at"`
	Count          int                   `json:"count"`
	Tier           domain.ConfidenceTier `json:"tier"`
	IsValidated    bool                  `json:"is_validated"`
}

type groupKey struct {
	productID string
	storeID   string
}

// Summarize groups sightings by (product, store), keeping each group's
// latest price (max created_at, ties broken by sighting id descending)
// and deriving a confidence tier from the group's size. Sightings whose
// product or store is missing from the lookup maps are dropped.
func Summarize(
	sightings []domain.Sighting,
	products map[string]domain.Product,
	stores map[string]domain.StoreWithDistance,
	q Query,
) []PriceEntry {
	type group struct {
		latest domain.Sighting
		count  int
	}

	groups := make(map[groupKey]*group)
	for _, sg := range sightings {
		key := groupKey{productID: sg.ProductID, storeID: sg.StoreID}
		g, ok := groups[key]
		if !ok {
			groups[key] = &group{latest: sg, count: 1}
			continue
		}
		g.count++
		if newerThan(sg, g.latest) {
			g.latest = sg
		}
	}

	entries := make([]PriceEntry, 0, len(groups))
	for key, g := range groups {
		p, ok := products[key.productID]
		if !ok {
			continue
		}
		st, ok := stores[key.storeID]
		if !ok {
			continue
		}
		entries = append(entries, PriceEntry{
			ProductID:      p.ID,
			StoreID:        st.ID,
			ProductName:    p.CanonicalName,
			DisplayName:    normalize.Prettify(p.CanonicalName),
			Currency:       p.Currency,
			StoreName:      st.Name,
			DistanceMeters: st.DistanceMeters,
			Price:          g.latest.Price,
			ObservedAt:     g.latest.CreatedAt,
			Count:          g.count,
			Tier:           domain.TierForCount(g.count),
			IsValidated:    g.latest.IsValidated,
		})
	}

	entries = applyFilter(entries, q.Filter)
	sortEntries(entries, q.Sort)

	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	return entries
}

// newerThan reports whether a should replace b as the group's latest
// sighting.
func newerThan(a, b domain.Sighting) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func applyFilter(entries []PriceEntry, filter string) []PriceEntry {
	if strings.TrimSpace(filter) == "" {
		return entries
	}

	canonical := normalize.Normalize(filter)
	lowered := strings.ToLower(strings.TrimSpace(filter))

	out := entries[:0]
	for _, e := range entries {
		if strings.Contains(e.ProductName, canonical) ||
			strings.Contains(strings.ToLower(e.DisplayName), lowered) {
			out = append(out, e)
		}
	}
	return out
}

func sortEntries(entries []PriceEntry, order SortOrder) {
	switch order {
	case SortPriceAsc:
		sort.Slice(entries, func(i, j int) bool {
			// never compare prices across currencies
			if entries[i].Currency != entries[j].Currency {
				return entries[i].Currency < entries[j].Currency
			}
			if entries[i].Price != entries[j].Price {
				return entries[i].Price < entries[j].Price
			}
			return entries[i].ObservedAt.After(entries[j].ObservedAt)
		})
	case SortPriceDesc:
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Currency != entries[j].Currency {
				return entries[i].Currency < entries[j].Currency
			}
			if entries[i].Price != entries[j].Price {
				return entries[i].Price > entries[j].Price
			}
			return entries[i].ObservedAt.After(entries[j].ObservedAt)
		})
	default:
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].ObservedAt.Equal(entries[j].ObservedAt) {
				return entries[i].ProductID < entries[j].ProductID
			}
			return entries[i].ObservedAt.After(entries[j].ObservedAt)
		})
	}
}
