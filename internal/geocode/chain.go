package geocode

import (
	"context"
	"log/slog"

	"github.com/crowdprice/crowdprice/internal/metrics"
)

// Chain composes a primary Geocoder with a fallback. Any failure of the
// primary, including an empty result, is retried on the fallback; only
// when both come up empty does the caller see an error.
type Chain struct {
	primary  Geocoder
	fallback Geocoder
	log      *slog.Logger
}

// NewChain creates a geocoder chain. fallback may be nil, in which case
// primary errors pass through untouched.
func NewChain(primary, fallback Geocoder, log *slog.Logger) *Chain {
	return &Chain{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// Geocode tries the primary, then the fallback.
func (c *Chain) Geocode(ctx context.Context, address string) (Location, error) {
	loc, err := c.primary.Geocode(ctx, address)
	if err == nil {
		return loc, nil
	}
	if c.fallback == nil {
		return Location{}, err
	}

	c.log.Debug("primary geocoder failed, using fallback", "error", err)
	metrics.GeocodeFallbacksTotal.Inc()
	return c.fallback.Geocode(ctx, address)
}

// NearbyPlaces tries the primary, then the fallback.
func (c *Chain) NearbyPlaces(
	ctx context.Context,
	lat, lon float64,
	radiusMeters int,
) ([]Place, error) {
	places, err := c.primary.NearbyPlaces(ctx, lat, lon, radiusMeters)
	if err == nil {
		return places, nil
	}
	if c.fallback == nil {
		return nil, err
	}

	c.log.Debug("primary places lookup failed, using fallback", "error", err)
	metrics.GeocodeFallbacksTotal.Inc()
	return c.fallback.NearbyPlaces(ctx, lat, lon, radiusMeters)
}
