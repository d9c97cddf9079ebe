package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/crowdprice/crowdprice/internal/metrics"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org/search"
	defaultOverpassURL  = "https://overpass-api.de/api/interpreter"
	defaultUserAgent    = "crowdprice/1.0"

	// Overpass tag filter for nearby venues.
	defaultOSMKey   = "shop"
	defaultOSMValue = "supermarket"
)

// OSMClient implements Geocoder using the OpenStreetMap stack:
// Nominatim for address geocoding and Overpass for nearby venues.
// Both are public services with strict usage policies, so a rate
// limiter is strongly recommended.
type OSMClient struct {
	nominatimURL string
	overpassURL  string
	userAgent    string
	tagKey       string
	tagValue     string
	client       *http.Client
	rateLimiter  *RateLimiter
}

// OSMOption configures the OSMClient.
type OSMOption func(*OSMClient)

// WithNominatimURL overrides the default Nominatim endpoint.
func WithNominatimURL(u string) OSMOption {
	return func(c *OSMClient) {
		c.nominatimURL = u
	}
}

// WithOverpassURL overrides the default Overpass endpoint.
func WithOverpassURL(u string) OSMOption {
	return func(c *OSMClient) {
		c.overpassURL = u
	}
}

// WithUserAgent sets the User-Agent header Nominatim requires.
func WithUserAgent(ua string) OSMOption {
	return func(c *OSMClient) {
		c.userAgent = ua
	}
}

// WithOSMTag sets the Overpass tag filter for nearby venues,
// e.g. ("shop", "supermarket") or ("amenity", "pharmacy").
func WithOSMTag(key, value string) OSMOption {
	return func(c *OSMClient) {
		c.tagKey = key
		c.tagValue = value
	}
}

// WithOSMHTTPClient overrides the default HTTP client.
func WithOSMHTTPClient(hc *http.Client) OSMOption {
	return func(c *OSMClient) {
		c.client = hc
	}
}

// WithOSMRateLimiter injects a rate limiter applied to every request.
func WithOSMRateLimiter(r *RateLimiter) OSMOption {
	return func(c *OSMClient) {
		c.rateLimiter = r
	}
}

// NewOSMClient creates a new OpenStreetMap client.
func NewOSMClient(opts ...OSMOption) *OSMClient {
	c := &OSMClient{
		nominatimURL: defaultNominatimURL,
		overpassURL:  defaultOverpassURL,
		userAgent:    defaultUserAgent,
		tagKey:       defaultOSMKey,
		tagValue:     defaultOSMValue,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nominatimResult is one row of a Nominatim search response. Nominatim
// returns coordinates as strings.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves an address via Nominatim.
func (c *OSMClient) Geocode(ctx context.Context, address string) (Location, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")
	u := c.nominatimURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return Location{}, fmt.Errorf("creating nominatim request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("osm", "error").Inc()
		return Location{}, err
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("osm", "error").Inc()
		return Location{}, fmt.Errorf("parsing nominatim response: %w", err)
	}
	if len(results) == 0 {
		metrics.GeocodeRequestsTotal.WithLabelValues("osm", "empty").Inc()
		return Location{}, ErrNoResults
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Location{}, fmt.Errorf("parsing nominatim latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Location{}, fmt.Errorf("parsing nominatim longitude: %w", err)
	}

	metrics.GeocodeRequestsTotal.WithLabelValues("osm", "ok").Inc()
	return Location{Lat: lat, Lon: lon}, nil
}

type overpassResponse struct {
	Elements []struct {
		Lat  float64           `json:"lat"`
		Lon  float64           `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// NearbyPlaces lists venues via an Overpass around-query.
func (c *OSMClient) NearbyPlaces(
	ctx context.Context,
	lat, lon float64,
	radiusMeters int,
) ([]Place, error) {
	query := fmt.Sprintf(
		`[out:json];node["%s"="%s"](around:%d,%f,%f);out;`,
		c.tagKey, c.tagValue, radiusMeters, lat, lon,
	)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.overpassURL,
		strings.NewReader(query),
	)
	if err != nil {
		return nil, fmt.Errorf("creating overpass request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("osm", "error").Inc()
		return nil, err
	}

	var apiResp overpassResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("osm", "error").Inc()
		return nil, fmt.Errorf("parsing overpass response: %w", err)
	}

	places := make([]Place, 0, len(apiResp.Elements))
	for _, el := range apiResp.Elements {
		name := el.Tags["name"]
		if name == "" {
			name = "Local sin nombre"
		}
		places = append(places, Place{
			Name:    name,
			Address: el.Tags["addr:street"],
			Lat:     el.Lat,
			Lon:     el.Lon,
		})
	}

	if len(places) == 0 {
		metrics.GeocodeRequestsTotal.WithLabelValues("osm", "empty").Inc()
		return nil, ErrNoResults
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("osm", "ok").Inc()
	return places, nil
}

func (c *OSMClient) do(req *http.Request) ([]byte, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing OSM request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"OSM API error (status %d): %s",
			resp.StatusCode,
			string(body),
		)
	}
	return body, nil
}
