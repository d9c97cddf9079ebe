package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/crowdprice/crowdprice/internal/metrics"
)

const (
	defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultPlacesURL  = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	defaultLanguage   = "es"
)

// GoogleClient implements Geocoder using the Google Geocoding and
// Places Nearby Search APIs.
type GoogleClient struct {
	apiKey      string
	geocodeURL  string
	placesURL   string
	language    string
	placeType   string
	client      *http.Client
	rateLimiter *RateLimiter
}

// GoogleOption configures the GoogleClient.
type GoogleOption func(*GoogleClient)

// WithGeocodeURL overrides the default Geocoding API endpoint.
func WithGeocodeURL(u string) GoogleOption {
	return func(c *GoogleClient) {
		c.geocodeURL = u
	}
}

// WithPlacesURL overrides the default Places API endpoint.
func WithPlacesURL(u string) GoogleOption {
	return func(c *GoogleClient) {
		c.placesURL = u
	}
}

// WithLanguage overrides the response language.
func WithLanguage(lang string) GoogleOption {
	return func(c *GoogleClient) {
		c.language = lang
	}
}

// WithPlaceType restricts nearby searches to one place type
// (e.g. "supermarket").
func WithPlaceType(t string) GoogleOption {
	return func(c *GoogleClient) {
		c.placeType = t
	}
}

// WithGoogleHTTPClient overrides the default HTTP client.
func WithGoogleHTTPClient(hc *http.Client) GoogleOption {
	return func(c *GoogleClient) {
		c.client = hc
	}
}

// WithGoogleRateLimiter injects a rate limiter applied to every request.
func WithGoogleRateLimiter(r *RateLimiter) GoogleOption {
	return func(c *GoogleClient) {
		c.rateLimiter = r
	}
}

// NewGoogleClient creates a new Google Maps client.
func NewGoogleClient(apiKey string, opts ...GoogleOption) *GoogleClient {
	c := &GoogleClient{
		apiKey:     apiKey,
		geocodeURL: defaultGeocodeURL,
		placesURL:  defaultPlacesURL,
		language:   defaultLanguage,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves an address via the Geocoding API.
func (c *GoogleClient) Geocode(ctx context.Context, address string) (Location, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", c.apiKey)
	params.Set("language", c.language)

	body, err := c.get(ctx, c.geocodeURL+"?"+params.Encode())
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("google", "error").Inc()
		return Location{}, err
	}

	var apiResp googleGeocodeResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("google", "error").Inc()
		return Location{}, fmt.Errorf("parsing geocode response: %w", err)
	}

	if apiResp.Status != "OK" || len(apiResp.Results) == 0 {
		metrics.GeocodeRequestsTotal.WithLabelValues("google", "empty").Inc()
		return Location{}, fmt.Errorf("%w: status %q", ErrNoResults, apiResp.Status)
	}

	metrics.GeocodeRequestsTotal.WithLabelValues("google", "ok").Inc()
	loc := apiResp.Results[0].Geometry.Location
	return Location{Lat: loc.Lat, Lon: loc.Lng}, nil
}

type googlePlacesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name             string `json:"name"`
		Vicinity         string `json:"vicinity"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// NearbyPlaces lists venues via the Places Nearby Search API.
func (c *GoogleClient) NearbyPlaces(
	ctx context.Context,
	lat, lon float64,
	radiusMeters int,
) ([]Place, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lon))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("key", c.apiKey)
	params.Set("language", c.language)
	if c.placeType != "" {
		params.Set("type", c.placeType)
	}

	body, err := c.get(ctx, c.placesURL+"?"+params.Encode())
	if err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("google", "error").Inc()
		return nil, err
	}

	var apiResp googlePlacesResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		metrics.GeocodeRequestsTotal.WithLabelValues("google", "error").Inc()
		return nil, fmt.Errorf("parsing places response: %w", err)
	}

	places := make([]Place, 0, len(apiResp.Results))
	for _, item := range apiResp.Results {
		if item.Name == "" {
			continue
		}
		address := item.Vicinity
		if address == "" {
			address = item.FormattedAddress
		}
		places = append(places, Place{
			Name:    item.Name,
			Address: address,
			Lat:     item.Geometry.Location.Lat,
			Lon:     item.Geometry.Location.Lng,
		})
	}

	if len(places) == 0 {
		metrics.GeocodeRequestsTotal.WithLabelValues("google", "empty").Inc()
		return nil, ErrNoResults
	}
	metrics.GeocodeRequestsTotal.WithLabelValues("google", "ok").Inc()
	return places, nil
}

func (c *GoogleClient) get(ctx context.Context, u string) ([]byte, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"google maps API error (status %d): %s",
			resp.StatusCode,
			string(body),
		)
	}
	return body, nil
}
