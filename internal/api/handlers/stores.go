package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crowdprice/crowdprice/internal/geocode"
	"github.com/crowdprice/crowdprice/internal/store"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// StoreHandler handles store lookup and creation.
type StoreHandler struct {
	store    store.Store
	geocoder geocode.Geocoder
	log      *slog.Logger
}

// NewStoreHandler creates a new StoreHandler.
func NewStoreHandler(s store.Store, g geocode.Geocoder, log *slog.Logger) *StoreHandler {
	return &StoreHandler{store: s, geocoder: g, log: log}
}

// NearbyStoresInput is the query for the nearby-stores endpoint.
type NearbyStoresInput struct {
	Lat      float64 `query:"lat" required:"true" minimum:"-90" maximum:"90" doc:"Latitude of the query point" example:"-34.6037"`
	Lon      float64 `query:"lon" required:"true" minimum:"-180" maximum:"180" doc:"Longitude of the query point" example:"-58.3816"`
	RadiusKm float64 `query:"radius_km" minimum:"0" maximum:"100" default:"5" doc:"Search radius in kilometers" example:"5"`
}

// NearbyStoresOutput is the response for the nearby-stores endpoint.
type NearbyStoresOutput struct {
	Body struct {
		Stores []domain.StoreWithDistance `json:"stores" doc:"Stores within the radius, nearest first"`
	}
}

// Nearby returns stores within a radius of a point, nearest first.
func (h *StoreHandler) Nearby(ctx context.Context, input *NearbyStoresInput) (*NearbyStoresOutput, error) {
	stores, err := h.store.NearbyStores(ctx, input.Lat, input.Lon, input.RadiusKm)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing nearby stores: " + err.Error())
	}

	if stores == nil {
		stores = []domain.StoreWithDistance{}
	}

	out := &NearbyStoresOutput{}
	out.Body.Stores = stores
	return out, nil
}

// CreateStoreInput is the request body for store creation. Either explicit
// coordinates or an address to geocode must be provided.
type CreateStoreInput struct {
	Body struct {
		Name    string   `json:"name" minLength:"1" doc:"Store name" example:"Supermercado Don Pepe"`
		Address string   `json:"address,omitempty" doc:"Street address, geocoded when coordinates are absent" example:"Av. Corrientes 1500, Buenos Aires"`
		Lat     *float64 `json:"lat,omitempty" minimum:"-90" maximum:"90" doc:"Latitude, optional when an address is given"`
		Lon     *float64 `json:"lon,omitempty" minimum:"-180" maximum:"180" doc:"Longitude, optional when an address is given"`
	}
}

// CreateStoreOutput is the response body for store creation.
type CreateStoreOutput struct {
	Body domain.Store
}

// Create creates a store. When coordinates are omitted the address is
// resolved through the geocoding chain.
func (h *StoreHandler) Create(ctx context.Context, input *CreateStoreInput) (*CreateStoreOutput, error) {
	s := &domain.Store{
		Name:    input.Body.Name,
		Address: input.Body.Address,
	}

	switch {
	case input.Body.Lat != nil && input.Body.Lon != nil:
		s.Lat = *input.Body.Lat
		s.Lon = *input.Body.Lon
	case input.Body.Address != "":
		loc, err := h.geocoder.Geocode(ctx, input.Body.Address)
		if errors.Is(err, geocode.ErrNoResults) {
			return nil, huma.Error422UnprocessableEntity("address could not be geocoded")
		}
		if err != nil {
			return nil, huma.Error502BadGateway("geocoding error: " + err.Error())
		}
		s.Lat = loc.Lat
		s.Lon = loc.Lon
	default:
		return nil, huma.Error422UnprocessableEntity("either lat/lon or address is required")
	}

	if err := h.store.CreateStore(ctx, s); err != nil {
		return nil, huma.Error500InternalServerError("creating store: " + err.Error())
	}

	out := &CreateStoreOutput{}
	out.Body = *s
	return out, nil
}

// SuggestStoresInput is the query for the store-suggestion endpoint.
type SuggestStoresInput struct {
	Lat     float64 `query:"lat" required:"true" minimum:"-90" maximum:"90" doc:"Latitude of the query point"`
	Lon     float64 `query:"lon" required:"true" minimum:"-180" maximum:"180" doc:"Longitude of the query point"`
	RadiusM int     `query:"radius_m" minimum:"1" maximum:"5000" default:"500" doc:"Search radius in meters"`
}

// SuggestStoresOutput is the response for the store-suggestion endpoint.
type SuggestStoresOutput struct {
	Body struct {
		Places []geocode.Place `json:"places" doc:"Candidate venues near the point"`
	}
}

// Suggest lists candidate venues near a point from the geocoding provider,
// for users to pick from when registering a store.
func (h *StoreHandler) Suggest(ctx context.Context, input *SuggestStoresInput) (*SuggestStoresOutput, error) {
	places, err := h.geocoder.NearbyPlaces(ctx, input.Lat, input.Lon, input.RadiusM)
	if errors.Is(err, geocode.ErrNoResults) {
		places = []geocode.Place{}
	} else if err != nil {
		return nil, huma.Error502BadGateway("places lookup error: " + err.Error())
	}

	if places == nil {
		places = []geocode.Place{}
	}

	out := &SuggestStoresOutput{}
	out.Body.Places = places
	return out, nil
}

// RegisterStoreRoutes registers store endpoints with the Huma API.
func RegisterStoreRoutes(api huma.API, h *StoreHandler, middlewares ...func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID: "nearby-stores",
		Method:      http.MethodGet,
		Path:        "/api/v1/stores/nearby",
		Summary:     "List nearby stores",
		Description: "Returns stores within a radius of a point, nearest first.",
		Tags:        []string{"stores"},
		Middlewares: middlewares,
	}, h.Nearby)

	huma.Register(api, huma.Operation{
		OperationID:   "create-store",
		Method:        http.MethodPost,
		Path:          "/api/v1/stores",
		Summary:       "Create a store",
		Description:   "Creates a store from explicit coordinates or a geocoded address.",
		Tags:          []string{"stores"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnprocessableEntity, http.StatusBadGateway},
		Middlewares:   middlewares,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "suggest-stores",
		Method:      http.MethodGet,
		Path:        "/api/v1/stores/suggest",
		Summary:     "Suggest nearby venues",
		Description: "Lists candidate venues near a point from the map provider.",
		Tags:        []string{"stores"},
		Errors:      []int{http.StatusBadGateway},
		Middlewares: middlewares,
	}, h.Suggest)
}
