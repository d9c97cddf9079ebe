package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crowdprice/crowdprice/internal/aggregate"
	"github.com/crowdprice/crowdprice/internal/store"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// PriceHandler serves the aggregated nearby-prices browse view.
type PriceHandler struct {
	store store.Store
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(s store.Store) *PriceHandler {
	return &PriceHandler{store: s}
}

// ListPricesInput is the query for the prices endpoint.
type ListPricesInput struct {
	Lat      float64 `query:"lat" required:"true" minimum:"-90" maximum:"90" doc:"Latitude of the query point"`
	Lon      float64 `query:"lon" required:"true" minimum:"-180" maximum:"180" doc:"Longitude of the query point"`
	RadiusKm float64 `query:"radius_km" minimum:"0" maximum:"100" default:"5" doc:"Search radius in kilometers"`
	Filter   string  `query:"filter" doc:"Free-text product filter" example:"leche"`
	OrderBy  string  `query:"order_by" enum:"recency,price_asc,price_desc" default:"recency" doc:"Result ordering"`
	Limit    int     `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Maximum entries to return"`
}

// ListPricesOutput is the response for the prices endpoint.
type ListPricesOutput struct {
	Body struct {
		Prices []aggregate.PriceEntry `json:"prices" doc:"One entry per (product, store) pair"`
		Count  int                    `json:"count" doc:"Number of entries returned"`
	}
}

// List aggregates sightings at nearby stores into one entry per
// (product, store) pair, each carrying the latest price and a confidence
// tier derived from the report count.
func (h *PriceHandler) List(ctx context.Context, input *ListPricesInput) (*ListPricesOutput, error) {
	nearby, err := h.store.NearbyStores(ctx, input.Lat, input.Lon, input.RadiusKm)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing nearby stores: " + err.Error())
	}

	storeIDs := make([]string, 0, len(nearby))
	storesByID := make(map[string]domain.StoreWithDistance, len(nearby))
	for _, st := range nearby {
		storeIDs = append(storeIDs, st.ID)
		storesByID[st.ID] = st
	}

	out := &ListPricesOutput{}
	out.Body.Prices = []aggregate.PriceEntry{}
	if len(storeIDs) == 0 {
		return out, nil
	}

	sightings, err := h.store.ListSightingsByStores(ctx, storeIDs)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing sightings: " + err.Error())
	}

	productIDs := uniqueProductIDs(sightings)
	products, err := h.store.ListProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing products: " + err.Error())
	}

	productsByID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
	}

	entries := aggregate.Summarize(sightings, productsByID, storesByID, aggregate.Query{
		Filter: input.Filter,
		Sort:   aggregate.SortOrder(input.OrderBy),
		Limit:  input.Limit,
	})

	out.Body.Prices = entries
	out.Body.Count = len(entries)
	return out, nil
}

func uniqueProductIDs(sightings []domain.Sighting) []string {
	seen := make(map[string]struct{}, len(sightings))
	ids := make([]string, 0, len(sightings))
	for _, sg := range sightings {
		if _, ok := seen[sg.ProductID]; ok {
			continue
		}
		seen[sg.ProductID] = struct{}{}
		ids = append(ids, sg.ProductID)
	}
	return ids
}

// RegisterPriceRoutes registers the prices endpoint with the Huma API.
func RegisterPriceRoutes(api huma.API, h *PriceHandler, middlewares ...func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID: "list-prices",
		Method:      http.MethodGet,
		Path:        "/api/v1/prices",
		Summary:     "Browse nearby prices",
		Description: "Returns aggregated latest prices at stores within a radius of a point.",
		Tags:        []string{"prices"},
		Middlewares: middlewares,
	}, h.List)
}
