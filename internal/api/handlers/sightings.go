package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crowdprice/crowdprice/internal/api/middleware"
	"github.com/crowdprice/crowdprice/internal/metrics"
	"github.com/crowdprice/crowdprice/internal/store"
	"github.com/crowdprice/crowdprice/pkg/normalize"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// Sweeper triggers a matcher pass over current sightings and alerts.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// sweepTimeout bounds the async matcher pass kicked off after a report.
const sweepTimeout = 30 * time.Second

// SightingHandler handles price report submissions.
type SightingHandler struct {
	store   store.Store
	sweeper Sweeper
	log     *slog.Logger
}

// NewSightingHandler creates a new SightingHandler. The sweeper may be nil,
// in which case reports wait for the next scheduled matcher pass.
func NewSightingHandler(s store.Store, sw Sweeper, log *slog.Logger) *SightingHandler {
	return &SightingHandler{store: s, sweeper: sw, log: log}
}

// CreateSightingInput is the request body for a price report.
type CreateSightingInput struct {
	Body struct {
		ProductName string  `json:"product_name" minLength:"1" doc:"Product name as seen on the shelf" example:"Leche Entera 1L"`
		Currency    string  `json:"currency" enum:"ARS,USD,EUR" doc:"Currency of the reported price" example:"ARS"`
		Price       float64 `json:"price" exclusiveMinimum:"0" doc:"Observed price" example:"1250.50"`
		StoreID     string  `json:"store_id" minLength:"1" doc:"Store where the price was seen"`
	}
}

// CreateSightingOutput is the response body for a price report.
type CreateSightingOutput struct {
	Body struct {
		ID        string `json:"id" doc:"Sighting id"`
		ProductID string `json:"product_id" doc:"Canonical product id the report was attached to"`
		Status    string `json:"status" example:"recorded"`
	}
}

// Create records a price sighting: the product name is normalized, the
// product is created on first sight, and the report is stored append-only.
func (h *SightingHandler) Create(ctx context.Context, input *CreateSightingInput) (*CreateSightingOutput, error) {
	id, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("authentication required")
	}

	name := normalize.Normalize(input.Body.ProductName)
	if name == "" {
		return nil, huma.Error422UnprocessableEntity("product name is empty after normalization")
	}

	st, err := h.store.GetStore(ctx, input.Body.StoreID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, huma.Error404NotFound("store not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("loading store: " + err.Error())
	}

	productID, err := h.store.UpsertProduct(ctx, name, domain.Currency(input.Body.Currency))
	if err != nil {
		return nil, huma.Error500InternalServerError("upserting product: " + err.Error())
	}

	sg := &domain.Sighting{
		UserID:    id.UserID,
		ProductID: productID,
		StoreID:   st.ID,
		Price:     input.Body.Price,
		Lat:       st.Lat,
		Lon:       st.Lon,
	}
	if err := h.store.InsertSighting(ctx, sg); err != nil {
		return nil, huma.Error500InternalServerError("inserting sighting: " + err.Error())
	}

	metrics.SightingsIngestedTotal.Inc()

	h.kickSweep()

	out := &CreateSightingOutput{}
	out.Body.ID = sg.ID
	out.Body.ProductID = productID
	out.Body.Status = "recorded"
	return out, nil
}

// kickSweep runs a matcher pass in the background so fresh reports can
// validate waiting alerts without delaying the response.
func (h *SightingHandler) kickSweep() {
	if h.sweeper == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		if err := h.sweeper.Sweep(ctx); err != nil {
			h.log.Warn("post-report sweep failed", "error", err)
		}
	}()
}

// RegisterSightingRoutes registers sighting endpoints with the Huma API.
func RegisterSightingRoutes(api huma.API, h *SightingHandler, middlewares ...func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-sighting",
		Method:        http.MethodPost,
		Path:          "/api/v1/sightings",
		Summary:       "Report a price",
		Description:   "Records a user-reported price observation for a product at a store.",
		Tags:          []string{"sightings"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity},
		Middlewares:   middlewares,
	}, h.Create)
}
