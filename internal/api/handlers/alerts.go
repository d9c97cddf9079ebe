package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crowdprice/crowdprice/internal/api/middleware"
	"github.com/crowdprice/crowdprice/internal/store"
	"github.com/crowdprice/crowdprice/pkg/normalize"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// AlertHandler handles price alert management.
type AlertHandler struct {
	store store.Store
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(s store.Store) *AlertHandler {
	return &AlertHandler{store: s}
}

// CreateAlertInput is the request body for alert creation. The caller's
// location becomes the alert's fixed reference point.
type CreateAlertInput struct {
	Body struct {
		ProductName string   `json:"product_name" minLength:"1" doc:"Product to watch" example:"Leche Entera 1L"`
		Currency    string   `json:"currency" enum:"ARS,USD,EUR" doc:"Currency the target price is in" example:"ARS"`
		TargetPrice *float64 `json:"target_price,omitempty" exclusiveMinimum:"0" doc:"Notify at or below this price; omit to match any price"`
		RadiusKm    float64  `json:"radius_km" exclusiveMinimum:"0" maximum:"100" doc:"Radius around the reference point" example:"5"`
		Lat         float64  `json:"lat" minimum:"-90" maximum:"90" doc:"Reference point latitude, captured now"`
		Lon         float64  `json:"lon" minimum:"-180" maximum:"180" doc:"Reference point longitude, captured now"`
	}
}

// CreateAlertOutput is the response body for alert creation.
type CreateAlertOutput struct {
	Body domain.Alert
}

// Create registers a standing alert. The product is created on first
// sight, same as for reports, so alerts can precede the first sighting.
func (h *AlertHandler) Create(ctx context.Context, input *CreateAlertInput) (*CreateAlertOutput, error) {
	id, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("authentication required")
	}

	name := normalize.Normalize(input.Body.ProductName)
	if name == "" {
		return nil, huma.Error422UnprocessableEntity("product name is empty after normalization")
	}

	productID, err := h.store.UpsertProduct(ctx, name, domain.Currency(input.Body.Currency))
	if err != nil {
		return nil, huma.Error500InternalServerError("upserting product: " + err.Error())
	}

	a := &domain.Alert{
		UserID:      id.UserID,
		ProductID:   productID,
		TargetPrice: input.Body.TargetPrice,
		RadiusKm:    input.Body.RadiusKm,
		Lat:         input.Body.Lat,
		Lon:         input.Body.Lon,
		Active:      true,
	}
	if err := h.store.CreateAlert(ctx, a); err != nil {
		return nil, huma.Error500InternalServerError("creating alert: " + err.Error())
	}

	out := &CreateAlertOutput{}
	out.Body = *a
	return out, nil
}

// ListAlertsOutput is the response body for the alert listing endpoint.
type ListAlertsOutput struct {
	Body struct {
		Alerts []domain.Alert `json:"alerts" doc:"All alerts owned by the caller"`
	}
}

// List returns the caller's alerts, active and paused.
func (h *AlertHandler) List(ctx context.Context, _ *struct{}) (*ListAlertsOutput, error) {
	id, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("authentication required")
	}

	alerts, err := h.store.ListAlertsByUser(ctx, id.UserID)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing alerts: " + err.Error())
	}

	if alerts == nil {
		alerts = []domain.Alert{}
	}

	out := &ListAlertsOutput{}
	out.Body.Alerts = alerts
	return out, nil
}

// SetAlertActiveInput is the request for the alert toggle endpoint.
type SetAlertActiveInput struct {
	ID   string `path:"id" doc:"Alert id"`
	Body struct {
		Active bool `json:"active" doc:"Whether the alert should match during sweeps"`
	}
}

// SetAlertActiveOutput is the response for the alert toggle endpoint.
type SetAlertActiveOutput struct {
	Body StatusResponse
}

// SetActive pauses or resumes an alert. Only the owner may toggle it.
func (h *AlertHandler) SetActive(ctx context.Context, input *SetAlertActiveInput) (*SetAlertActiveOutput, error) {
	id, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("authentication required")
	}

	a, err := h.store.GetAlert(ctx, input.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, huma.Error404NotFound("alert not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("loading alert: " + err.Error())
	}

	if a.UserID != id.UserID {
		return nil, huma.Error403Forbidden("not the alert owner")
	}

	if err := h.store.SetAlertActive(ctx, input.ID, input.Body.Active); err != nil {
		return nil, huma.Error500InternalServerError("updating alert: " + err.Error())
	}

	out := &SetAlertActiveOutput{}
	out.Body.Status = "updated"
	return out, nil
}

// RegisterAlertRoutes registers alert endpoints with the Huma API.
func RegisterAlertRoutes(api huma.API, h *AlertHandler, middlewares ...func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-alert",
		Method:        http.MethodPost,
		Path:          "/api/v1/alerts",
		Summary:       "Create a price alert",
		Description:   "Registers a standing alert anchored to the caller's current location.",
		Tags:          []string{"alerts"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnauthorized, http.StatusUnprocessableEntity},
		Middlewares:   middlewares,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "list-alerts",
		Method:      http.MethodGet,
		Path:        "/api/v1/alerts",
		Summary:     "List alerts",
		Description: "Returns all alerts owned by the caller.",
		Tags:        []string{"alerts"},
		Errors:      []int{http.StatusUnauthorized},
		Middlewares: middlewares,
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "set-alert-active",
		Method:      http.MethodPut,
		Path:        "/api/v1/alerts/{id}/active",
		Summary:     "Pause or resume an alert",
		Description: "Toggles whether the alert participates in matcher sweeps.",
		Tags:        []string{"alerts"},
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
		Middlewares: middlewares,
	}, h.SetActive)
}
