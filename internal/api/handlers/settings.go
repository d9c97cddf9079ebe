package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crowdprice/crowdprice/internal/api/middleware"
	"github.com/crowdprice/crowdprice/internal/store"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// AdminGate answers whether a user holds the admin capability.
type AdminGate interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// SettingsHandler serves the admin-only validation policy endpoints.
type SettingsHandler struct {
	store store.Store
	admin AdminGate
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(s store.Store, admin AdminGate) *SettingsHandler {
	return &SettingsHandler{store: s, admin: admin}
}

// GetSettingsOutput is the response for the settings read endpoint.
type GetSettingsOutput struct {
	Body domain.Settings
}

// Get returns the current validation policy.
func (h *SettingsHandler) Get(ctx context.Context, _ *struct{}) (*GetSettingsOutput, error) {
	if err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}

	settings, err := h.store.GetSettings(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading settings: " + err.Error())
	}

	out := &GetSettingsOutput{}
	out.Body = *settings
	return out, nil
}

// UpdateSettingsInput is the request body for the settings update endpoint.
type UpdateSettingsInput struct {
	Body struct {
		TolerancePct float64 `json:"validation_price_tolerance_pct" minimum:"0" maximum:"1" doc:"Fractional price tolerance above the target" example:"0.10"`
		WindowDays   int     `json:"validation_window_days" minimum:"1" doc:"How many days of sightings a sweep considers" example:"7"`
		MinMatches   int     `json:"validation_min_matches" minimum:"1" doc:"Independent reports required to validate" example:"2"`
	}
}

// UpdateSettingsOutput is the response for the settings update endpoint.
type UpdateSettingsOutput struct {
	Body domain.Settings
}

// Update replaces the validation policy atomically. The next sweep reads
// the new snapshot.
func (h *SettingsHandler) Update(ctx context.Context, input *UpdateSettingsInput) (*UpdateSettingsOutput, error) {
	if err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}

	settings := &domain.Settings{
		TolerancePct: input.Body.TolerancePct,
		WindowDays:   input.Body.WindowDays,
		MinMatches:   input.Body.MinMatches,
	}
	if err := h.store.UpdateSettings(ctx, settings); err != nil {
		return nil, huma.Error500InternalServerError("updating settings: " + err.Error())
	}

	updated, err := h.store.GetSettings(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading settings: " + err.Error())
	}

	out := &UpdateSettingsOutput{}
	out.Body = *updated
	return out, nil
}

func (h *SettingsHandler) requireAdmin(ctx context.Context) error {
	id, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return huma.Error401Unauthorized("authentication required")
	}

	isAdmin, err := h.admin.IsAdmin(ctx, id.UserID)
	if err != nil {
		return huma.Error500InternalServerError("checking admin capability: " + err.Error())
	}
	if !isAdmin {
		return huma.Error403Forbidden("admin capability required")
	}
	return nil
}

// RegisterSettingsRoutes registers admin settings endpoints with the Huma API.
func RegisterSettingsRoutes(api huma.API, h *SettingsHandler, middlewares ...func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/settings",
		Summary:     "Read validation policy",
		Description: "Returns the singleton validation policy. Admin only.",
		Tags:        []string{"admin"},
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
		Middlewares: middlewares,
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/settings",
		Summary:     "Update validation policy",
		Description: "Replaces the singleton validation policy. Admin only.",
		Tags:        []string{"admin"},
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
		Middlewares: middlewares,
	}, h.Update)
}
