package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crowdprice/crowdprice/internal/api/middleware"
	"github.com/crowdprice/crowdprice/internal/store"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// NotificationHandler serves the notification poll endpoint.
type NotificationHandler struct {
	store store.Store
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(s store.Store) *NotificationHandler {
	return &NotificationHandler{store: s}
}

// ListNotificationsInput is the query for the notification poll endpoint.
type ListNotificationsInput struct {
	SinceID int64 `query:"since_id" minimum:"0" default:"0" doc:"Return notifications with id greater than this cursor"`
	Limit   int   `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Maximum notifications to return"`
}

// ListNotificationsOutput is the response for the notification poll endpoint.
type ListNotificationsOutput struct {
	Body struct {
		Notifications []domain.Notification `json:"notifications" doc:"Notifications newer than the cursor, oldest first"`
		NextSinceID   int64                 `json:"next_since_id" doc:"Cursor to pass on the next poll"`
	}
}

// List returns the caller's notifications newer than the since_id cursor.
// Clients poll with the returned cursor; ids are monotonically increasing.
func (h *NotificationHandler) List(ctx context.Context, input *ListNotificationsInput) (*ListNotificationsOutput, error) {
	id, ok := middleware.IdentityFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("authentication required")
	}

	notifications, err := h.store.ListNotificationsSince(ctx, id.UserID, input.SinceID, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing notifications: " + err.Error())
	}

	if notifications == nil {
		notifications = []domain.Notification{}
	}

	next := input.SinceID
	if len(notifications) > 0 {
		next = notifications[len(notifications)-1].ID
	}

	out := &ListNotificationsOutput{}
	out.Body.Notifications = notifications
	out.Body.NextSinceID = next
	return out, nil
}

// RegisterNotificationRoutes registers notification endpoints with the Huma API.
func RegisterNotificationRoutes(api huma.API, h *NotificationHandler, middlewares ...func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/api/v1/notifications",
		Summary:     "Poll notifications",
		Description: "Returns notifications newer than the since_id cursor, oldest first.",
		Tags:        []string{"notifications"},
		Errors:      []int{http.StatusUnauthorized},
		Middlewares: middlewares,
	}, h.List)
}
