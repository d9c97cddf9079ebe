// Package notify defines the notification delivery interface and its
// implementations. The matching engine decides WHEN a notification
// exists; this package only moves it to the user.
package notify

import (
	"context"
	"time"

	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// Event is a notification enriched with display context for delivery.
type Event struct {
	NotificationID int64           `json:"notification_id"`
	UserID         string          `json:"user_id"`
	AlertID        string          `json:"alert_id"`
	SightingID     string          `json:"sighting_id"`
	ProductName    string          `json:"product_name"`
	DisplayName    string          `json:"display_name"`
	StoreName      string          `json:"store_name"`
	Price          float64         `json:"price"`
	Currency       domain.Currency `json:"currency"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Notifier delivers a notification event to the user. Delivery is best
// effort: the notification row is already persisted, so a failed push
// only delays the user until their next poll.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout delivers each event to every wrapped notifier, returning the
// first error after trying all of them.
type Fanout []Notifier

// Publish sends the event through every notifier.
func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var firstErr error
	for _, n := range f {
		if err := n.Publish(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
