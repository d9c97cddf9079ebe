package handlers_test

import (
	"github.com/danielgtaylor/huma/v2"

	mw "github.com/crowdprice/crowdprice/internal/api/middleware"
	"github.com/crowdprice/crowdprice/internal/auth"
)

// asUser returns middleware that injects a fixed identity, standing in for
// the session middleware in handler tests.
func asUser(userID, email string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		id := &auth.Identity{UserID: userID, Email: email}
		next(huma.WithContext(ctx, mw.WithIdentity(ctx.Context(), id)))
	}
}
