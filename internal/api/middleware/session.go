package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crowdprice/crowdprice/internal/auth"
	"github.com/crowdprice/crowdprice/internal/store"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

type identityKey struct{}

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*auth.Identity)
	return id, ok
}

// Session returns Huma middleware that authenticates requests with a
// bearer token. The token is introspected against the identity
// provider, the user row is refreshed, and the identity is stored in
// the request context for handlers.
func Session(
	api huma.API,
	provider auth.Provider,
	s store.Store,
	log *slog.Logger,
) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token := bearerToken(ctx.Header("Authorization"))
		if token == "" {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing bearer token")
			return
		}

		id, err := provider.Introspect(ctx.Context(), token)
		if err != nil {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid session")
			return
		}

		// Keep the local user row in sync with the identity provider.
		// Failure here is not fatal to the request.
		u := &domain.User{ID: id.UserID, Email: id.Email}
		if err := s.UpsertUser(ctx.Context(), u); err != nil {
			log.Warn("user upsert failed", "user_id", id.UserID, "error", err)
		}

		next(huma.WithContext(ctx, WithIdentity(ctx.Context(), id)))
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
