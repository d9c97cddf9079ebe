package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdprice/crowdprice/internal/api/handlers"
	"github.com/crowdprice/crowdprice/internal/auth"
	"github.com/crowdprice/crowdprice/internal/store"
	"github.com/crowdprice/crowdprice/pkg/logger"
)

// fakeProvider scripts the identity provider's responses.
type fakeProvider struct {
	sendErr   error
	session   *auth.Session
	verifyErr error
}

func (p *fakeProvider) SendCode(context.Context, string) error {
	return p.sendErr
}

func (p *fakeProvider) VerifyCode(context.Context, string, string) (*auth.Session, error) {
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return p.session, nil
}

func (*fakeProvider) Introspect(context.Context, string) (*auth.Identity, error) {
	return nil, auth.ErrInvalidToken
}

func TestAuthHandler_SendCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		sendErr    error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "code sent",
			wantStatus: http.StatusOK,
			wantBody:   `"status":"sent"`,
		},
		{
			name:       "rate limited",
			sendErr:    auth.ErrRateLimited,
			wantStatus: http.StatusTooManyRequests,
			wantBody:   "too many code requests",
		},
		{
			name:       "invalid email",
			sendErr:    auth.ErrInvalidEmail,
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "invalid email",
		},
		{
			name:       "provider down",
			sendErr:    assert.AnError,
			wantStatus: http.StatusBadGateway,
			wantBody:   "identity provider error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := &fakeProvider{sendErr: tt.sendErr}
			h := handlers.NewAuthHandler(provider, store.NewMemoryStore(), logger.Discard())

			_, api := humatest.New(t)
			handlers.RegisterAuthRoutes(api, h)

			resp := api.Post("/api/v1/auth/otp", map[string]any{
				"email": "ana@example.com",
			})
			require.Equal(t, tt.wantStatus, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.wantBody)
		})
	}
}

func TestAuthHandler_VerifyCode(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	provider := &fakeProvider{
		session: &auth.Session{
			Token:     "session-token",
			UserID:    "user-1",
			Email:     "ana@example.com",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
	h := handlers.NewAuthHandler(provider, s, logger.Discard())

	_, api := humatest.New(t)
	handlers.RegisterAuthRoutes(api, h)

	resp := api.Post("/api/v1/auth/verify", map[string]any{
		"email": "ana@example.com",
		"code":  "482913",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"token":"session-token"`)
	assert.Contains(t, resp.Body.String(), `"user_id":"user-1"`)

	// Verifying a code materializes the local user row.
	u, err := s.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
}

func TestAuthHandler_VerifyCodeRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		verifyErr  error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "wrong code",
			verifyErr:  auth.ErrInvalidCode,
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid or expired code",
		},
		{
			name:       "rate limited",
			verifyErr:  auth.ErrRateLimited,
			wantStatus: http.StatusTooManyRequests,
			wantBody:   "too many attempts",
		},
		{
			name:       "provider down",
			verifyErr:  assert.AnError,
			wantStatus: http.StatusBadGateway,
			wantBody:   "identity provider error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := &fakeProvider{verifyErr: tt.verifyErr}
			h := handlers.NewAuthHandler(provider, store.NewMemoryStore(), logger.Discard())

			_, api := humatest.New(t)
			handlers.RegisterAuthRoutes(api, h)

			resp := api.Post("/api/v1/auth/verify", map[string]any{
				"email": "ana@example.com",
				"code":  "000000",
			})
			require.Equal(t, tt.wantStatus, resp.Code)
			assert.Contains(t, resp.Body.String(), tt.wantBody)
		})
	}
}
