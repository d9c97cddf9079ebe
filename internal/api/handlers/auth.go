package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/crowdprice/crowdprice/internal/auth"
	"github.com/crowdprice/crowdprice/internal/store"
	domain "github.com/crowdprice/crowdprice/pkg/types"
)

// AuthHandler passes OTP login requests through to the identity provider.
type AuthHandler struct {
	provider auth.Provider
	store    store.Store
	log      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(provider auth.Provider, s store.Store, log *slog.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, store: s, log: log}
}

// SendCodeInput is the request body for the OTP endpoint.
type SendCodeInput struct {
	Body struct {
		Email string `json:"email" format:"email" doc:"Address to send the one-time code to" example:"ana@example.com"`
	}
}

// SendCodeOutput is the response body for the OTP endpoint.
type SendCodeOutput struct {
	Body StatusResponse
}

// SendCode asks the identity provider to email a one-time login code.
func (h *AuthHandler) SendCode(ctx context.Context, input *SendCodeInput) (*SendCodeOutput, error) {
	err := h.provider.SendCode(ctx, input.Body.Email)
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		return nil, huma.Error429TooManyRequests("too many code requests, try again later")
	case errors.Is(err, auth.ErrInvalidEmail):
		return nil, huma.Error422UnprocessableEntity("invalid email address")
	case err != nil:
		return nil, huma.Error502BadGateway("identity provider error: " + err.Error())
	}

	out := &SendCodeOutput{}
	out.Body.Status = "sent"
	return out, nil
}

// VerifyCodeInput is the request body for the verify endpoint.
type VerifyCodeInput struct {
	Body struct {
		Email string `json:"email" format:"email" doc:"Address the code was sent to" example:"ana@example.com"`
		Code  string `json:"code" minLength:"1" doc:"One-time code from the email" example:"482913"`
	}
}

// VerifyCodeOutput is the response body for the verify endpoint.
type VerifyCodeOutput struct {
	Body struct {
		Token     string    `json:"token" doc:"Bearer token for subsequent requests"`
		UserID    string    `json:"user_id" doc:"Authenticated user id"`
		Email     string    `json:"email" doc:"Authenticated email"`
		ExpiresAt time.Time `json:"expires_at" doc:"Token expiry"`
	}
}

// VerifyCode exchanges an emailed one-time code for a session token and
// ensures the user row exists locally.
func (h *AuthHandler) VerifyCode(ctx context.Context, input *VerifyCodeInput) (*VerifyCodeOutput, error) {
	sess, err := h.provider.VerifyCode(ctx, input.Body.Email, input.Body.Code)
	switch {
	case errors.Is(err, auth.ErrInvalidCode):
		return nil, huma.Error401Unauthorized("invalid or expired code")
	case errors.Is(err, auth.ErrRateLimited):
		return nil, huma.Error429TooManyRequests("too many attempts, try again later")
	case err != nil:
		return nil, huma.Error502BadGateway("identity provider error: " + err.Error())
	}

	u := &domain.User{ID: sess.UserID, Email: sess.Email}
	if err := h.store.UpsertUser(ctx, u); err != nil {
		h.log.Warn("user upsert failed", "user_id", sess.UserID, "error", err)
	}

	out := &VerifyCodeOutput{}
	out.Body.Token = sess.Token
	out.Body.UserID = sess.UserID
	out.Body.Email = sess.Email
	out.Body.ExpiresAt = sess.ExpiresAt
	return out, nil
}

// RegisterAuthRoutes registers authentication endpoints with the Huma API.
// These endpoints are public; no session middleware applies.
func RegisterAuthRoutes(api huma.API, h *AuthHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "send-otp",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/otp",
		Summary:     "Request a login code",
		Description: "Sends a one-time login code to the given email address.",
		Tags:        []string{"auth"},
		Errors:      []int{http.StatusTooManyRequests, http.StatusUnprocessableEntity, http.StatusBadGateway},
	}, h.SendCode)

	huma.Register(api, huma.Operation{
		OperationID: "verify-otp",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/verify",
		Summary:     "Exchange a login code for a session",
		Description: "Verifies the emailed code and returns a bearer token.",
		Tags:        []string{"auth"},
		Errors:      []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusBadGateway},
	}, h.VerifyCode)
}
