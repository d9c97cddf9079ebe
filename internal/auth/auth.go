// Package auth wraps the external identity provider. The provider owns
// email OTP issuance and verification; this package only exposes the
// "send code" / "verify code -> session" contract plus token
// introspection for request authentication.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidEmail is returned when the provider rejects the address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidCode is returned when the OTP code is wrong or expired.
	ErrInvalidCode = errors.New("invalid or expired code")
	// ErrRateLimited is returned when the provider throttles OTP sends.
	ErrRateLimited = errors.New("too many code requests")
	// ErrInvalidToken is returned when a session token fails introspection.
	ErrInvalidToken = errors.New("invalid session token")
)

// Session is the result of a successful OTP verification.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity is the resolved owner of a session token.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Provider is the identity provider contract.
type Provider interface {
	// SendCode asks the provider to email a one-time code.
	SendCode(ctx context.Context, email string) error
	// VerifyCode exchanges an emailed code for a session.
	VerifyCode(ctx context.Context, email, code string) (*Session, error)
	// Introspect resolves a session token to its identity.
	Introspect(ctx context.Context, token string) (*Identity, error)
}
