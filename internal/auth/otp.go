package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OTPClient implements Provider against a GoTrue-style identity
// service: POST /otp sends a code, POST /verify exchanges it for an
// access token, GET /user introspects a token.
type OTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	nowFunc func() time.Time
}

// OTPOption configures the OTPClient.
type OTPOption func(*OTPClient)

// WithOTPHTTPClient overrides the default HTTP client.
func WithOTPHTTPClient(c *http.Client) OTPOption {
	return func(o *OTPClient) {
		o.client = c
	}
}

// WithOTPNowFunc overrides the time function for testing.
func WithOTPNowFunc(f func() time.Time) OTPOption {
	return func(o *OTPClient) {
		o.nowFunc = f
	}
}

// NewOTPClient creates a client for the identity service at baseURL.
func NewOTPClient(baseURL, apiKey string, opts ...OTPOption) *OTPClient {
	c := &OTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendCode asks the provider to email a one-time code.
func (c *OTPClient) SendCode(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	resp, err := c.post(ctx, "/otp", body, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusBadRequest ||
		resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	default:
		return unexpectedStatus(resp)
	}
}

type verifyResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// VerifyCode exchanges an emailed code for a session.
func (c *OTPClient) VerifyCode(ctx context.Context, email, code string) (*Session, error) {
	body := map[string]string{
		"type":  "email",
		"email": email,
		"token": code,
	}
	resp, err := c.post(ctx, "/verify", body, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, ErrInvalidCode
	default:
		return nil, unexpectedStatus(resp)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("parsing verify response: %w", err)
	}
	if vr.AccessToken == "" || vr.User.ID == "" {
		return nil, fmt.Errorf("verify response missing token or user")
	}

	return &Session{
		Token:     vr.AccessToken,
		UserID:    vr.User.ID,
		Email:     vr.User.Email,
		ExpiresAt: c.nowFunc().Add(time.Duration(vr.ExpiresIn) * time.Second),
	}, nil
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Introspect resolves a session token to its identity.
func (c *OTPClient) Introspect(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+"/user", http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing user request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, unexpectedStatus(resp)
	}

	var ur userResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, fmt.Errorf("parsing user response: %w", err)
	}
	if ur.ID == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: ur.ID, Email: ur.Email}, nil
}

func (c *OTPClient) post(
	ctx context.Context,
	path string,
	payload any,
	token string,
) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing identity request: %w", err)
	}
	return resp, nil
}

func unexpectedStatus(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if readErr != nil {
		return fmt.Errorf("identity provider returned %d (body unreadable)", resp.StatusCode)
	}
	return fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, body)
}
