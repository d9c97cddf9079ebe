package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdprice/crowdprice/internal/auth"
	"github.com/crowdprice/crowdprice/internal/notify"
	"github.com/crowdprice/crowdprice/pkg/logger"
)

type wsStubProvider struct{}

func (wsStubProvider) SendCode(context.Context, string) error { return auth.ErrRateLimited }

func (wsStubProvider) VerifyCode(context.Context, string, string) (*auth.Session, error) {
	return nil, auth.ErrInvalidCode
}

func (wsStubProvider) Introspect(_ context.Context, token string) (*auth.Identity, error) {
	if token != "good-token" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Identity{UserID: "user-1", Email: "ana@example.com"}, nil
}

func newWSServer(t *testing.T) (*notify.Hub, string) {
	t.Helper()

	hub := notify.NewHub(logger.Discard())

	e := echo.New()
	e.GET("/ws/notifications", wsHandler(hub, wsStubProvider{}, logger.Discard()))

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications"
}

func TestWSHandler_TokenViaSubprotocol(t *testing.T) {
	t.Parallel()

	hub, url := newWSServer(t)

	dialer := websocket.Dialer{Subprotocols: []string{"bearer", "good-token"}}
	conn, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	defer resp.Body.Close()

	// The handshake must echo the accepted subprotocol.
	assert.Equal(t, "bearer", resp.Header.Get("Sec-WebSocket-Protocol"))

	require.Eventually(t, func() bool {
		return hub.ClientCount("user-1") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWSHandler_TokenViaQueryFallback(t *testing.T) {
	t.Parallel()

	hub, url := newWSServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(url+"?token=good-token", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	defer resp.Body.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount("user-1") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWSHandler_RejectsInvalidToken(t *testing.T) {
	t.Parallel()

	_, url := newWSServer(t)

	dialer := websocket.Dialer{Subprotocols: []string{"bearer", "wrong"}}
	conn, resp, err := dialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSHandler_RejectsMissingToken(t *testing.T) {
	t.Parallel()

	_, url := newWSServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
