package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/crowdprice/crowdprice/api/openapi"
	"github.com/crowdprice/crowdprice/internal/api/handlers"
	mw "github.com/crowdprice/crowdprice/internal/api/middleware"
	"github.com/crowdprice/crowdprice/internal/auth"
	"github.com/crowdprice/crowdprice/internal/config"
	"github.com/crowdprice/crowdprice/internal/engine"
	"github.com/crowdprice/crowdprice/internal/geocode"
	"github.com/crowdprice/crowdprice/internal/notify"
	"github.com/crowdprice/crowdprice/internal/store"
	"github.com/crowdprice/crowdprice/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and sweep scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelConnect()

	s, err := store.NewPostgresStore(connectCtx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer s.Close()

	provider := auth.NewOTPClient(cfg.Auth.BaseURL, cfg.Auth.APIKey)
	admin := newAdminChecker(cfg, s, log)
	geocoder := newGeocoder(cfg, log)

	hub, notifier := newNotifier(cfg, log)

	matcher := engine.NewMatcher(s, notifier, engine.WithLogger(log))
	scheduler, err := engine.NewScheduler(matcher, cfg.Schedule.SweepInterval, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	scheduler.Start()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(mw.Recovery(log))
	e.Use(mw.RequestLog(log))
	e.Use(mw.Metrics())

	health := handlers.NewHealthHandler(s)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	openapi.RegisterRoutes(e)

	api := humaecho.New(e, huma.DefaultConfig("crowdprice", Version))
	session := mw.Session(api, provider, s, log)

	handlers.RegisterAuthRoutes(api, handlers.NewAuthHandler(provider, s, log))
	handlers.RegisterStoreRoutes(api, handlers.NewStoreHandler(s, geocoder, log))
	handlers.RegisterPriceRoutes(api, handlers.NewPriceHandler(s))
	handlers.RegisterSightingRoutes(api, handlers.NewSightingHandler(s, matcher, log), session)
	handlers.RegisterAlertRoutes(api, handlers.NewAlertHandler(s), session)
	handlers.RegisterNotificationRoutes(api, handlers.NewNotificationHandler(s), session)
	handlers.RegisterSettingsRoutes(api, handlers.NewSettingsHandler(s, admin), session)

	if hub != nil {
		e.GET("/ws/notifications", wsHandler(hub, provider, log))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	<-scheduler.Stop().Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func newAdminChecker(cfg *config.Config, s store.Store, log *slog.Logger) *auth.AdminChecker {
	opts := []auth.AdminCheckerOption{auth.WithAdminLogger(log)}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, auth.WithAdminCache(client))
	}
	return auth.NewAdminChecker(s, opts...)
}

// newGeocoder builds the provider chain: Google primary with OSM fallback
// when an API key is configured, OSM alone otherwise.
func newGeocoder(cfg *config.Config, log *slog.Logger) geocode.Geocoder {
	rl := geocode.NewRateLimiter(
		cfg.Geocoding.RateLimit.PerSecond,
		cfg.Geocoding.RateLimit.Burst,
		cfg.Geocoding.RateLimit.DailyLimit,
	)

	osm := geocode.NewOSMClient(
		geocode.WithNominatimURL(cfg.Geocoding.NominatimURL),
		geocode.WithOverpassURL(cfg.Geocoding.OverpassURL),
		geocode.WithUserAgent(cfg.Geocoding.UserAgent),
		geocode.WithOSMRateLimiter(rl),
	)

	if cfg.Geocoding.GoogleAPIKey == "" {
		return osm
	}

	google := geocode.NewGoogleClient(cfg.Geocoding.GoogleAPIKey,
		geocode.WithLanguage(cfg.Geocoding.Language),
		geocode.WithPlaceType(cfg.Geocoding.PlaceType),
	)
	return geocode.NewChain(google, osm, log)
}

// newNotifier assembles the delivery fanout from config. The hub is nil
// when push is disabled; polling works regardless.
func newNotifier(cfg *config.Config, log *slog.Logger) (*notify.Hub, notify.Notifier) {
	var fanout notify.Fanout
	var hub *notify.Hub

	if cfg.Notifications.PushEnabled {
		hub = notify.NewHub(log)
		fanout = append(fanout, hub)
	}
	if cfg.Notifications.Webhook.Enabled {
		fanout = append(fanout, notify.NewWebhookNotifier(cfg.Notifications.Webhook.URL))
	}

	if len(fanout) == 0 {
		return nil, notify.NewNoOpNotifier(log)
	}
	return hub, fanout
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsHandler authenticates the client and hands the connection to the hub.
// Browsers cannot set the Authorization header on websocket dials, so the
// preferred channel is the subprotocol pair ("bearer", token), which stays
// out of access logs and proxy traces. The query parameter remains as a
// fallback for simple clients.
func wsHandler(hub *notify.Hub, provider auth.Provider, log *slog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, subprotocol := wsToken(c.Request())
		if token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing token"})
		}

		id, err := provider.Introspect(c.Request().Context(), token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid session"})
		}

		var respHeader http.Header
		if subprotocol != "" {
			respHeader = http.Header{"Sec-WebSocket-Protocol": []string{subprotocol}}
		}

		conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), respHeader)
		if err != nil {
			log.Warn("websocket upgrade failed", "error", err)
			return nil
		}

		hub.Serve(id.UserID, conn)
		return nil
	}
}

// wsToken extracts the session token from the upgrade request. The
// returned subprotocol, when non-empty, must be echoed in the upgrade
// response for the handshake to complete.
func wsToken(r *http.Request) (token, subprotocol string) {
	if protos := websocket.Subprotocols(r); len(protos) == 2 && protos[0] == "bearer" {
		return protos[1], "bearer"
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer "), ""
	}
	return r.URL.Query().Get("token"), ""
}
