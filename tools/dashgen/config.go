package main

import "fmt"

// Config controls what dashgen emits and where.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

func (c Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output dir must not be empty")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return fmt.Errorf("nothing to generate: both dashboard and rules are disabled")
	}
	return nil
}

// KnownMetrics lists every metric name the service exports, plus the
// recording rule outputs defined in rules/recording.go. The validator
// flags any panel query that references a metric outside this set.
// Histogram series are listed by their base name; the validator strips
// _bucket/_sum/_count suffixes before lookup.
var KnownMetrics = map[string]bool{
	// HTTP server
	"crowdprice_http_request_duration_seconds": true,
	"crowdprice_http_requests_total":           true,

	// Ingestion and validation
	"crowdprice_sightings_ingested_total":  true,
	"crowdprice_sightings_validated_total": true,

	// Alert matcher
	"crowdprice_sweeps_total":           true,
	"crowdprice_sweep_errors_total":     true,
	"crowdprice_sweep_duration_seconds": true,
	"crowdprice_malformed_alerts_total": true,

	// Notifications
	"crowdprice_notifications_emitted_total": true,
	"crowdprice_push_clients_connected":      true,

	// Geocoding
	"crowdprice_geocode_requests_total":  true,
	"crowdprice_geocode_fallbacks_total": true,

	// Health
	"crowdprice_healthz_up": true,
	"crowdprice_readyz_up":  true,

	// Recording rules
	"crowdprice:http_requests:rate5m":         true,
	"crowdprice:http_errors:rate5m":           true,
	"crowdprice:sightings_ingested:rate5m":    true,
	"crowdprice:sightings_validated:rate5m":   true,
	"crowdprice:sweep_errors:rate5m":          true,
	"crowdprice:geocode_fallbacks:rate5m":     true,
	"crowdprice:notifications_emitted:rate5m": true,

	// Standard exporter series
	"up":                         true,
	"process_start_time_seconds": true,
}
