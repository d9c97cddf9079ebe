package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// GeocodeRequests returns a timeseries panel showing geocoding requests per
// minute, broken out by provider and outcome.
func GeocodeRequests() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Geocode Requests / min").
		Description("Geocoding requests per minute by provider and outcome").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(crowdprice_geocode_requests_total{job="crowdprice"}[5m])) by (provider, outcome) * 60`,
			"{{provider}}/{{outcome}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// GeocodeFallbacks returns a timeseries panel showing provider fallbacks
// per minute.
func GeocodeFallbacks() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Geocode Fallbacks / min").
		Description("Rate of primary-to-secondary geocoder fallbacks per minute").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`crowdprice:geocode_fallbacks:rate5m * 60`, "fallbacks/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(0.5, 2)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}
