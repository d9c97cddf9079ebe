package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// SweepRate returns a timeseries panel showing alert sweeps per hour.
func SweepRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Sweeps / hour").
		Description("Rate of alert matcher sweeps per hour").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(crowdprice_sweeps_total{job="crowdprice"}[1h])) * 3600`,
			"sweeps/h", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// SweepDuration returns a timeseries panel showing the p95 sweep duration.
func SweepDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Sweep Duration (p95)").
		Description("95th percentile alert sweep duration").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(crowdprice_sweep_duration_seconds_bucket{job="crowdprice"}[5m])) by (le))`,
			"p95",
			"A",
		)).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// SweepErrors returns a timeseries panel showing sweep errors per minute.
func SweepErrors() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Sweep Errors / min").
		Description("Rate of alert sweep errors per minute").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`crowdprice:sweep_errors:rate5m * 60`, "errors/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(0.1, 1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}

// MalformedAlerts returns a stat panel showing malformed alerts skipped
// in the past 24 hours.
func MalformedAlerts() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Malformed Alerts (24h)").
		Description("Alerts skipped by the matcher as malformed in the last 24 hours").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`increase(crowdprice_malformed_alerts_total{job="crowdprice"}[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 10)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
