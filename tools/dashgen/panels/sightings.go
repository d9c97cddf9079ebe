package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// SightingsRate returns a timeseries panel showing sightings ingested per minute.
func SightingsRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Sightings / min").
		Description("Rate of price sightings ingested per minute").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`crowdprice:sightings_ingested:rate5m * 60`, "sightings/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ValidationsRate returns a timeseries panel showing sightings promoted to
// validated per minute.
func ValidationsRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Validations / min").
		Description("Rate of sightings promoted to validated per minute").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`crowdprice:sightings_validated:rate5m * 60`, "validated/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}
