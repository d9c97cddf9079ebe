// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/crowdprice/crowdprice/tools/dashgen/panels"
)

// BuildOverview constructs the Crowdprice Overview dashboard with all
// metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Crowdprice Overview").
		Uid("crowdprice-overview").
		Tags([]string{"crowdprice"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	// Row 1: Overview.
	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.PushClientsStat()).
		WithPanel(panels.UptimeStat()))

	// Row 2: HTTP.
	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	// Row 3: Sightings.
	b.WithRow(dashboard.NewRowBuilder("Sightings").
		WithPanel(panels.SightingsRate()).
		WithPanel(panels.ValidationsRate()))

	// Row 4: Alert Matcher.
	b.WithRow(dashboard.NewRowBuilder("Alert Matcher").
		WithPanel(panels.SweepRate()).
		WithPanel(panels.SweepDuration()).
		WithPanel(panels.SweepErrors()).
		WithPanel(panels.MalformedAlerts()))

	// Row 5: Geocoding.
	b.WithRow(dashboard.NewRowBuilder("Geocoding").
		WithPanel(panels.GeocodeRequests()).
		WithPanel(panels.GeocodeFallbacks()))

	// Row 6: Notifications.
	b.WithRow(dashboard.NewRowBuilder("Notifications").
		WithPanel(panels.NotificationsRate()).
		WithPanel(panels.PushClientsSeries()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
