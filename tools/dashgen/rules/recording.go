package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "crowdprice-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "crowdprice-recording",
					Rules: []Rule{
						{
							Record: "crowdprice:http_requests:rate5m",
							Expr:   `sum(rate(crowdprice_http_requests_total[5m]))`,
						},
						{
							Record: "crowdprice:http_errors:rate5m",
							Expr:   `sum(rate(crowdprice_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "crowdprice:sightings_ingested:rate5m",
							Expr:   `rate(crowdprice_sightings_ingested_total[5m])`,
						},
						{
							Record: "crowdprice:sightings_validated:rate5m",
							Expr:   `rate(crowdprice_sightings_validated_total[5m])`,
						},
						{
							Record: "crowdprice:sweep_errors:rate5m",
							Expr:   `rate(crowdprice_sweep_errors_total[5m])`,
						},
						{
							Record: "crowdprice:geocode_fallbacks:rate5m",
							Expr:   `rate(crowdprice_geocode_fallbacks_total[5m])`,
						},
						{
							Record: "crowdprice:notifications_emitted:rate5m",
							Expr:   `sum(rate(crowdprice_notifications_emitted_total[5m]))`,
						},
					},
				},
			},
		},
	}
}
