package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// crowdprice operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "crowdprice-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "crowdprice-alerts",
					Rules: []Rule{
						{
							Alert: "CrowdpriceDown",
							Expr:  `absent(up{job="crowdprice"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Crowdprice is down",
								"description": "The crowdprice job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "CrowdpriceReadinessDown",
							Expr:  `crowdprice_readyz_up == 0`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Crowdprice readiness check is failing",
								"description": "The readiness probe has been reporting not-ready for more than 2 minutes.",
							},
						},
						{
							Alert: "CrowdpriceHighErrorRate",
							Expr:  `crowdprice:http_errors:rate5m / crowdprice:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on crowdprice",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "CrowdpriceSweepErrors",
							Expr:  `crowdprice:sweep_errors:rate5m > 0`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Alert sweep errors detected",
								"description": "The alert matcher has been producing sweep errors for more than 5 minutes.",
							},
						},
						{
							Alert: "CrowdpriceMalformedAlerts",
							Expr:  `increase(crowdprice_malformed_alerts_total[1h]) > 10`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Malformed alerts are being skipped",
								"description": "The matcher has skipped more than 10 malformed alerts in the last hour.",
							},
						},
						{
							Alert: "CrowdpriceGeocodeFallbacksHigh",
							Expr:  `crowdprice:geocode_fallbacks:rate5m > 0.1`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Geocoder is falling back to the secondary provider",
								"description": "Primary geocoding requests have been falling back to OSM at more than 0.1/s for 10 minutes.",
							},
						},
						{
							Alert: "CrowdpriceNoSweeps",
							Expr:  `increase(crowdprice_sweeps_total[2h]) == 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "No alert sweeps have run recently",
								"description": "The scheduler has not run an alert sweep in the last 2 hours.",
							},
						},
					},
				},
			},
		},
	}
}
