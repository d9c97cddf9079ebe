// Package validate checks generated dashboards against the set of metrics
// the service actually exports.
package validate

import (
	"fmt"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/prometheus/prometheus/promql/parser"
)

// Result collects validation findings. Errors fail validation, warnings
// do not.
type Result struct {
	Errors   []string
	Warnings []string
}

func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Dashboard parses every panel query in dash and verifies that each
// referenced metric is in knownMetrics. Histogram suffixes (_bucket, _sum,
// _count) are stripped before lookup.
func Dashboard(dash dashboard.Dashboard, knownMetrics map[string]bool) Result {
	var result Result

	for _, p := range dash.Panels {
		switch {
		case p.Panel != nil:
			checkPanel(*p.Panel, knownMetrics, &result)
		case p.RowPanel != nil:
			for _, inner := range p.RowPanel.Panels {
				checkPanel(inner, knownMetrics, &result)
			}
		}
	}

	return result
}

func checkPanel(p dashboard.Panel, knownMetrics map[string]bool, result *Result) {
	title := "untitled"
	if p.Title != nil {
		title = *p.Title
	}

	if len(p.Targets) == 0 {
		result.warnf("panel %q has no queries", title)
		return
	}

	for _, target := range p.Targets {
		expr, ok := queryExpr(target)
		if !ok {
			result.warnf("panel %q has a non-Prometheus query target", title)
			continue
		}
		checkExpr(title, expr, knownMetrics, result)
	}
}

func queryExpr(target any) (string, bool) {
	switch q := target.(type) {
	case prometheus.Dataquery:
		return q.Expr, true
	case *prometheus.Dataquery:
		return q.Expr, true
	default:
		return "", false
	}
}

func checkExpr(panel, expr string, knownMetrics map[string]bool, result *Result) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		result.errorf("panel %q: invalid PromQL %q: %v", panel, expr, err)
		return
	}

	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok || vs.Name == "" {
			return nil
		}
		if !knownMetric(vs.Name, knownMetrics) {
			result.errorf("panel %q references unknown metric %q", panel, vs.Name)
		}
		return nil
	})
}

func knownMetric(name string, knownMetrics map[string]bool) bool {
	if knownMetrics[name] {
		return true
	}
	for _, suffix := range []string{"_bucket", "_sum", "_count"} {
		if base, found := strings.CutSuffix(name, suffix); found && knownMetrics[base] {
			return true
		}
	}
	return false
}
