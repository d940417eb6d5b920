package metrics

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/backtest"
)

func findMetric(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	// Should have go runtime metrics at minimum
	if len(mfs) == 0 {
		t.Error("expected some metrics to be registered")
	}
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{0, "error"},
		{100, "1xx"},
		{200, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{429, "4xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("query1.finance.yahoo.com", tt.status, 0.01)

			mf := findMetric(t, reg, "quantlab_http_requests_total")
			if mf == nil {
				t.Fatal("expected quantlab_http_requests_total metric")
			}

			found := false
			for _, m := range mf.GetMetric() {
				for _, label := range m.GetLabel() {
					if label.GetName() == "status" && label.GetValue() == tt.expected {
						found = true
					}
				}
			}
			if !found {
				t.Errorf("expected status label %s for status code %d", tt.expected, tt.status)
			}
		})
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	mf := findMetric(t, reg, "quantlab_http_requests_in_flight")
	if mf == nil {
		t.Fatal("expected quantlab_http_requests_in_flight metric")
	}
	if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 1 {
		t.Errorf("expected in-flight gauge to be 1, got %v", v)
	}
}

func TestRegistry_RecordBacktest(t *testing.T) {
	reg := NewRegistry()

	reg.RecordBacktest("success", 0.123)
	reg.RecordBacktest("error", 0.001)

	mf := findMetric(t, reg, "quantlab_backtests_total")
	if mf == nil {
		t.Fatal("expected quantlab_backtests_total metric")
	}
	if len(mf.GetMetric()) != 2 {
		t.Errorf("expected 2 status series, got %d", len(mf.GetMetric()))
	}

	hist := findMetric(t, reg, "quantlab_backtest_duration_seconds").GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 2 {
		t.Errorf("expected sample count 2, got %d", hist.GetSampleCount())
	}
	if hist.GetSampleSum() < 0.12 || hist.GetSampleSum() > 0.13 {
		t.Errorf("expected sample sum ~0.124, got %v", hist.GetSampleSum())
	}
}

func TestRegistry_RecordPrices(t *testing.T) {
	reg := NewRegistry()
	reg.RecordPrices("yahoo", "success")

	mf := findMetric(t, reg, "quantlab_price_panels_total")
	if mf == nil {
		t.Fatal("expected quantlab_price_panels_total metric")
	}
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Errorf("expected 1 price panel, got %v", v)
	}
}

func TestRegistry_ObserveStats(t *testing.T) {
	reg := NewRegistry()

	reg.ObserveStats(backtest.Stats{
		Periods:       1008,
		SharpeRatio:   math.NaN(),
		MaxDrawdown:   -0.25,
		Rebalances:    48,
		TotalTurnover: 30.5,
		TotalCost:     0.01525,
		Overlaps:      2,
	})

	gauges := map[string]float64{
		"quantlab_backtest_active_periods":         1008,
		"quantlab_backtest_rebalances":             48,
		"quantlab_backtest_overlapping_rebalances": 2,
		"quantlab_backtest_turnover":               30.5,
		"quantlab_backtest_cost":                   0.01525,
		"quantlab_backtest_max_drawdown":           -0.25,
	}
	for name, want := range gauges {
		mf := findMetric(t, reg, name)
		if mf == nil {
			t.Errorf("expected %s metric", name)
			continue
		}
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != want {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}

	sharpe := findMetric(t, reg, "quantlab_backtest_sharpe_ratio").GetMetric()[0].GetGauge().GetValue()
	if !math.IsNaN(sharpe) {
		t.Errorf("expected NaN sharpe, got %v", sharpe)
	}
}

func TestRegistry_WriteTextfile(t *testing.T) {
	reg := NewRegistry()
	reg.RecordBacktest("success", 0.5)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := reg.WriteTextfile(path); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `quantlab_backtests_total{status="success"} 1`) {
		t.Errorf("expected backtest counter in textfile, got:\n%s", data)
	}
}

// Ensure the registry implements prometheus.Gatherer interface
func TestRegistry_ImplementsGatherer(t *testing.T) {
	reg := NewRegistry()
	var _ prometheus.Gatherer = reg
}
