package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MatiasVigueraBarrientos/quant-research-lab/internal/backtest"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Outbound HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Experiment metrics
	pricesFetched    *prometheus.CounterVec
	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	periods          prometheus.Gauge
	rebalances       prometheus.Gauge
	overlaps         prometheus.Gauge
	turnover         prometheus.Gauge
	cost             prometheus.Gauge
	sharpe           prometheus.Gauge
	maxDrawdown      prometheus.Gauge
	totalReturn      prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_http_requests_total",
				Help: "Total number of outbound HTTP requests",
			},
			[]string{"host", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantlab_http_request_duration_seconds",
				Help:    "Outbound HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "quantlab_http_requests_in_flight",
				Help: "Number of outbound HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.pricesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantlab_price_panels_total",
			Help: "Total number of price panels loaded",
		},
		[]string{"source", "status"},
	)
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantlab_backtests_total",
			Help: "Total number of backtests",
		},
		[]string{"status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quantlab_backtest_duration_seconds",
			Help:    "Backtest duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
	r.periods = newGauge("quantlab_backtest_active_periods", "Periods in the active segment of the last backtest")
	r.rebalances = newGauge("quantlab_backtest_rebalances", "Rebalances in the last backtest")
	r.overlaps = newGauge("quantlab_backtest_overlapping_rebalances", "Rebalances where long and short baskets shared assets")
	r.turnover = newGauge("quantlab_backtest_turnover", "Total L1 turnover of the last backtest")
	r.cost = newGauge("quantlab_backtest_cost", "Total transaction cost of the last backtest, in return units")
	r.sharpe = newGauge("quantlab_backtest_sharpe_ratio", "Annualized Sharpe ratio of the last backtest, NaN when undefined")
	r.maxDrawdown = newGauge("quantlab_backtest_max_drawdown", "Maximum drawdown of the last backtest")
	r.totalReturn = newGauge("quantlab_backtest_total_return", "Total compounded return of the last backtest")

	reg.MustRegister(r.pricesFetched)
	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.periods)
	reg.MustRegister(r.rebalances)
	reg.MustRegister(r.overlaps)
	reg.MustRegister(r.turnover)
	reg.MustRegister(r.cost)
	reg.MustRegister(r.sharpe)
	reg.MustRegister(r.maxDrawdown)
	reg.MustRegister(r.totalReturn)

	return r
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
}

// RecordRequest records metrics for an outbound HTTP request.
func (r *Registry) RecordRequest(host string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(host, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(host).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordPrices records a price panel load.
func (r *Registry) RecordPrices(source, status string) {
	r.pricesFetched.WithLabelValues(source, status).Inc()
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
}

// ObserveStats publishes the statistics of a finished backtest.
func (r *Registry) ObserveStats(s backtest.Stats) {
	r.periods.Set(float64(s.Periods))
	r.rebalances.Set(float64(s.Rebalances))
	r.overlaps.Set(float64(s.Overlaps))
	r.turnover.Set(s.TotalTurnover)
	r.cost.Set(s.TotalCost)
	r.sharpe.Set(s.SharpeRatio)
	r.maxDrawdown.Set(s.MaxDrawdown)
	r.totalReturn.Set(s.TotalReturn)
}

// WriteTextfile writes every metric in the text exposition format, as read
// by the node exporter's textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	default:
		return "error"
	}
}
