// Package metrics exposes Prometheus metrics for the HTTP surface and the
// trading pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	messagesParsed   *prometheus.CounterVec
	executions       *prometheus.CounterVec
	tradesClosed     *prometheus.CounterVec
	realizedPnL      *prometheus.HistogramVec
	refreshDuration  prometheus.Histogram
	notifications    *prometheus.CounterVec
	accountBalance   prometheus.Gauge
	openPositions    prometheus.Gauge
	portfolioHeatPct prometheus.Gauge
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
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.messagesParsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbook_messages_total",
			Help: "Total number of inbound messages by parse result",
		},
		[]string{"result"},
	)
	r.executions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbook_executions_total",
			Help: "Total number of execution attempts by outcome",
		},
		[]string{"symbol", "result"},
	)
	r.tradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbook_trades_closed_total",
			Help: "Total number of closed paper trades",
		},
		[]string{"symbol", "reason"},
	)
	r.realizedPnL = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalbook_realized_pnl",
			Help:    "Realized profit/loss per closed trade",
			Buckets: []float64{-500, -250, -100, -50, -10, 0, 10, 50, 100, 250, 500},
		},
		[]string{"symbol"},
	)
	r.refreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalbook_price_refresh_duration_seconds",
			Help:    "Price refresh pass duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)
	r.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbook_notifications_total",
			Help: "Total number of notifications sent",
		},
		[]string{"notifier", "status"},
	)
	r.accountBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalbook_account_balance",
			Help: "Current paper account balance",
		},
	)
	r.openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalbook_open_positions",
			Help: "Number of open paper trades",
		},
	)
	r.portfolioHeatPct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalbook_portfolio_heat_percent",
			Help: "Worst-case loss of open positions as a percent of balance",
		},
	)

	reg.MustRegister(r.messagesParsed)
	reg.MustRegister(r.executions)
	reg.MustRegister(r.tradesClosed)
	reg.MustRegister(r.realizedPnL)
	reg.MustRegister(r.refreshDuration)
	reg.MustRegister(r.notifications)
	reg.MustRegister(r.accountBalance)
	reg.MustRegister(r.openPositions)
	reg.MustRegister(r.portfolioHeatPct)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordMessage records an inbound message as "parsed" or "miss".
func (r *Registry) RecordMessage(result string) {
	r.messagesParsed.WithLabelValues(result).Inc()
}

// RecordExecution records an execution attempt.
func (r *Registry) RecordExecution(symbol, result string) {
	r.executions.WithLabelValues(symbol, result).Inc()
}

// RecordClose records a closed trade and its realized P&L.
func (r *Registry) RecordClose(symbol, reason string, pnl float64) {
	r.tradesClosed.WithLabelValues(symbol, reason).Inc()
	r.realizedPnL.WithLabelValues(symbol).Observe(pnl)
}

// RecordRefresh records a price refresh pass.
func (r *Registry) RecordRefresh(duration float64) {
	r.refreshDuration.Observe(duration)
}

// RecordNotification records a notification attempt.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notifications.WithLabelValues(notifier, status).Inc()
}

// SetAccountState sets the balance and open position gauges.
func (r *Registry) SetAccountState(balance float64, openPositions int) {
	r.accountBalance.Set(balance)
	r.openPositions.Set(float64(openPositions))
}

// SetPortfolioHeat sets the portfolio heat gauge.
func (r *Registry) SetPortfolioHeat(pct float64) {
	r.portfolioHeatPct.Set(pct)
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
	default:
		return "1xx"
	}
}
