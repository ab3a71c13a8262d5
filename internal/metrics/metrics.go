// Package metrics holds the Prometheus collectors of the casino service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "casino"

type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Bets counts settled rounds by game and result ("win" or "loss").
	Bets        *prometheus.CounterVec
	BetVolume   *prometheus.CounterVec
	PayoutTotal *prometheus.CounterVec

	// DepositConfirmations counts ConfirmDeposit results: completed, settled, pending, expired.
	DepositConfirmations *prometheus.CounterVec
	// Withdrawals counts withdrawals by result: ok, gateway_error, audit_error.
	Withdrawals *prometheus.CounterVec
	// Refunds counts compensating credits by flow and result.
	Refunds *prometheus.CounterVec

	NotificationsDropped prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distributions.",
			Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"}),
		Bets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_total",
			Help:      "Settled game rounds.",
		}, []string{"game", "result"}),
		BetVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bet_volume",
			Help:      "Sum of settled bets in asset units.",
		}, []string{"game"}),
		PayoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payout_volume",
			Help:      "Sum of credited wins in asset units.",
		}, []string{"game"}),
		DepositConfirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposit_confirmations_total",
			Help:      "Deposit confirmation attempts by result.",
		}, []string{"result"}),
		Withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals_total",
			Help:      "Withdrawal attempts by result.",
		}, []string{"result"}),
		Refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Compensating credits by flow and result.",
		}, []string{"flow", "result"}),
		NotificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Admin notifications dropped because the queue was full.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests, m.HTTPDuration,
		m.Bets, m.BetVolume, m.PayoutTotal,
		m.DepositConfirmations, m.Withdrawals, m.Refunds,
		m.NotificationsDropped,
	)

	return m
}

// NewUnregistered is for tests and callers that never expose the collectors.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
