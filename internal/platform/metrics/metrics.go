package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	SubscribersRegistered  prometheus.Counter
	SubscriptionsConfirmed prometheus.Counter
	NewslettersPublished   prometheus.Counter
	EmailsSent             prometheus.Counter
	EmailsFailed           prometheus.Counter
	EmailsSkipped          prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		SubscribersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bulletin_subscribers_registered_total",
			Help: "Total number of subscribers registered (pending confirmation)",
		}),
		SubscriptionsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bulletin_subscriptions_confirmed_total",
			Help: "Total number of subscription confirmations processed",
		}),
		NewslettersPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bulletin_newsletters_published_total",
			Help: "Total number of newsletter publish requests processed",
		}),
		EmailsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bulletin_newsletter_emails_sent_total",
			Help: "Total number of newsletter emails delivered to the transport",
		}),
		EmailsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bulletin_newsletter_emails_failed_total",
			Help: "Total number of newsletter emails that failed to send",
		}),
		EmailsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bulletin_newsletter_emails_skipped_total",
			Help: "Total number of recipients skipped by the idempotency ledger",
		}),
	}
}

// IncrementSubscribersRegistered increments the registration counter by 1.
func (m *Metrics) IncrementSubscribersRegistered() {
	if m == nil {
		return
	}
	m.SubscribersRegistered.Inc()
}

// IncrementSubscriptionsConfirmed increments the confirmation counter by 1.
func (m *Metrics) IncrementSubscriptionsConfirmed() {
	if m == nil {
		return
	}
	m.SubscriptionsConfirmed.Inc()
}
