package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesTotal counts priced invoices by outcome (ok or invalid).
	QuotesTotal *prometheus.CounterVec
	// QuoteWarningsTotal counts advisory warnings attached to successful quotes.
	QuoteWarningsTotal *prometheus.CounterVec
	// QuoteAmount records quoted totals per country in currency units.
	QuoteAmount *prometheus.HistogramVec
	// RateLimitRejected counts requests refused by the rate limiter.
	RateLimitRejected prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of invoice quotes by outcome.",
		}, []string{"country", "result"})
		QuoteWarningsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quote_warnings_total",
			Help:      "Count of advisory warnings returned with quotes.",
		}, []string{"warning"})
		QuoteAmount = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_quote_amount",
			Help:      "Distribution of quoted invoice totals.",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		}, []string{"country"})
		RateLimitRejected = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_rejected_total",
			Help:      "Number of requests rejected by the rate limiter.",
		})

		QuotesTotal = registerOrReuse(reg, QuotesTotal)
		QuoteWarningsTotal = registerOrReuse(reg, QuoteWarningsTotal)
		QuoteAmount = registerOrReuse(reg, QuoteAmount)
		RateLimitRejected = registerOrReuse(reg, RateLimitRejected)
	})
}
