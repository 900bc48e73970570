package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SiteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kad_site_requests_total",
			Help: "Outbound requests to the court site by kind and result (count)",
		},
		[]string{"kind", "result"},
	)

	SiteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kad_site_request_duration_ms",
			Help:    "Outbound request duration in milliseconds, retries included",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"kind"},
	)

	SiteRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kad_site_retries_total",
			Help: "Retried outbound requests (count)",
		},
		[]string{"kind"},
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kad_cache_lookups_total",
			Help: "Cache lookups by kind and result (count)",
		},
		[]string{"kind", "result"},
	)

	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kad_checks_total",
			Help: "Completed enrichment runs by final status (count)",
		},
		[]string{"status"},
	)

	CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kad_check_duration_ms",
			Help:    "Enrichment run duration in milliseconds",
			Buckets: []float64{1000, 5000, 15000, 30000, 60000, 120000, 300000, 600000},
		},
		[]string{"status"},
	)

	CasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kad_cases_total",
			Help: "Per-case enrichment results (count)",
		},
		[]string{"result"},
	)

	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kad_outcomes_total",
			Help: "Classified act outcomes (count)",
		},
		[]string{"outcome", "confidence"},
	)

	PDFExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kad_pdf_extractions_total",
			Help: "PDF text extractions by winning extractor (count)",
		},
		[]string{"extractor"},
	)

	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kad_signals_total",
			Help: "Derived risk signals by code (count)",
		},
		[]string{"code"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	BrokerMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_total",
			Help: "Kafka messages by topic and direction (count)",
		},
		[]string{"topic", "direction"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SiteRequestsTotal,
			SiteRequestDuration,
			SiteRetriesTotal,
			CacheLookupsTotal,
			ChecksTotal,
			CheckDuration,
			CasesTotal,
			OutcomesTotal,
			PDFExtractionsTotal,
			SignalsTotal,
			CircuitBreakerState,
			CircuitBreakerRequests,
			CircuitBreakerFailures,
			RateLimitRequestsTotal,
			BrokerMessagesTotal,
		)
	})
}

func ObserveSiteRequest(kind, result string, duration time.Duration) {
	SiteRequestsTotal.WithLabelValues(kind, result).Inc()
	SiteRequestDuration.WithLabelValues(kind).Observe(float64(duration.Milliseconds()))
}

func IncSiteRetry(kind string) {
	SiteRetriesTotal.WithLabelValues(kind).Inc()
}

func IncCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

func ObserveCheck(status string, duration time.Duration) {
	ChecksTotal.WithLabelValues(status).Inc()
	CheckDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncCase(result string) {
	CasesTotal.WithLabelValues(result).Inc()
}

func IncOutcome(outcome, confidence string) {
	OutcomesTotal.WithLabelValues(outcome, confidence).Inc()
}

func IncPDFExtraction(extractor string) {
	PDFExtractionsTotal.WithLabelValues(extractor).Inc()
}

func IncSignal(code string) {
	SignalsTotal.WithLabelValues(code).Inc()
}

func IncBrokerMessage(topic, direction string) {
	BrokerMessagesTotal.WithLabelValues(topic, direction).Inc()
}
