package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docgen"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// Renders counts generation attempts by outcome (ok or an apperr kind).
	Renders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "renders_total", Help: "Number of document renders by outcome."},
		[]string{"outcome"},
	)
	RenderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: namespace, Name: "render_duration_seconds", Help: "Time spent rendering a document.", Buckets: prometheus.DefBuckets},
	)
	TemplateUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "template_uploads_total", Help: "Number of template uploads by source."},
		[]string{"source"},
	)
	TemplateCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "template_cache_lookups_total", Help: "Parsed template cache lookups by result."},
		[]string{"result"},
	)
	BlobCleanupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "blob_cleanup_failures_total", Help: "Blobs that could not be removed after a record was deleted or not created."},
	)
)

// CacheLookup is suitable as docx.Cache.OnLookup.
func CacheLookup(hit bool) {
	if hit {
		TemplateCache.WithLabelValues("hit").Inc()
		return
	}
	TemplateCache.WithLabelValues("miss").Inc()
}

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Renders)
	reg.MustRegister(RenderDuration)
	reg.MustRegister(TemplateUploads)
	reg.MustRegister(TemplateCache)
	reg.MustRegister(BlobCleanupFailures)
}
