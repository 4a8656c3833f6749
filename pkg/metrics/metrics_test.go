package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterCollectors(reg) })
	require.Panics(t, func() { RegisterCollectors(reg) })
}

func TestCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(TemplateCache.WithLabelValues("hit"))
	misses := testutil.ToFloat64(TemplateCache.WithLabelValues("miss"))

	CacheLookup(true)
	CacheLookup(true)
	CacheLookup(false)

	require.Equal(t, hits+2, testutil.ToFloat64(TemplateCache.WithLabelValues("hit")))
	require.Equal(t, misses+1, testutil.ToFloat64(TemplateCache.WithLabelValues("miss")))
}
