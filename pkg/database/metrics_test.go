package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func describe(c prometheus.Collector) []string {
	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	var out []string
	for d := range ch {
		out = append(out, d.String())
	}
	return out
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	var _ prometheus.Collector = (*PoolStatsCollector)(nil)

	c := NewPoolStatsCollector(nil, "catalog")
	require.NotNil(t, c)

	descs := describe(c)
	assert.Len(t, descs, 12)

	for _, name := range []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_total_connections",
		"db_pool_max_connections",
		"db_pool_acquire_count_total",
		"db_pool_max_idle_destroy_total",
	} {
		found := false
		for _, d := range descs {
			if strings.Contains(d, name) {
				found = true
				break
			}
		}
		assert.True(t, found, "missing descriptor %q", name)
	}
}

func TestRegisterPoolMetrics_RejectsDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, nil, "catalog"))
	assert.Error(t, RegisterPoolMetrics(reg, nil, "catalog"))
}
