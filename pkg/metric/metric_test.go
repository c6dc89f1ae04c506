// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	require := require.New(t)

	m := NewMetrics()
	m.Ticks.Inc()
	m.Day.Set(7)
	m.ReportsApplied.WithLabelValues("sales_report").Add(2)
	m.FinalBid.WithLabelValues("spike").Observe(1.5)

	require.Equal(1.0, testutil.ToFloat64(m.Ticks))
	require.Equal(7.0, testutil.ToFloat64(m.Day))
	require.Equal(2.0, testutil.ToFloat64(m.ReportsApplied.WithLabelValues("sales_report")))

	families, err := m.GetGatherer().Gather()
	require.NoError(err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(names["bidagent_agent_ticks_total"])
	require.True(names["bidagent_policy_final_bid"])
}

func TestMetricsIsolatedRegistries(t *testing.T) {
	require := require.New(t)

	// two instances must not collide on registration
	a := NewMetrics()
	b := NewMetrics()
	a.Ticks.Inc()
	require.Equal(0.0, testutil.ToFloat64(b.Ticks))

	reg := prometheus.NewRegistry()
	NewMetricsWith(reg)
	require.Panics(func() { NewMetricsWith(reg) })
}
