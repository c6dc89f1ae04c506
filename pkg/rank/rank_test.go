// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rank

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/bidagent/pkg/catalog"
)

type fakeCounters struct {
	imps map[catalog.Query]float64
	rev  map[catalog.Query]float64
}

func (f fakeCounters) Impressions(q catalog.Query) float64 { return f.imps[q] }
func (f fakeCounters) Revenue(q catalog.Query) float64     { return f.rev[q] }

var (
	qAX = catalog.NewQuery("A", "X")
	qAY = catalog.NewQuery("A", "Y")
	qBX = catalog.NewQuery("B", "X")
)

func testCounters() fakeCounters {
	return fakeCounters{
		imps: map[catalog.Query]float64{qAX: 1000, qAY: 100, qBX: 500},
		rev:  map[catalog.Query]float64{qAX: 10, qAY: 50, qBX: 50},
	}
}

func TestRankImpressionsOnly(t *testing.T) {
	require := require.New(t)

	o := NewOracle(testCounters(), Impressions)
	peers := []catalog.Query{qAX, qAY, qBX}

	require.Equal(0.0, o.Rank(qAX, peers))
	require.InDelta(1.0/3, o.Rank(qBX, peers), 1e-12)
	require.InDelta(2.0/3, o.Rank(qAY, peers), 1e-12)
}

func TestRankImpressionsRevenue(t *testing.T) {
	require := require.New(t)

	o := NewOracle(testCounters(), "")
	require.Equal(ImpressionsRevenue, o.Strategy())

	peers := []catalog.Query{qAX, qAY, qBX}
	// qAX: 0 above by impressions, 2 above by revenue
	require.InDelta(2.0/6, o.Rank(qAX, peers), 1e-12)
	// qAY: 2 above by impressions, none above by revenue
	require.InDelta(2.0/6, o.Rank(qAY, peers), 1e-12)
	// qBX: 1 above by impressions, none by revenue
	require.InDelta(1.0/6, o.Rank(qBX, peers), 1e-12)
}

func TestRankBounds(t *testing.T) {
	require := require.New(t)

	peers := []catalog.Query{qAX, qAY, qBX}
	for _, s := range []Strategy{Impressions, ImpressionsRevenue} {
		o := NewOracle(testCounters(), s)
		for _, q := range peers {
			r := o.Rank(q, peers)
			require.GreaterOrEqual(r, 0.0)
			require.LessOrEqual(r, 1.0)
		}
		require.Zero(o.Rank(qAX, nil))
	}
}

func TestParseStrategy(t *testing.T) {
	require := require.New(t)

	s, err := ParseStrategy("impressions")
	require.NoError(err)
	require.Equal(Impressions, s)

	_, err = ParseStrategy("clicks")
	require.Error(err)
}
