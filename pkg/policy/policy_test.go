// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/bidagent/pkg/catalog"
	"github.com/luxfi/bidagent/pkg/history"
	"github.com/luxfi/bidagent/pkg/log"
	"github.com/luxfi/bidagent/pkg/modifier"
	"github.com/luxfi/bidagent/pkg/protocol"
	"github.com/luxfi/bidagent/pkg/rank"
	"github.com/luxfi/bidagent/pkg/spike"
)

var (
	qF0 = catalog.NewQuery("", "")
	qA  = catalog.NewQuery("A", "")
	qX  = catalog.NewQuery("", "X")
	qAX = catalog.NewQuery("A", "X")
)

type fixture struct {
	policy *Policy
	store  *history.Store
	space  *catalog.QuerySpace
}

func newFixture(profit float64, capacity float64) *fixture {
	rc := catalog.NewRetailCatalog([]catalog.Entry{
		{Product: catalog.Product{Manufacturer: "A", Component: "X"}, SalesProfit: profit},
	})
	space := catalog.NewQuerySpace(rc)
	store := history.NewStore(space.Queries(), rc.SalesProfitAt(0), 5)
	p := New(DefaultParams(), Deps{
		Queries:   space.Queries(),
		History:   store,
		Ranker:    rank.NewOracle(store, rank.ImpressionsRevenue),
		Modifiers: modifier.NewSet(modifier.DefaultParams(), modifier.Specialty{Manufacturer: "A", Component: "X"}),
		Detector:  spike.NewDetector(spike.DefaultConfig(), log.NoOp()),
		Capacity:  capacity,
		Log:       log.NoOp(),
	})
	return &fixture{policy: p, store: store, space: space}
}

func (f *fixture) tick() {
	f.policy.UpdateBaseBids()
	f.policy.DetectSpikes()
	f.policy.UpdateMaxBids()
}

func TestBaseBidsArePositive(t *testing.T) {
	require := require.New(t)

	f := newFixture(10, 300)
	f.policy.UpdateBaseBids()
	for _, q := range f.space.Queries() {
		require.InDelta(0.9, f.policy.BaseBid(q), 1e-12)
		require.Greater(f.policy.BaseBid(q), 0.0)
	}
}

func TestCatalogProfitSource(t *testing.T) {
	require := require.New(t)

	rc := catalog.NewRetailCatalog([]catalog.Entry{
		{Product: catalog.Product{Manufacturer: "A", Component: "X"}, SalesProfit: 10},
		{Product: catalog.Product{Manufacturer: "A", Component: "Y"}, SalesProfit: 20},
		{Product: catalog.Product{Manufacturer: "B", Component: "Y"}, SalesProfit: 30},
	})
	src, err := NewProfitSource(ProfitCatalog, 10, rc)
	require.NoError(err)

	require.Equal(10.0, src.Profit(qAX))
	require.Equal(15.0, src.Profit(qA))
	require.Equal(25.0, src.Profit(catalog.NewQuery("", "Y")))
	require.Equal(20.0, src.Profit(qF0))
	require.Equal(10.0, src.Profit(catalog.NewQuery("Z", "")))

	src, err = NewProfitSource("", 7, nil)
	require.NoError(err)
	require.Equal(7.0, src.Profit(qAX))

	_, err = NewProfitSource("oracle", 10, rc)
	require.Error(err)
}

func TestMaxBidFallbackWithoutRevenue(t *testing.T) {
	require := require.New(t)

	// zero catalog profit seeds zero revenue for every query
	f := newFixture(0, 300)
	f.tick()

	for _, q := range f.space.Queries() {
		require.InDelta(0.9, f.policy.MaxBid(q), 1e-12)

		bid, regime := f.policy.Bid(q, 6)
		require.Equal(Regular, regime)
		require.InDelta(math.Min(0.9, 0.9*f.policy.BidModifier(q)), bid, 1e-12)
		require.LessOrEqual(bid, 0.9+1e-12)
	}
}

func TestMaxBidFloor(t *testing.T) {
	require := require.New(t)

	f := newFixture(10, 300)
	f.store.ApplySalesReport(protocol.NewSalesReport(protocol.SalesEntry{Query: qAX, Revenue: 1000}))
	f.tick()

	require.Greater(f.store.TotalRevenue(), 0.0)
	for _, q := range f.space.Queries() {
		require.GreaterOrEqual(f.policy.MaxBid(q), 2.0)
	}
	// (A,X) holds 1010 of 1040 revenue: 4·10·1010/1040
	require.InDelta(40.0*1010/1040, f.policy.MaxBid(qAX), 1e-9)
	// the others fall to the floor: 4·10·10/1040 < 2
	require.Equal(2.0, f.policy.MaxBid(qA))
}

func TestCapacityThrottle(t *testing.T) {
	require := require.New(t)

	f := newFixture(10, 100)
	f.store.ApplySalesReport(protocol.NewSalesReport(protocol.SalesEntry{Query: qAX, Conversions: 100}))
	require.InDelta(0.9, f.policy.CapacityModifier(), 1e-12)

	f.store.ApplySalesReport(protocol.NewSalesReport(protocol.SalesEntry{Query: qAX, Conversions: 200}))
	require.InDelta(0.9*math.Exp(-2), f.policy.CapacityModifier(), 1e-12)
}

func TestBidModifierComposition(t *testing.T) {
	require := require.New(t)

	f := newFixture(10, 0)
	// every query ties on both counters: rank 0, rankModifier e^0.18
	want := map[catalog.Query]float64{
		qF0: math.Exp(0.18) * 1.0 * 0.8,
		qA:  math.Exp(0.18) * 1.2 * 1.0,
		qX:  math.Exp(0.18) * 1.2 * 1.0,
		qAX: math.Exp(0.18) * 1.44 * 1.2,
	}
	for q, w := range want {
		require.InDelta(w, f.policy.BidModifier(q), 1e-12, q.String())
	}
}

func TestInitialRegime(t *testing.T) {
	require := require.New(t)

	f := newFixture(10, 300)
	f.tick()
	for day := 1; day <= 5; day++ {
		for _, q := range f.space.Queries() {
			bid, regime := f.policy.Bid(q, day)
			require.Equal(Initial, regime)
			require.GreaterOrEqual(bid, f.policy.BaseBid(q))
		}
	}
}

func TestSpikeRegime(t *testing.T) {
	require := require.New(t)

	f := newFixture(10, 300)
	for i := 0; i < 10; i++ {
		f.store.ApplyQueryReport(protocol.NewQueryReport(protocol.QueryEntry{Query: qAX, Impressions: 10}))
	}
	for i := 0; i < 10; i++ {
		f.store.ApplyQueryReport(protocol.NewQueryReport(protocol.QueryEntry{Query: qAX, Impressions: 500}))
	}

	f.policy.UpdateBaseBids()
	fired := f.policy.DetectSpikes()
	f.policy.UpdateMaxBids()
	require.Equal([]catalog.Query{qAX}, fired)

	bid, regime := f.policy.Bid(qAX, 10)
	require.Equal(Spike, regime)
	base := f.policy.BaseBid(qAX)
	require.InDelta(math.Max(base, base*1.1*f.policy.BidModifier(qAX)), bid, 1e-12)

	_, regime = f.policy.Bid(qA, 10)
	require.Equal(Regular, regime)

	f.policy.ClearDay()
	_, regime = f.policy.Bid(qAX, 10)
	require.Equal(Regular, regime)
	require.Equal("regular", regime.String())
}
