// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package agent

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/bidagent/pkg/catalog"
	"github.com/luxfi/bidagent/pkg/journal"
	"github.com/luxfi/bidagent/pkg/log"
	"github.com/luxfi/bidagent/pkg/metric"
	"github.com/luxfi/bidagent/pkg/modifier"
	"github.com/luxfi/bidagent/pkg/policy"
	"github.com/luxfi/bidagent/pkg/protocol"
	"github.com/luxfi/bidagent/pkg/spike"
)

var (
	qF0 = catalog.NewQuery("", "")
	qA  = catalog.NewQuery("A", "")
	qX  = catalog.NewQuery("", "X")
	qAX = catalog.NewQuery("A", "X")
	qAY = catalog.NewQuery("A", "Y")
)

// recordingPublisher captures every published bundle
type recordingPublisher struct {
	addresses []string
	bundles   []*protocol.BidBundle
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, address string, bundle *protocol.BidBundle) error {
	p.addresses = append(p.addresses, address)
	p.bundles = append(p.bundles, bundle)
	return p.err
}

func oneProduct(profit float64) *catalog.RetailCatalog {
	return catalog.NewRetailCatalog([]catalog.Entry{
		{Product: catalog.Product{Manufacturer: "A", Component: "X"}, SalesProfit: profit},
	})
}

func advertiser(m, c string) *protocol.AdvertiserInfo {
	return &protocol.AdvertiserInfo{
		ManufacturerSpecialty: m,
		ComponentSpecialty:    c,
		DistributionCapacity:  300,
		DistributionWindow:    5,
		PublisherID:           "publisher",
		AdvertiserID:          "adv1",
	}
}

func newTestAgent(pub protocol.Publisher) (*Agent, *metric.Metrics) {
	m := metric.NewMetrics()
	opts := DefaultOptions()
	opts.Publisher = pub
	opts.Metrics = m
	opts.Log = log.NoOp()
	return New(opts), m
}

func TestBootstrap(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	pub := &recordingPublisher{}
	a, m := newTestAgent(pub)

	require.NoError(a.HandleMessage(ctx, &protocol.RetailCatalogMessage{Catalog: oneProduct(10)}))
	require.False(a.Ready())
	require.NoError(a.HandleMessage(ctx, advertiser("A", "X")))
	require.True(a.Ready())

	require.Equal([]catalog.Query{qF0, qA, qX, qAX}, a.QuerySpace().Queries())
	for _, q := range a.QuerySpace().Queries() {
		c, ok := a.History().Counters(q)
		require.True(ok)
		require.Equal(100.0, c.Impressions)
		require.Equal(9.0, c.Clicks)
		require.Equal(1.0, c.Conversions)
	}

	bundle, err := a.Tick(ctx, &protocol.SimulationStatus{})
	require.NoError(err)
	require.Equal(1, a.Day())
	require.Equal(4, bundle.Len())
	for _, e := range bundle.Entries() {
		require.GreaterOrEqual(e.Bid, a.Policy().BaseBid(e.Query))
		require.True(protocol.IsPersist(e.DailyLimit))
	}
	require.True(protocol.IsPersist(bundle.CampaignDailyLimit))

	f0, ok := bundle.Entry(qF0)
	require.True(ok)
	require.True(f0.Ad.IsGeneric())

	require.Equal([]string{"publisher"}, pub.addresses)
	require.Equal(1.0, testutil.ToFloat64(m.BundlesPublished))
	require.Equal(1.0, testutil.ToFloat64(m.Ticks))

	snap := a.Snapshot()
	require.True(snap.Ready)
	require.Equal(1, snap.Day)
	require.Len(snap.Bids, 4)
	require.Equal("initial", snap.Bids[0].Regime)
	require.NotNil(snap.Performance)
	require.Len(snap.Performance.Queries, 4)
	require.Equal(400.0, snap.Performance.Totals.Impressions)
	require.InDelta(0.09, snap.Performance.Totals.CTR, 1e-12)
}

func TestStatusBeforeReady(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	pub := &recordingPublisher{}
	a, m := newTestAgent(pub)

	_, err := a.Tick(ctx, &protocol.SimulationStatus{})
	require.ErrorIs(err, ErrNotReady)

	require.NoError(a.HandleMessage(ctx, &protocol.RetailCatalogMessage{Catalog: oneProduct(10)}))
	require.NoError(a.HandleMessage(ctx, &protocol.SimulationStatus{}))
	require.Empty(pub.bundles)
	require.Equal(0, a.Day())
	require.Equal(0.0, testutil.ToFloat64(m.Ticks))
}

func TestReportsBeforeCatalogDropped(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	a, m := newTestAgent(nil)
	require.NoError(a.HandleMessage(ctx, protocol.NewQueryReport(protocol.QueryEntry{Query: qAX, Impressions: 10})))
	require.NoError(a.HandleMessage(ctx, protocol.NewSalesReport(protocol.SalesEntry{Query: qAX, Conversions: 1})))
	require.Nil(a.History())
	require.Equal(0.0, testutil.ToFloat64(m.ReportsApplied.WithLabelValues("query_report")))
}

func TestSpecialtyAmplification(t *testing.T) {
	require := require.New(t)

	rc := catalog.NewRetailCatalog([]catalog.Entry{
		{Product: catalog.Product{Manufacturer: "A", Component: "X"}, SalesProfit: 10},
		{Product: catalog.Product{Manufacturer: "B", Component: "Y"}, SalesProfit: 10},
		{Product: catalog.Product{Manufacturer: "A", Component: "Y"}, SalesProfit: 10},
	})
	a, _ := newTestAgent(nil)
	a.HandleRetailCatalog(rc)
	a.HandleAdvertiserInfo(advertiser("A", "X"))

	// all queries tie, so the bid modifiers differ only by specialty
	bxy := a.Policy().BidModifier(catalog.NewQuery("B", "Y"))
	require.InDelta(1.44, a.Policy().BidModifier(qAX)/bxy, 1e-12)
	require.InDelta(1.2, a.Policy().BidModifier(qAY)/bxy, 1e-12)
}

func TestSpikeFiresOnceThenRearms(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	a, m := newTestAgent(&recordingPublisher{})
	a.HandleRetailCatalog(oneProduct(10))
	a.HandleAdvertiserInfo(advertiser("A", "X"))

	for i := 0; i < 10; i++ {
		a.HandleQueryReport(protocol.NewQueryReport(protocol.QueryEntry{Query: qAX, Impressions: 10}))
	}
	for i := 0; i < 10; i++ {
		a.HandleQueryReport(protocol.NewQueryReport(protocol.QueryEntry{Query: qAX, Impressions: 500}))
	}

	bundle, err := a.Tick(ctx, protocol.StatusForDay(10))
	require.NoError(err)
	require.Equal([]string{qAX.Key()}, a.Snapshot().Spikes)
	require.Equal("spike", a.Snapshot().Bids[3].Regime)

	e, ok := bundle.Entry(qAX)
	require.True(ok)
	base := a.Policy().BaseBid(qAX)
	require.InDelta(math.Max(base, base*1.1*a.Policy().BidModifier(qAX)), e.Bid, 1e-12)

	// cleared by the tick
	require.False(a.Policy().Detector().SpikeToday(qAX))
	require.True(a.Policy().Detector().Armed(qAX))

	_, err = a.Tick(ctx, &protocol.SimulationStatus{})
	require.NoError(err)
	require.Equal(11, a.Day())
	require.Empty(a.Snapshot().Spikes)
	require.False(a.Policy().Detector().Armed(qAX))

	_, err = a.Tick(ctx, &protocol.SimulationStatus{})
	require.NoError(err)
	require.Equal([]string{qAX.Key()}, a.Snapshot().Spikes)
	require.Equal(2.0, testutil.ToFloat64(m.SpikesFired))
}

func TestCeilingFallbackWithoutRevenue(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	a, _ := newTestAgent(&recordingPublisher{})
	a.HandleRetailCatalog(oneProduct(0))
	a.HandleAdvertiserInfo(advertiser("A", "X"))

	bundle, err := a.Tick(ctx, protocol.StatusForDay(6))
	require.NoError(err)
	for _, e := range bundle.Entries() {
		require.InDelta(0.9, a.Policy().MaxBid(e.Query), 1e-12)
		require.InDelta(math.Min(0.9, 0.9*a.Policy().BidModifier(e.Query)), e.Bid, 1e-12)
	}
}

func TestCapacityThrottle(t *testing.T) {
	require := require.New(t)

	a, _ := newTestAgent(nil)
	info := advertiser("A", "X")
	info.DistributionCapacity = 100
	a.HandleRetailCatalog(oneProduct(10))
	a.HandleAdvertiserInfo(info)

	a.HandleSalesReport(protocol.NewSalesReport(protocol.SalesEntry{Query: qAX, Conversions: 100}))
	require.InDelta(0.9, a.Policy().CapacityModifier(), 1e-12)

	a.HandleSalesReport(protocol.NewSalesReport(protocol.SalesEntry{Query: qAX, Conversions: 200}))
	require.InDelta(0.9*math.Exp(-2), a.Policy().CapacityModifier(), 1e-12)
}

func TestF1AdSelection(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	rc := catalog.NewRetailCatalog([]catalog.Entry{
		{Product: catalog.Product{Manufacturer: "A", Component: "X"}, SalesProfit: 10},
		{Product: catalog.Product{Manufacturer: "A", Component: "Y"}, SalesProfit: 10},
	})
	a, _ := newTestAgent(&recordingPublisher{})
	a.HandleRetailCatalog(rc)
	a.HandleAdvertiserInfo(advertiser("B", "Z"))

	// cumulative impressions become 1000 and 100
	a.HandleQueryReport(protocol.NewQueryReport(protocol.QueryEntry{Query: qAX, Impressions: 900}))

	bundle, err := a.Tick(ctx, &protocol.SimulationStatus{})
	require.NoError(err)

	snap := a.Snapshot()
	require.Equal(1, snap.QueryReports)
	require.NotNil(snap.LatestQueryReport)
	require.Equal(900, snap.LatestQueryReport.Entries[0].Impressions)

	e, ok := bundle.Entry(qA)
	require.True(ok)
	require.True(e.Ad.Equal(catalog.TargetedAd("A", "X")))
}

func TestPublisherFailuresStayInTick(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	pub := &recordingPublisher{err: errors.New("connection reset")}
	a, m := newTestAgent(pub)
	a.HandleRetailCatalog(oneProduct(10))
	a.HandleAdvertiserInfo(advertiser("A", "X"))

	require.NoError(a.HandleMessage(ctx, &protocol.SimulationStatus{}))
	require.Len(pub.bundles, 1)
	require.Equal(1.0, testutil.ToFloat64(m.PublishFailures))
	require.Equal(0.0, testutil.ToFloat64(m.BundlesPublished))

	// no handle, no publish
	info := advertiser("A", "X")
	info.PublisherID = ""
	a.HandleAdvertiserInfo(info)
	_, err := a.Tick(ctx, &protocol.SimulationStatus{})
	require.NoError(err)
	require.Len(pub.bundles, 1)

	// no publisher at all
	b, _ := newTestAgent(nil)
	b.HandleRetailCatalog(oneProduct(10))
	b.HandleAdvertiserInfo(advertiser("A", "X"))
	_, err = b.Tick(ctx, &protocol.SimulationStatus{})
	require.NoError(err)
}

func TestJournalRecordsDays(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	rec := journal.NewMemoryRecorder()
	opts := DefaultOptions()
	opts.Journal = rec
	a := New(opts)
	a.HandleRetailCatalog(oneProduct(10))
	a.HandleAdvertiserInfo(advertiser("A", "X"))

	for i := 0; i < 3; i++ {
		_, err := a.Tick(ctx, &protocol.SimulationStatus{})
		require.NoError(err)
	}

	days, err := rec.Days(ctx, a.SessionID())
	require.NoError(err)
	require.Len(days, 3)
	require.Equal(3, days[2].Day)
	require.Len(days[0].Bids, 4)
	require.Equal("generic", days[0].Bids[0].Ad)
	require.Equal("A/X", days[0].Bids[3].Ad)
}

func TestExplicitHostDaysFromZero(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	rec := journal.NewMemoryRecorder()
	opts := DefaultOptions()
	opts.Journal = rec
	m := metric.NewMetrics()
	opts.Metrics = m
	a := New(opts)
	a.HandleRetailCatalog(oneProduct(10))
	a.HandleAdvertiserInfo(advertiser("A", "X"))

	var seen []int
	for d := 0; d <= 3; d++ {
		_, err := a.Tick(ctx, protocol.StatusForDay(d))
		require.NoError(err)
		seen = append(seen, a.Day())
	}
	require.Equal([]int{0, 1, 2, 3}, seen)

	days, err := rec.Days(ctx, a.SessionID())
	require.NoError(err)
	require.Len(days, 4)
	for i, d := range days {
		require.Equal(i, d.Day)
	}
	require.Zero(testutil.ToFloat64(m.JournalFailures))

	// an omitted day continues from the last explicit one
	_, err = a.Tick(ctx, &protocol.SimulationStatus{})
	require.NoError(err)
	require.Equal(4, a.Day())
}

func TestPartialPolicyOptions(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	opts := Options{
		Policy:    policy.Params{InitialDays: 2},
		Modifiers: modifier.Params{Lambda: 0.25},
		Spike:     spike.Config{Threshold: -3},
	}
	a := New(opts)
	require.Equal(2, a.opts.Policy.InitialDays)
	require.Equal(0.09, a.opts.Policy.BaseFraction)
	require.Equal(2.0, a.opts.Policy.CeilingFloor)
	require.Equal(0.25, a.opts.Modifiers.Lambda)
	require.Equal(1.44, a.opts.Modifiers.SpecialBoth)
	require.Equal(spike.DefaultConfig(), a.opts.Spike)

	a.HandleRetailCatalog(oneProduct(10))
	a.HandleAdvertiserInfo(advertiser("A", "X"))
	for day := 1; day <= 3; day++ {
		bundle, err := a.Tick(ctx, &protocol.SimulationStatus{})
		require.NoError(err)
		for _, e := range bundle.Entries() {
			require.InDelta(0.9, a.Policy().BaseBid(e.Query), 1e-12)
			require.Greater(e.Bid, 0.0)
		}
	}
	require.Equal("regular", a.Snapshot().Bids[0].Regime)
}

func TestCatalogProfitOption(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	opts := DefaultOptions()
	opts.Profit = policy.ProfitCatalog
	a := New(opts)
	a.HandleRetailCatalog(oneProduct(20))
	a.HandleAdvertiserInfo(advertiser("A", "X"))

	_, err := a.Tick(ctx, &protocol.SimulationStatus{})
	require.NoError(err)
	require.InDelta(1.8, a.Policy().BaseBid(qAX), 1e-12)
}
