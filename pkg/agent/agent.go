// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package agent drives the bidding engine from simulation messages. An Agent
// is a single logical actor: messages must be delivered one at a time.
package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/luxfi/bidagent/pkg/adselect"
	"github.com/luxfi/bidagent/pkg/catalog"
	"github.com/luxfi/bidagent/pkg/history"
	"github.com/luxfi/bidagent/pkg/journal"
	"github.com/luxfi/bidagent/pkg/log"
	"github.com/luxfi/bidagent/pkg/metric"
	"github.com/luxfi/bidagent/pkg/modifier"
	"github.com/luxfi/bidagent/pkg/policy"
	"github.com/luxfi/bidagent/pkg/protocol"
	"github.com/luxfi/bidagent/pkg/rank"
	"github.com/luxfi/bidagent/pkg/spike"
)

var (
	ErrNotReady       = errors.New("agent not ready: retail catalog or advertiser info missing")
	ErrUnknownMessage = errors.New("unknown message")
)

// Options configure an Agent. Zero fields, including single fields of the
// policy, modifier and spike settings, fall back to the defaults. Settings
// that still fail validation are replaced wholesale by the defaults.
type Options struct {
	Policy    policy.Params
	Modifiers modifier.Params
	Spike     spike.Config
	BidRank   rank.Strategy
	AdRank    rank.Strategy
	// Profit names the profit source, see policy.NewProfitSource
	Profit string

	Publisher protocol.Publisher
	Journal   journal.Recorder
	Metrics   *metric.Metrics
	Log       log.Logger
}

// DefaultOptions returns the stock engine configuration
func DefaultOptions() Options {
	return Options{
		Policy:    policy.DefaultParams(),
		Modifiers: modifier.DefaultParams(),
		Spike:     spike.DefaultConfig(),
		BidRank:   rank.ImpressionsRevenue,
		AdRank:    rank.Impressions,
		Profit:    policy.ProfitConstant,
	}
}

// Agent is the bidding agent of one advertiser
type Agent struct {
	opts    Options
	log     log.Logger
	metrics *metric.Metrics

	sessionID uuid.UUID
	day       int
	ticked    bool

	startInfo     *protocol.StartInfo
	slotInfo      *protocol.SlotInfo
	publisherInfo *protocol.PublisherInfo
	catalog       *catalog.RetailCatalog
	advertiser    *protocol.AdvertiserInfo

	space    *catalog.QuerySpace
	store    *history.Store
	selector *adselect.Selector
	policy   *policy.Policy

	snapMu sync.RWMutex
	snap   Snapshot
}

// New creates an agent waiting for its session bootstrap messages
func New(opts Options) *Agent {
	defaults := DefaultOptions()
	opts.Policy = opts.Policy.WithDefaults()
	opts.Modifiers = opts.Modifiers.WithDefaults()
	opts.Spike = opts.Spike.WithDefaults()
	if opts.BidRank == "" {
		opts.BidRank = defaults.BidRank
	}
	if opts.AdRank == "" {
		opts.AdRank = defaults.AdRank
	}
	if opts.Log == nil {
		opts.Log = log.NoOp()
	}
	if err := opts.Policy.Validate(); err != nil {
		opts.Log.Warn("invalid bid params, using defaults", log.Error(err))
		opts.Policy = defaults.Policy
	}
	if err := opts.Modifiers.Validate(); err != nil {
		opts.Log.Warn("invalid modifier params, using defaults", log.Error(err))
		opts.Modifiers = defaults.Modifiers
	}
	if err := opts.Spike.Validate(); err != nil {
		opts.Log.Warn("invalid spike config, using defaults", log.Error(err))
		opts.Spike = defaults.Spike
	}
	if opts.Metrics == nil {
		opts.Metrics = metric.NewMetrics()
	}

	a := &Agent{
		opts:      opts,
		log:       opts.Log,
		metrics:   opts.Metrics,
		sessionID: uuid.New(),
	}
	a.publishSnapshot(nil)
	return a
}

// SessionID identifies the current simulation session
func (a *Agent) SessionID() uuid.UUID {
	return a.sessionID
}

// Day returns the last ticked simulation day
func (a *Agent) Day() int {
	return a.day
}

// Ready reports whether catalog and advertiser info have both arrived
func (a *Agent) Ready() bool {
	return a.policy != nil
}

// QuerySpace returns the query classes of the session, nil before the catalog
func (a *Agent) QuerySpace() *catalog.QuerySpace {
	return a.space
}

// History returns the history store, nil before the catalog
func (a *Agent) History() *history.Store {
	return a.store
}

// Policy returns the bid policy, nil until the agent is ready
func (a *Agent) Policy() *policy.Policy {
	return a.policy
}

// Selector returns the ad selector, nil until the agent is ready
func (a *Agent) Selector() *adselect.Selector {
	return a.selector
}

// HandleMessage dispatches m to its entry point. A status arriving before the
// agent is ready is logged and dropped.
func (a *Agent) HandleMessage(ctx context.Context, m protocol.Message) error {
	a.metrics.MessagesReceived.WithLabelValues(string(protocol.KindOf(m))).Inc()

	switch msg := m.(type) {
	case *protocol.StartInfo:
		a.HandleStartInfo(msg)
	case *protocol.PublisherInfo:
		a.HandlePublisherInfo(msg)
	case *protocol.SlotInfo:
		a.HandleSlotInfo(msg)
	case *protocol.RetailCatalogMessage:
		a.HandleRetailCatalog(msg.Catalog)
	case *protocol.AdvertiserInfo:
		a.HandleAdvertiserInfo(msg)
	case *protocol.QueryReport:
		a.HandleQueryReport(msg)
	case *protocol.SalesReport:
		a.HandleSalesReport(msg)
	case *protocol.SimulationStatus:
		if _, err := a.Tick(ctx, msg); err != nil {
			if errors.Is(err, ErrNotReady) {
				a.log.Warn("skipping tick", log.Error(err))
				return nil
			}
			return err
		}
	case *protocol.SimulationStart:
		a.SimulationSetup()
	case *protocol.SimulationEnd:
		a.SimulationFinished()
	default:
		return fmt.Errorf("%w: %T", ErrUnknownMessage, m)
	}
	return nil
}

// HandleStartInfo keeps the simulation description
func (a *Agent) HandleStartInfo(info *protocol.StartInfo) {
	a.startInfo = info
	a.log.Info("start info",
		log.Int("simulation_id", info.SimulationID),
		log.Int("days", info.NumberOfDays),
	)
}

// HandlePublisherInfo keeps the publisher description
func (a *Agent) HandlePublisherInfo(info *protocol.PublisherInfo) {
	a.publisherInfo = info
}

// HandleSlotInfo keeps the slot description
func (a *Agent) HandleSlotInfo(info *protocol.SlotInfo) {
	a.slotInfo = info
}

// HandleRetailCatalog derives the query space and seeds a fresh history store
func (a *Agent) HandleRetailCatalog(rc *catalog.RetailCatalog) {
	a.catalog = rc
	a.space = catalog.NewQuerySpace(rc)
	for _, err := range rc.Rejected() {
		a.log.Warn("dropping catalog entry", log.Error(err))
	}

	seed := rc.SalesProfitAt(0)
	if math.IsNaN(seed) {
		seed = 0
	}
	window := 1
	if a.advertiser != nil {
		window = a.advertiser.DistributionWindow
	}
	a.store = history.NewStore(a.space.Queries(), seed, window)
	a.policy = nil

	a.log.Info("retail catalog",
		log.Int("products", rc.Size()),
		log.Int("queries", a.space.Len()),
	)
	a.build()
}

// HandleAdvertiserInfo records the advertiser profile. Capacity and window
// changes apply to the existing history.
func (a *Agent) HandleAdvertiserInfo(info *protocol.AdvertiserInfo) {
	a.advertiser = info
	if a.store != nil {
		a.store.SetWindow(info.DistributionWindow)
	}

	a.log.Info("advertiser info",
		log.String("advertiser", info.AdvertiserID),
		log.String("manufacturer_specialty", info.ManufacturerSpecialty),
		log.String("component_specialty", info.ComponentSpecialty),
		log.Int("capacity", info.DistributionCapacity),
		log.Int("window", info.DistributionWindow),
	)
	a.build()
}

// build wires the engine once both catalog and advertiser info are known.
// Spike regime state survives a rebuild.
func (a *Agent) build() {
	if a.store == nil || a.advertiser == nil {
		return
	}

	mods := modifier.NewSet(a.opts.Modifiers, modifier.Specialty{
		Manufacturer: a.advertiser.ManufacturerSpecialty,
		Component:    a.advertiser.ComponentSpecialty,
	})

	profit, err := policy.NewProfitSource(a.opts.Profit, a.opts.Policy.PlaceholderProfit, a.catalog)
	if err != nil {
		a.log.Warn("falling back to constant profit", log.Error(err))
		profit = policy.ConstantProfit(a.opts.Policy.PlaceholderProfit)
	}

	var detector *spike.Detector
	if a.policy != nil {
		detector = a.policy.Detector()
	} else {
		detector = spike.NewDetector(a.opts.Spike, a.log)
	}

	a.selector = adselect.NewSelector(a.space, rank.NewOracle(a.store, a.opts.AdRank), mods)
	a.policy = policy.New(a.opts.Policy, policy.Deps{
		Queries:   a.space.Queries(),
		History:   a.store,
		Ranker:    rank.NewOracle(a.store, a.opts.BidRank),
		Modifiers: mods,
		Detector:  detector,
		Profit:    profit,
		Capacity:  float64(a.advertiser.DistributionCapacity),
		Log:       a.log,
	})
}

// HandleQueryReport folds a daily query report into history
func (a *Agent) HandleQueryReport(r *protocol.QueryReport) {
	if a.store == nil {
		a.log.Warn("dropping query report before retail catalog")
		return
	}
	a.store.ApplyQueryReport(r)
	a.metrics.ReportsApplied.WithLabelValues(string(protocol.KindQueryReport)).Inc()
}

// HandleSalesReport folds a daily sales report into history
func (a *Agent) HandleSalesReport(r *protocol.SalesReport) {
	if a.store == nil {
		a.log.Warn("dropping sales report before retail catalog")
		return
	}
	a.store.ApplySalesReport(r)
	a.metrics.ReportsApplied.WithLabelValues(string(protocol.KindSalesReport)).Inc()
	a.metrics.RecentConversions.Set(a.store.RecentConversions())
}

// SimulationSetup starts a new session
func (a *Agent) SimulationSetup() {
	a.sessionID = uuid.New()
	a.day = 0
	a.ticked = false
	a.log.Info("simulation setup", log.Stringer("session", a.sessionID))
	a.publishSnapshot(nil)
}

// SimulationFinished drops every session container so the next session
// starts clean
func (a *Agent) SimulationFinished() {
	a.log.Info("simulation finished",
		log.Stringer("session", a.sessionID),
		log.Int("days", a.day),
	)

	a.startInfo = nil
	a.slotInfo = nil
	a.publisherInfo = nil
	a.catalog = nil
	a.advertiser = nil
	a.space = nil
	a.store = nil
	a.selector = nil
	a.policy = nil
	a.day = 0
	a.ticked = false

	a.publishSnapshot(nil)
	_ = a.log.Sync()
}
