// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

import (
	"errors"
	"math"

	"github.com/luxfi/bidagent/pkg/catalog"
	"github.com/luxfi/bidagent/pkg/log"
	"github.com/luxfi/bidagent/pkg/modifier"
	"github.com/luxfi/bidagent/pkg/spike"
)

// Params are the bid-shaping constants
type Params struct {
	// BaseFraction of per-query profit bid on an ordinary day
	BaseFraction float64 `mapstructure:"base_fraction"`
	// PlaceholderProfit stands in for per-product profit
	PlaceholderProfit float64 `mapstructure:"placeholder_profit"`
	CeilingMultiplier float64 `mapstructure:"ceiling_multiplier"`
	CeilingFloor      float64 `mapstructure:"ceiling_floor"`
	// InitialDays run in the initial regime
	InitialDays  int     `mapstructure:"initial_days"`
	InitialBoost float64 `mapstructure:"initial_boost"`
	SpikeBoost   float64 `mapstructure:"spike_boost"`
}

// DefaultParams returns the stock bidding constants
func DefaultParams() Params {
	return Params{
		BaseFraction:      0.09,
		PlaceholderProfit: 10,
		CeilingMultiplier: 4,
		CeilingFloor:      2,
		InitialDays:       5,
		InitialBoost:      1.0,
		SpikeBoost:        1.1,
	}
}

// WithDefaults returns p with every zero field set to its stock value
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.BaseFraction == 0 {
		p.BaseFraction = d.BaseFraction
	}
	if p.PlaceholderProfit == 0 {
		p.PlaceholderProfit = d.PlaceholderProfit
	}
	if p.CeilingMultiplier == 0 {
		p.CeilingMultiplier = d.CeilingMultiplier
	}
	if p.CeilingFloor == 0 {
		p.CeilingFloor = d.CeilingFloor
	}
	if p.InitialDays == 0 {
		p.InitialDays = d.InitialDays
	}
	if p.InitialBoost == 0 {
		p.InitialBoost = d.InitialBoost
	}
	if p.SpikeBoost == 0 {
		p.SpikeBoost = d.SpikeBoost
	}
	return p
}

// Validate reports every setting that would produce a non-positive bid
func (p Params) Validate() error {
	var errs []error
	if p.BaseFraction <= 0 {
		errs = append(errs, errors.New("base_fraction must be positive"))
	}
	if p.PlaceholderProfit <= 0 {
		errs = append(errs, errors.New("placeholder_profit must be positive"))
	}
	if p.CeilingMultiplier <= 0 {
		errs = append(errs, errors.New("ceiling_multiplier must be positive"))
	}
	if p.InitialBoost <= 0 || p.SpikeBoost <= 0 {
		errs = append(errs, errors.New("initial_boost and spike_boost must be positive"))
	}
	if p.InitialDays < 0 {
		errs = append(errs, errors.New("initial_days must not be negative"))
	}
	return errors.Join(errs...)
}

// Regime is the bidding mode a query is in for the day
type Regime int

const (
	Regular Regime = iota
	Initial
	Spike
)

func (r Regime) String() string {
	switch r {
	case Initial:
		return "initial"
	case Spike:
		return "spike"
	default:
		return "regular"
	}
}

// History is the read side of the history store the policy needs
type History interface {
	Impressions(q catalog.Query) float64
	Revenue(q catalog.Query) float64
	TotalRevenue() float64
	RecentConversions() float64
	ImpressionHistory(q catalog.Query) []float64
}

// Ranker ranks a query within a peer set
type Ranker interface {
	Rank(q catalog.Query, peers []catalog.Query) float64
}

// Deps are the collaborators of a Policy. Profit and Lose default to the
// placeholder profit and a neutral lose modifier.
type Deps struct {
	Queries   []catalog.Query
	History   History
	Ranker    Ranker
	Modifiers *modifier.Set
	Detector  *spike.Detector
	Profit    ProfitSource
	Lose      LoseModifier
	// Capacity is the distribution capacity C
	Capacity float64
	Log      log.Logger
}

// Policy turns history into daily bids. It owns the base and ceiling tables
// and, through its detector, the spike regime flags.
type Policy struct {
	params    Params
	queries   []catalog.Query
	history   History
	ranker    Ranker
	modifiers *modifier.Set
	detector  *spike.Detector
	profit    ProfitSource
	lose      LoseModifier
	capacity  float64
	base      map[catalog.Query]float64
	max       map[catalog.Query]float64
	log       log.Logger
}

// New creates a bid policy
func New(params Params, deps Deps) *Policy {
	p := &Policy{
		params:    params,
		queries:   append([]catalog.Query(nil), deps.Queries...),
		history:   deps.History,
		ranker:    deps.Ranker,
		modifiers: deps.Modifiers,
		detector:  deps.Detector,
		profit:    deps.Profit,
		lose:      deps.Lose,
		capacity:  deps.Capacity,
		base:      make(map[catalog.Query]float64, len(deps.Queries)),
		max:       make(map[catalog.Query]float64, len(deps.Queries)),
		log:       deps.Log,
	}
	if p.profit == nil {
		p.profit = ConstantProfit(params.PlaceholderProfit)
	}
	if p.lose == nil {
		p.lose = NeutralLose{}
	}
	if p.log == nil {
		p.log = log.NoOp()
	}
	if p.detector == nil {
		p.detector = spike.NewDetector(spike.DefaultConfig(), p.log)
	}
	return p
}

// SetCapacity updates the distribution capacity C
func (p *Policy) SetCapacity(capacity float64) {
	p.capacity = capacity
}

// Detector returns the spike detector owned by the policy
func (p *Policy) Detector() *spike.Detector {
	return p.detector
}

func (p *Policy) profitOf(q catalog.Query) float64 {
	v := p.profit.Profit(q)
	if math.IsNaN(v) || v <= 0 {
		return p.params.PlaceholderProfit
	}
	return v
}

// UpdateBaseBids recomputes the base bid of every query
func (p *Policy) UpdateBaseBids() {
	for _, q := range p.queries {
		p.base[q] = p.profitOf(q) * p.params.BaseFraction
	}
}

// DetectSpikes runs the spike detector over every query
func (p *Policy) DetectSpikes() []catalog.Query {
	return p.detector.Run(p.queries, p.history)
}

// UpdateMaxBids recomputes the bid ceiling of every query from its share of
// cumulative revenue. Without positive revenue the ceiling is the base bid.
func (p *Policy) UpdateMaxBids() {
	total := p.history.TotalRevenue()
	for _, q := range p.queries {
		rq := p.history.Revenue(q)
		if rq <= 0 || total <= 0 {
			p.max[q] = p.base[q]
			continue
		}
		p.max[q] = math.Max(p.params.CeilingFloor, p.params.CeilingMultiplier*p.profitOf(q)*rq/total)
	}
}

// BaseBid returns today's base bid for q
func (p *Policy) BaseBid(q catalog.Query) float64 {
	return p.base[q]
}

// MaxBid returns today's bid ceiling for q
func (p *Policy) MaxBid(q catalog.Query) float64 {
	return p.max[q]
}

// CapacityModifier throttles bids by conversions inside the distribution window
func (p *Policy) CapacityModifier() float64 {
	return p.modifiers.Capacity(p.history.RecentConversions(), p.capacity)
}

// BidModifier is the product of rank, specialty, type, lose and capacity
// modifiers for q
func (p *Policy) BidModifier(q catalog.Query) float64 {
	return p.modifiers.Rank(p.ranker.Rank(q, p.queries)) *
		p.modifiers.Special(q) *
		p.modifiers.Type(q) *
		p.lose.Lose(q) *
		p.CapacityModifier()
}

// RegimeOf returns the bidding regime of q on day
func (p *Policy) RegimeOf(q catalog.Query, day int) Regime {
	switch {
	case day <= p.params.InitialDays:
		return Initial
	case p.detector.SpikeToday(q):
		return Spike
	default:
		return Regular
	}
}

// Bid returns the final bid for q on day
func (p *Policy) Bid(q catalog.Query, day int) (float64, Regime) {
	base := p.base[q]
	mod := p.BidModifier(q)

	regime := p.RegimeOf(q, day)
	switch regime {
	case Initial:
		return math.Max(base, base*p.params.InitialBoost*mod), regime
	case Spike:
		return math.Max(base, base*p.params.SpikeBoost*mod), regime
	default:
		return math.Min(p.max[q], base*mod), regime
	}
}

// ClearDay ends the spike regime for every query
func (p *Policy) ClearDay() {
	p.detector.ClearDay()
}
