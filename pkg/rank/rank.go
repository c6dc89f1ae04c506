// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rank

import (
	"fmt"

	"github.com/luxfi/bidagent/pkg/catalog"
)

// Counters is the read side of the history store the oracle ranks with
type Counters interface {
	Impressions(q catalog.Query) float64
	Revenue(q catalog.Query) float64
}

// Strategy selects how popularity is measured
type Strategy string

const (
	// Impressions ranks by cumulative impressions only
	Impressions Strategy = "impressions"
	// ImpressionsRevenue averages the impression and revenue ranks
	ImpressionsRevenue Strategy = "impressions_revenue"
)

// ParseStrategy validates a configured strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Impressions, ImpressionsRevenue:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown rank strategy %q", s)
	}
}

// Oracle computes the normalized popularity rank of a query within a peer
// set: 0 is the most popular, 1 the least.
type Oracle struct {
	counters Counters
	strategy Strategy
}

// NewOracle creates an oracle over the given counters
func NewOracle(counters Counters, strategy Strategy) *Oracle {
	if strategy == "" {
		strategy = ImpressionsRevenue
	}
	return &Oracle{counters: counters, strategy: strategy}
}

// Strategy returns the active strategy
func (o *Oracle) Strategy() Strategy {
	return o.strategy
}

// Rank returns the share of peers strictly more popular than q
func (o *Oracle) Rank(q catalog.Query, peers []catalog.Query) float64 {
	n := len(peers)
	if n == 0 {
		return 0
	}

	imps := o.counters.Impressions(q)
	rev := o.counters.Revenue(q)

	var byImps, byRev int
	for _, p := range peers {
		if o.counters.Impressions(p) > imps {
			byImps++
		}
		if o.counters.Revenue(p) > rev {
			byRev++
		}
	}

	if o.strategy == Impressions {
		return float64(byImps) / float64(n)
	}
	return float64(byImps+byRev) / float64(2*n)
}
