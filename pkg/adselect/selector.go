// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package adselect

import (
	"github.com/luxfi/bidagent/pkg/catalog"
	"github.com/luxfi/bidagent/pkg/modifier"
	"github.com/luxfi/bidagent/pkg/rank"
)

// Ranker ranks a query within a peer set
type Ranker interface {
	Rank(q catalog.Query, peers []catalog.Query) float64
}

// Selector chooses the advertisement shown for each query class
type Selector struct {
	space     *catalog.QuerySpace
	ranker    Ranker
	modifiers *modifier.Set
}

// NewSelector creates a selector over a query space
func NewSelector(space *catalog.QuerySpace, ranker Ranker, modifiers *modifier.Set) *Selector {
	return &Selector{space: space, ranker: ranker, modifiers: modifiers}
}

// Select returns the ad for q. F2 queries advertise their own product, F1
// queries fill the missing axis with the best scoring F2 peer, F0 queries
// get a generic ad.
func (s *Selector) Select(q catalog.Query) *catalog.Ad {
	switch q.Type() {
	case catalog.F2:
		return catalog.TargetedAd(q.Manufacturer, q.Component)
	case catalog.F1:
		if q.Manufacturer != "" {
			best, ok := s.best(s.space.QueriesForManufacturer(q.Manufacturer))
			if !ok {
				return catalog.GenericAd()
			}
			return catalog.TargetedAd(q.Manufacturer, best.Component)
		}
		best, ok := s.best(s.space.QueriesForComponent(q.Component))
		if !ok {
			return catalog.GenericAd()
		}
		return catalog.TargetedAd(best.Manufacturer, q.Component)
	default:
		return catalog.GenericAd()
	}
}

// Score is rankModifier·specialModifier of q within peers
func (s *Selector) Score(q catalog.Query, peers []catalog.Query) float64 {
	return s.modifiers.Rank(s.ranker.Rank(q, peers)) * s.modifiers.Special(q)
}

// best returns the highest scoring peer. Among equal scores the peer
// inserted last wins.
func (s *Selector) best(peers []catalog.Query) (catalog.Query, bool) {
	if len(peers) == 0 {
		return catalog.Query{}, false
	}
	var (
		winner    catalog.Query
		bestScore float64
	)
	for i, p := range peers {
		score := s.Score(p, peers)
		if i == 0 || score >= bestScore {
			winner, bestScore = p, score
		}
	}
	return winner, true
}

var _ Ranker = (*rank.Oracle)(nil)
