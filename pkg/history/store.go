// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package history

import (
	"github.com/luxfi/bidagent/pkg/catalog"
	"github.com/luxfi/bidagent/pkg/protocol"
)

// Seed values every query starts from before its first report
const (
	SeedImpressions = 100
	SeedClicks      = 9
	SeedConversions = 1
)

// Counters are the cumulative observations for one query class
type Counters struct {
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Cost        float64 `json:"cost"`
	Conversions float64 `json:"conversions"`
	Revenue     float64 `json:"revenue"`
}

// Store owns every per-query counter of a session and the window of recent
// reports. Other components only read from it.
type Store struct {
	queries  []catalog.Query
	counters map[catalog.Query]*Counters
	history  map[catalog.Query][]float64
	sales    *window[*protocol.SalesReport]
	reports  *window[*protocol.QueryReport]
}

// NewStore seeds counters for every query. seedRevenue is normally the sales
// profit of the first catalog product; window is the distribution window W.
func NewStore(queries []catalog.Query, seedRevenue float64, window int) *Store {
	s := &Store{
		queries:  append([]catalog.Query(nil), queries...),
		counters: make(map[catalog.Query]*Counters, len(queries)),
		history:  make(map[catalog.Query][]float64, len(queries)),
		sales:    newWindow[*protocol.SalesReport](window),
		reports:  newWindow[*protocol.QueryReport](window),
	}
	for _, q := range queries {
		s.counters[q] = &Counters{
			Impressions: SeedImpressions,
			Clicks:      SeedClicks,
			Conversions: SeedConversions,
			Revenue:     seedRevenue,
		}
		s.history[q] = nil
	}
	return s
}

// ApplyQueryReport adds impressions, clicks and cost for every known query
// present in r. Non-zero daily impressions extend the query's history.
func (s *Store) ApplyQueryReport(r *protocol.QueryReport) {
	if r == nil {
		return
	}
	for _, q := range s.queries {
		i := r.IndexForEntry(q)
		if i < 0 {
			continue
		}
		c := s.counters[q]
		imps := float64(r.Impressions(i))
		c.Impressions += imps
		if imps != 0 {
			s.history[q] = append(s.history[q], imps)
		}
		c.Clicks += float64(r.Clicks(i))
		c.Cost += r.Cost(i)
	}
	s.reports.push(r)
}

// ApplySalesReport adds conversions and revenue for every known query present
// in r and pushes r into the distribution window.
func (s *Store) ApplySalesReport(r *protocol.SalesReport) {
	if r == nil {
		return
	}
	for _, q := range s.queries {
		i := r.IndexForEntry(q)
		if i < 0 {
			continue
		}
		c := s.counters[q]
		c.Conversions += float64(r.Conversions(i))
		c.Revenue += r.Revenue(i)
	}
	s.sales.push(r)
}

// RecentConversions sums conversions of every known query across the sales
// reports still inside the distribution window
func (s *Store) RecentConversions() float64 {
	total := 0.0
	s.sales.each(func(r *protocol.SalesReport) {
		for _, q := range s.queries {
			if i := r.IndexForEntry(q); i >= 0 {
				total += float64(r.Conversions(i))
			}
		}
	})
	return total
}

// Queries returns the query classes the store tracks
func (s *Store) Queries() []catalog.Query {
	return append([]catalog.Query(nil), s.queries...)
}

// Counters returns a copy of the counters of q
func (s *Store) Counters(q catalog.Query) (Counters, bool) {
	c, ok := s.counters[q]
	if !ok {
		return Counters{}, false
	}
	return *c, true
}

func (s *Store) Impressions(q catalog.Query) float64 { return s.get(q).Impressions }
func (s *Store) Clicks(q catalog.Query) float64      { return s.get(q).Clicks }
func (s *Store) Cost(q catalog.Query) float64        { return s.get(q).Cost }
func (s *Store) Conversions(q catalog.Query) float64 { return s.get(q).Conversions }
func (s *Store) Revenue(q catalog.Query) float64     { return s.get(q).Revenue }

func (s *Store) get(q catalog.Query) Counters {
	c, _ := s.Counters(q)
	return c
}

// TotalRevenue sums cumulative revenue over every query
func (s *Store) TotalRevenue() float64 {
	total := 0.0
	for _, q := range s.queries {
		total += s.counters[q].Revenue
	}
	return total
}

// ImpressionHistory returns a copy of the daily non-zero impressions of q
func (s *Store) ImpressionHistory(q catalog.Query) []float64 {
	return append([]float64(nil), s.history[q]...)
}

// SetWindow changes the distribution window, dropping the oldest reports
// when it shrinks
func (s *Store) SetWindow(size int) {
	s.sales.resize(size)
	s.reports.resize(size)
}

// WindowLen returns the number of sales reports in the distribution window
func (s *Store) WindowLen() int {
	return s.sales.len()
}

// QueryReportsLen returns the number of retained query reports
func (s *Store) QueryReportsLen() int {
	return s.reports.len()
}

// LatestQueryReport returns the most recent query report, if any
func (s *Store) LatestQueryReport() (*protocol.QueryReport, bool) {
	return s.reports.last()
}
