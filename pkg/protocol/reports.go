// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import "github.com/luxfi/bidagent/pkg/catalog"

// QueryEntry is one query class row of a query report
type QueryEntry struct {
	Query       catalog.Query     `json:"query"`
	Impressions int               `json:"impressions"`
	Clicks      int               `json:"clicks"`
	Cost        float64           `json:"cost"`
	Position    float64           `json:"position"`
	Ad          *catalog.Ad       `json:"ad,omitempty"`
	Peers       []PeerObservation `json:"peers,omitempty"`
}

// PeerObservation is what the host revealed about another advertiser
type PeerObservation struct {
	Advertiser string      `json:"advertiser"`
	Position   float64     `json:"position"`
	Ad         *catalog.Ad `json:"ad,omitempty"`
}

// QueryReport is the daily query report
type QueryReport struct {
	Entries []QueryEntry `json:"entries"`
	index   map[catalog.Query]int
}

// NewQueryReport builds a report. A repeated query keeps its first row.
func NewQueryReport(entries ...QueryEntry) *QueryReport {
	r := &QueryReport{Entries: entries}
	r.reindex()
	return r
}

func (r *QueryReport) reindex() {
	r.index = make(map[catalog.Query]int, len(r.Entries))
	for i := len(r.Entries) - 1; i >= 0; i-- {
		r.index[r.Entries[i].Query] = i
	}
}

// IndexForEntry returns the row of q, or -1 when absent
func (r *QueryReport) IndexForEntry(q catalog.Query) int {
	if r == nil {
		return -1
	}
	if r.index == nil {
		r.reindex()
	}
	i, ok := r.index[q]
	if !ok {
		return -1
	}
	return i
}

func (r *QueryReport) Impressions(i int) int  { return r.Entries[i].Impressions }
func (r *QueryReport) Clicks(i int) int       { return r.Entries[i].Clicks }
func (r *QueryReport) Cost(i int) float64     { return r.Entries[i].Cost }
func (r *QueryReport) Position(i int) float64 { return r.Entries[i].Position }

// SalesEntry is one query class row of a sales report
type SalesEntry struct {
	Query       catalog.Query `json:"query"`
	Conversions int           `json:"conversions"`
	Revenue     float64       `json:"revenue"`
}

// SalesReport is the daily sales report
type SalesReport struct {
	Entries []SalesEntry `json:"entries"`
	index   map[catalog.Query]int
}

// NewSalesReport builds a report. A repeated query keeps its first row.
func NewSalesReport(entries ...SalesEntry) *SalesReport {
	r := &SalesReport{Entries: entries}
	r.reindex()
	return r
}

func (r *SalesReport) reindex() {
	r.index = make(map[catalog.Query]int, len(r.Entries))
	for i := len(r.Entries) - 1; i >= 0; i-- {
		r.index[r.Entries[i].Query] = i
	}
}

// IndexForEntry returns the row of q, or -1 when absent
func (r *SalesReport) IndexForEntry(q catalog.Query) int {
	if r == nil {
		return -1
	}
	if r.index == nil {
		r.reindex()
	}
	i, ok := r.index[q]
	if !ok {
		return -1
	}
	return i
}

func (r *SalesReport) Conversions(i int) int { return r.Entries[i].Conversions }
func (r *SalesReport) Revenue(i int) float64 { return r.Entries[i].Revenue }

// TotalConversions sums conversions over every row
func (r *SalesReport) TotalConversions() int {
	total := 0
	for _, e := range r.Entries {
		total += e.Conversions
	}
	return total
}
