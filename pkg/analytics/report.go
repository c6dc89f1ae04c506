// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/luxfi/bidagent/pkg/catalog"
	"github.com/luxfi/bidagent/pkg/history"
)

const moneyPlaces = 4

// Source is the read side of the history store a report is built from
type Source interface {
	Queries() []catalog.Query
	Counters(q catalog.Query) (history.Counters, bool)
}

// QueryStats is the cumulative performance of one query class
type QueryStats struct {
	Query          string          `json:"query"`
	Impressions    float64         `json:"impressions"`
	Clicks         float64         `json:"clicks"`
	Conversions    float64         `json:"conversions"`
	Cost           decimal.Decimal `json:"cost"`
	Revenue        decimal.Decimal `json:"revenue"`
	Profit         decimal.Decimal `json:"profit"`
	CTR            float64         `json:"ctr"`
	ConversionRate float64         `json:"conversion_rate"`
	CPC            decimal.Decimal `json:"cpc"`
	// ROI is profit over cost, zero before any spend
	ROI float64 `json:"roi"`
}

// Report is a performance report over every tracked query
type Report struct {
	Queries []QueryStats `json:"queries"`
	Totals  QueryStats   `json:"totals"`
}

// BuildReport derives per-query and total performance from src. Counters
// include the bootstrap seeds.
func BuildReport(src Source) *Report {
	queries := src.Queries()
	r := &Report{Queries: make([]QueryStats, 0, len(queries))}

	var total history.Counters
	for _, q := range queries {
		c, ok := src.Counters(q)
		if !ok {
			continue
		}
		r.Queries = append(r.Queries, stats(q.Key(), c))

		total.Impressions += c.Impressions
		total.Clicks += c.Clicks
		total.Conversions += c.Conversions
		total.Cost += c.Cost
		total.Revenue += c.Revenue
	}
	r.Totals = stats("total", total)
	return r
}

func stats(name string, c history.Counters) QueryStats {
	cost := decimal.NewFromFloat(c.Cost).Round(moneyPlaces)
	revenue := decimal.NewFromFloat(c.Revenue).Round(moneyPlaces)
	profit := revenue.Sub(cost)

	s := QueryStats{
		Query:       name,
		Impressions: c.Impressions,
		Clicks:      c.Clicks,
		Conversions: c.Conversions,
		Cost:        cost,
		Revenue:     revenue,
		Profit:      profit,
		CPC:         decimal.Zero,
	}
	if c.Impressions > 0 {
		s.CTR = c.Clicks / c.Impressions
	}
	if c.Clicks > 0 {
		s.ConversionRate = c.Conversions / c.Clicks
		s.CPC = cost.Div(decimal.NewFromFloat(c.Clicks)).Round(moneyPlaces)
	}
	if cost.IsPositive() {
		s.ROI = profit.Div(cost).InexactFloat64()
	}
	return s
}
