// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

import (
	"fmt"
	"math"

	"github.com/luxfi/bidagent/pkg/catalog"
)

// ProfitSource supplies the per-query profit that scales base bids and
// ceilings
type ProfitSource interface {
	Profit(q catalog.Query) float64
}

// ConstantProfit uses the same profit for every query
type ConstantProfit float64

// Profit implements ProfitSource
func (c ConstantProfit) Profit(catalog.Query) float64 {
	return float64(c)
}

// CatalogProfit derives profit from catalog sales profits: the product's own
// profit for F2 queries, the mean over matching products otherwise. Queries
// with no matching product fall back to Fallback.
type CatalogProfit struct {
	Catalog  *catalog.RetailCatalog
	Fallback float64
}

// Profit implements ProfitSource
func (c CatalogProfit) Profit(q catalog.Query) float64 {
	var sum float64
	var n int
	for _, e := range c.Catalog.Entries() {
		if q.Manufacturer != "" && q.Manufacturer != e.Product.Manufacturer {
			continue
		}
		if q.Component != "" && q.Component != e.Product.Component {
			continue
		}
		if math.IsNaN(e.SalesProfit) {
			continue
		}
		sum += e.SalesProfit
		n++
	}
	if n == 0 || sum <= 0 {
		return c.Fallback
	}
	return sum / float64(n)
}

// Profit source names accepted in configuration
const (
	ProfitConstant = "constant"
	ProfitCatalog  = "catalog"
)

// NewProfitSource builds the named profit source
func NewProfitSource(name string, constant float64, rc *catalog.RetailCatalog) (ProfitSource, error) {
	switch name {
	case "", ProfitConstant:
		return ConstantProfit(constant), nil
	case ProfitCatalog:
		return CatalogProfit{Catalog: rc, Fallback: constant}, nil
	default:
		return nil, fmt.Errorf("unknown profit source %q", name)
	}
}

// LoseModifier adjusts bids for queries where the agent lost ground. The
// stock implementation is neutral.
type LoseModifier interface {
	Lose(q catalog.Query) float64
}

// NeutralLose always returns 1
type NeutralLose struct{}

// Lose implements LoseModifier
func (NeutralLose) Lose(catalog.Query) float64 {
	return 1.0
}
