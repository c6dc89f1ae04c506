// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package catalog

import (
	"errors"
	"math"
)

var (
	ErrInvalidQueryKey = errors.New("invalid query key")
	ErrInvalidProduct  = errors.New("invalid product")
)

// Entry is a catalog product with its sales profit
type Entry struct {
	Product     Product `json:"product"`
	SalesProfit float64 `json:"sales_profit"`
}

// RetailCatalog is the ordered product set of a session
type RetailCatalog struct {
	entries  []Entry
	index    map[Product]int
	rejected []error
}

// NewRetailCatalog creates a catalog. Later duplicates of a product are
// dropped, as are products failing Product.Validate; see Rejected.
func NewRetailCatalog(entries []Entry) *RetailCatalog {
	rc := &RetailCatalog{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[Product]int, len(entries)),
	}
	for _, e := range entries {
		if err := e.Product.Validate(); err != nil {
			rc.rejected = append(rc.rejected, err)
			continue
		}
		if _, exists := rc.index[e.Product]; exists {
			continue
		}
		rc.index[e.Product] = len(rc.entries)
		rc.entries = append(rc.entries, e)
	}
	return rc
}

// Rejected returns why each invalid product was dropped
func (rc *RetailCatalog) Rejected() []error {
	if rc == nil {
		return nil
	}
	return rc.rejected
}

// Size returns the number of products
func (rc *RetailCatalog) Size() int {
	if rc == nil {
		return 0
	}
	return len(rc.entries)
}

// Products returns the products in catalog order
func (rc *RetailCatalog) Products() []Product {
	if rc == nil {
		return nil
	}
	products := make([]Product, 0, len(rc.entries))
	for _, e := range rc.entries {
		products = append(products, e.Product)
	}
	return products
}

// Entries returns a copy of the catalog entries
func (rc *RetailCatalog) Entries() []Entry {
	if rc == nil {
		return nil
	}
	return append([]Entry(nil), rc.entries...)
}

// SalesProfit returns the profit of a product, NaN when unknown
func (rc *RetailCatalog) SalesProfit(p Product) float64 {
	if rc == nil {
		return math.NaN()
	}
	i, ok := rc.index[p]
	if !ok {
		return math.NaN()
	}
	return rc.entries[i].SalesProfit
}

// SalesProfitAt returns the profit of the product at index i, NaN when out of range
func (rc *RetailCatalog) SalesProfitAt(i int) float64 {
	if i < 0 || i >= rc.Size() {
		return math.NaN()
	}
	return rc.entries[i].SalesProfit
}

// Manufacturers returns distinct manufacturers in first-seen order
func (rc *RetailCatalog) Manufacturers() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range rc.entries {
		if _, ok := seen[e.Product.Manufacturer]; !ok {
			seen[e.Product.Manufacturer] = struct{}{}
			out = append(out, e.Product.Manufacturer)
		}
	}
	return out
}

// Components returns distinct components in first-seen order
func (rc *RetailCatalog) Components() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range rc.entries {
		if _, ok := seen[e.Product.Component]; !ok {
			seen[e.Product.Component] = struct{}{}
			out = append(out, e.Product.Component)
		}
	}
	return out
}
