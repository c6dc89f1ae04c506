// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package catalog

import (
	"fmt"
	"strings"
)

// KeySeparator joins manufacturer and component in a query key. Names may
// not contain it.
const KeySeparator = ":"

// QueryType is the focus level of a query class
type QueryType int

const (
	// F0 carries neither manufacturer nor component
	F0 QueryType = iota
	// F1 carries exactly one of manufacturer or component
	F1
	// F2 carries both manufacturer and component
	F2
)

func (t QueryType) String() string {
	switch t {
	case F0:
		return "F0"
	case F1:
		return "F1"
	case F2:
		return "F2"
	default:
		return fmt.Sprintf("QueryType(%d)", int(t))
	}
}

// Query identifies an auction. An empty string means the axis is unspecified.
type Query struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Component    string `json:"component,omitempty"`
}

// NewQuery creates a query class
func NewQuery(manufacturer, component string) Query {
	return Query{Manufacturer: manufacturer, Component: component}
}

// Type returns the focus level of the query
func (q Query) Type() QueryType {
	switch {
	case q.Manufacturer != "" && q.Component != "":
		return F2
	case q.Manufacturer == "" && q.Component == "":
		return F0
	default:
		return F1
	}
}

// Key is a stable textual form, used on the wire and as an OpenRTB impression id
func (q Query) Key() string {
	return q.Manufacturer + KeySeparator + q.Component
}

func (q Query) String() string {
	m, c := q.Manufacturer, q.Component
	if m == "" {
		m = "*"
	}
	if c == "" {
		c = "*"
	}
	return fmt.Sprintf("(%s,%s)", m, c)
}

// ParseQueryKey reverses Query.Key
func ParseQueryKey(key string) (Query, error) {
	m, c, ok := strings.Cut(key, KeySeparator)
	if !ok || strings.Contains(c, KeySeparator) {
		return Query{}, fmt.Errorf("%w: %q", ErrInvalidQueryKey, key)
	}
	return Query{Manufacturer: m, Component: c}, nil
}

// Product is a concrete (manufacturer, component) pair
type Product struct {
	Manufacturer string `json:"manufacturer"`
	Component    string `json:"component"`
}

// Validate checks that both axes are set and neither contains KeySeparator
func (p Product) Validate() error {
	switch {
	case p.Manufacturer == "" || p.Component == "":
		return fmt.Errorf("%w: %q needs a manufacturer and a component", ErrInvalidProduct, p.String())
	case strings.Contains(p.Manufacturer, KeySeparator) || strings.Contains(p.Component, KeySeparator):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidProduct, p.String(), KeySeparator)
	}
	return nil
}

// Query returns the F2 query class matching the product
func (p Product) Query() Query {
	return Query{Manufacturer: p.Manufacturer, Component: p.Component}
}

func (p Product) String() string {
	return p.Manufacturer + "/" + p.Component
}

// Ad is either generic (Product == nil) or targeted at a product
type Ad struct {
	Product *Product `json:"product,omitempty"`
}

// GenericAd returns an ad with no product attached
func GenericAd() *Ad {
	return &Ad{}
}

// TargetedAd returns an ad carrying the given product
func TargetedAd(manufacturer, component string) *Ad {
	return &Ad{Product: &Product{Manufacturer: manufacturer, Component: component}}
}

// IsGeneric reports whether the ad carries no product
func (a *Ad) IsGeneric() bool {
	return a == nil || a.Product == nil
}

// Equal compares product content
func (a *Ad) Equal(other *Ad) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.Product == nil || other.Product == nil {
		return a.Product == nil && other.Product == nil
	}
	return *a.Product == *other.Product
}

func (a *Ad) String() string {
	if a.IsGeneric() {
		return "generic"
	}
	return a.Product.String()
}
