// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package modifier holds the multiplicative bid modifiers shared by ad
// selection and bidding.
package modifier

import (
	"errors"
	"math"

	"github.com/luxfi/bidagent/pkg/catalog"
)

// Specialty is the advertiser's preferred manufacturer and component
type Specialty struct {
	Manufacturer string `json:"manufacturer"`
	Component    string `json:"component"`
}

// Params are the tunable constants of every modifier
type Params struct {
	Lambda        float64 `mapstructure:"lambda"`
	SpecialBoth   float64 `mapstructure:"special_both"`
	SpecialOne    float64 `mapstructure:"special_one"`
	TypeF0        float64 `mapstructure:"type_f0"`
	TypeF1        float64 `mapstructure:"type_f1"`
	TypeF2        float64 `mapstructure:"type_f2"`
	CapacityScale float64 `mapstructure:"capacity_scale"`
}

// DefaultParams returns the stock modifier constants
func DefaultParams() Params {
	return Params{
		Lambda:        0.18,
		SpecialBoth:   1.44,
		SpecialOne:    1.2,
		TypeF0:        0.8,
		TypeF1:        1.0,
		TypeF2:        1.2,
		CapacityScale: 0.9,
	}
}

// WithDefaults returns p with every zero field set to its stock value
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.Lambda == 0 {
		p.Lambda = d.Lambda
	}
	if p.SpecialBoth == 0 {
		p.SpecialBoth = d.SpecialBoth
	}
	if p.SpecialOne == 0 {
		p.SpecialOne = d.SpecialOne
	}
	if p.TypeF0 == 0 {
		p.TypeF0 = d.TypeF0
	}
	if p.TypeF1 == 0 {
		p.TypeF1 = d.TypeF1
	}
	if p.TypeF2 == 0 {
		p.TypeF2 = d.TypeF2
	}
	if p.CapacityScale == 0 {
		p.CapacityScale = d.CapacityScale
	}
	return p
}

// Validate reports every multiplier that would zero or flip a bid
func (p Params) Validate() error {
	if p.SpecialBoth <= 0 || p.SpecialOne <= 0 || p.TypeF0 <= 0 || p.TypeF1 <= 0 || p.TypeF2 <= 0 || p.CapacityScale <= 0 {
		return errors.New("special, type and capacity modifiers must be positive")
	}
	return nil
}

// Set evaluates modifiers for one advertiser
type Set struct {
	params    Params
	specialty Specialty
}

// NewSet creates a modifier set for the given specialty
func NewSet(params Params, specialty Specialty) *Set {
	return &Set{params: params, specialty: specialty}
}

// Specialty returns the advertiser specialty
func (s *Set) Specialty() Specialty {
	return s.specialty
}

// Rank maps a normalized rank to exp(λ·(1−r)), within [1, e^λ] for r in [0,1]
func (s *Set) Rank(r float64) float64 {
	return math.Exp(s.params.Lambda * (1 - r))
}

// Special rewards queries matching the advertiser specialty
func (s *Set) Special(q catalog.Query) float64 {
	m := q.Manufacturer == s.specialty.Manufacturer
	c := q.Component == s.specialty.Component
	switch {
	case m && c:
		return s.params.SpecialBoth
	case !m && !c:
		return 1.0
	default:
		return s.params.SpecialOne
	}
}

// Type weights the focus level of the query
func (s *Set) Type(q catalog.Query) float64 {
	switch q.Type() {
	case catalog.F2:
		return s.params.TypeF2
	case catalog.F0:
		return s.params.TypeF0
	default:
		return s.params.TypeF1
	}
}

// Capacity throttles bidding as recent conversions approach capacity.
// A non-positive capacity disables the throttle.
func (s *Set) Capacity(recentConversions, capacity float64) float64 {
	if capacity <= 0 {
		return 1.0
	}
	return math.Min(1, s.params.CapacityScale*math.Exp(1-recentConversions/capacity))
}
