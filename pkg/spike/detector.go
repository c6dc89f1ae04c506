// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package spike

import (
	"errors"
	"math"

	"github.com/luxfi/bidagent/pkg/catalog"
	"github.com/luxfi/bidagent/pkg/log"
)

// Config tunes the detector
type Config struct {
	// Threshold is the centroid ratio above which the history is bimodal
	Threshold float64 `mapstructure:"threshold"`
	// MinHistory is the number of non-zero observations needed to cluster
	MinHistory int `mapstructure:"min_history"`
	// MaxIterations caps each k-means run
	MaxIterations int `mapstructure:"max_iterations"`
}

// DefaultConfig returns the stock detector settings
func DefaultConfig() Config {
	return Config{
		Threshold:     15,
		MinHistory:    10,
		MaxIterations: 100,
	}
}

// WithDefaults returns c with every zero field set to its stock value
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Threshold == 0 {
		c.Threshold = d.Threshold
	}
	if c.MinHistory == 0 {
		c.MinHistory = d.MinHistory
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	return c
}

// Validate reports every unusable setting
func (c Config) Validate() error {
	var errs []error
	if c.Threshold <= 1 {
		errs = append(errs, errors.New("threshold must exceed 1"))
	}
	if c.MinHistory < 2 {
		errs = append(errs, errors.New("min_history must be at least 2"))
	}
	if c.MaxIterations < 1 {
		errs = append(errs, errors.New("max_iterations must be at least 1"))
	}
	return errors.Join(errs...)
}

// Outcome is what one observation did to a query's flags
type Outcome int

const (
	// Insufficient history: the query is disarmed
	Insufficient Outcome = iota
	// Degenerate clustering: flags are left untouched
	Degenerate
	// Quiet: no bimodality, the query is disarmed
	Quiet
	// Fired: a spike is flagged for today and the query is armed
	Fired
	// Suppressed: bimodal again while armed, the query is disarmed
	Suppressed
)

func (o Outcome) String() string {
	switch o {
	case Insufficient:
		return "insufficient"
	case Degenerate:
		return "degenerate"
	case Quiet:
		return "quiet"
	case Fired:
		return "fired"
	case Suppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// History is the read side of the history store the detector needs
type History interface {
	ImpressionHistory(q catalog.Query) []float64
}

// Detector flags one-day impression surges per query. A rising edge sets
// spikeToday and arms the query; the next bimodal day only disarms it, so a
// spike fires at most one day in a row.
type Detector struct {
	cfg   Config
	today map[catalog.Query]bool
	armed map[catalog.Query]bool
	log   log.Logger
}

// NewDetector creates a detector
func NewDetector(cfg Config, logger log.Logger) *Detector {
	if cfg.MinHistory < 2 {
		cfg.MinHistory = 2
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	return &Detector{
		cfg:   cfg,
		today: make(map[catalog.Query]bool),
		armed: make(map[catalog.Query]bool),
		log:   logger,
	}
}

// Observe evaluates one query's impression history and updates its flags
func (d *Detector) Observe(q catalog.Query, observations []float64) Outcome {
	if len(observations) < d.cfg.MinHistory {
		d.armed[q] = false
		return Insufficient
	}

	clusters, ok := TwoMeans(observations, d.cfg.MaxIterations)
	if !ok {
		return Degenerate
	}

	hi := math.Max(clusters.Low, clusters.High)
	lo := math.Min(clusters.Low, clusters.High)
	if lo == 0 || hi == 0 || hi/lo <= d.cfg.Threshold {
		d.armed[q] = false
		return Quiet
	}

	if d.armed[q] {
		d.armed[q] = false
		return Suppressed
	}

	d.today[q] = true
	d.armed[q] = true
	d.log.Debug("impression spike detected",
		log.Stringer("query", q),
		log.Float64("low", lo),
		log.Float64("high", hi),
	)
	return Fired
}

// Run observes every query and returns the ones that fired
func (d *Detector) Run(queries []catalog.Query, h History) []catalog.Query {
	var fired []catalog.Query
	for _, q := range queries {
		if d.Observe(q, h.ImpressionHistory(q)) == Fired {
			fired = append(fired, q)
		}
	}
	return fired
}

// SpikeToday reports whether q is in the spike regime today
func (d *Detector) SpikeToday(q catalog.Query) bool {
	return d.today[q]
}

// Armed reports whether q's de-bouncer is armed
func (d *Detector) Armed(q catalog.Query) bool {
	return d.armed[q]
}

// ClearDay resets every spikeToday flag
func (d *Detector) ClearDay() {
	for q := range d.today {
		d.today[q] = false
	}
}

// Reset drops all flags
func (d *Detector) Reset() {
	d.today = make(map[catalog.Query]bool)
	d.armed = make(map[catalog.Query]bool)
}
