// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package journal

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClosed         = errors.New("journal closed")
	ErrDuplicateDay   = errors.New("day already recorded")
	ErrUnknownSession = errors.New("unknown session")
)

// BidRow is one query's bid for a day
type BidRow struct {
	Query  string  `json:"query"`
	Bid    float64 `json:"bid"`
	Regime string  `json:"regime"`
	Ad     string  `json:"ad"`
}

// Day is everything the agent decided on one tick
type Day struct {
	SessionID         uuid.UUID `json:"session_id"`
	Day               int       `json:"day"`
	RecordedAt        time.Time `json:"recorded_at"`
	CapacityModifier  float64   `json:"capacity_modifier"`
	RecentConversions float64   `json:"recent_conversions"`
	Spikes            []string  `json:"spikes"`
	Bids              []BidRow  `json:"bids"`
}

// Recorder persists daily bid decisions
type Recorder interface {
	Record(ctx context.Context, day *Day) error
	Days(ctx context.Context, sessionID uuid.UUID) ([]*Day, error)
	Close() error
}

// MemoryRecorder keeps days in memory
type MemoryRecorder struct {
	mu     sync.RWMutex
	days   map[uuid.UUID]map[int]*Day
	closed bool
}

// NewMemoryRecorder creates an empty in-memory journal
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{days: make(map[uuid.UUID]map[int]*Day)}
}

// Record stores a copy of day
func (m *MemoryRecorder) Record(ctx context.Context, day *Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	session, ok := m.days[day.SessionID]
	if !ok {
		session = make(map[int]*Day)
		m.days[day.SessionID] = session
	}
	if _, exists := session[day.Day]; exists {
		return ErrDuplicateDay
	}

	cp := *day
	cp.Spikes = append([]string(nil), day.Spikes...)
	cp.Bids = append([]BidRow(nil), day.Bids...)
	session[day.Day] = &cp
	return nil
}

// Days returns the recorded days of a session in day order
func (m *MemoryRecorder) Days(ctx context.Context, sessionID uuid.UUID) ([]*Day, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.days[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	out := make([]*Day, 0, len(session))
	for _, d := range session {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// Close rejects further writes
func (m *MemoryRecorder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Recorder = (*MemoryRecorder)(nil)
