// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package agent

import (
	"time"

	"github.com/luxfi/bidagent/pkg/analytics"
	"github.com/luxfi/bidagent/pkg/protocol"
)

// QueryBid is the decision for one query on the last tick
type QueryBid struct {
	Query  string  `json:"query"`
	Bid    float64 `json:"bid"`
	Base   float64 `json:"base"`
	Max    float64 `json:"max"`
	Regime string  `json:"regime"`
	Ad     string  `json:"ad"`
}

// Snapshot is an immutable view of agent state after the last tick. It is
// the only agent state safe to read from other goroutines.
type Snapshot struct {
	SessionID         string                  `json:"session_id"`
	Day               int                     `json:"day"`
	Ready             bool                    `json:"ready"`
	Advertiser        string                  `json:"advertiser,omitempty"`
	Publisher         string                  `json:"publisher,omitempty"`
	Queries           int                     `json:"queries"`
	Capacity          int                     `json:"capacity"`
	Window            int                     `json:"window"`
	RecentConversions float64                 `json:"recent_conversions"`
	CapacityModifier  float64                 `json:"capacity_modifier"`
	TotalRevenue      float64                 `json:"total_revenue"`
	TotalCost         float64                 `json:"total_cost"`
	Spikes            []string                `json:"spikes"`
	Bids              []QueryBid              `json:"bids"`
	Performance       *analytics.Report       `json:"performance,omitempty"`
	QueryReports      int                     `json:"query_reports"`
	LatestQueryReport *protocol.QueryReport   `json:"latest_query_report,omitempty"`
	StartInfo         *protocol.StartInfo     `json:"start_info,omitempty"`
	SlotInfo          *protocol.SlotInfo      `json:"slot_info,omitempty"`
	PublisherInfo     *protocol.PublisherInfo `json:"publisher_info,omitempty"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

type tickResult struct {
	spikes []string
	bids   []QueryBid
}

// Snapshot returns the state published after the last tick
func (a *Agent) Snapshot() Snapshot {
	a.snapMu.RLock()
	defer a.snapMu.RUnlock()
	return a.snap
}

func (a *Agent) publishSnapshot(res *tickResult) {
	s := Snapshot{
		SessionID:     a.sessionID.String(),
		Day:           a.day,
		Ready:         a.Ready(),
		StartInfo:     a.startInfo,
		SlotInfo:      a.slotInfo,
		PublisherInfo: a.publisherInfo,
		UpdatedAt:     time.Now().UTC(),
	}
	if a.advertiser != nil {
		s.Advertiser = a.advertiser.AdvertiserID
		s.Publisher = a.advertiser.PublisherID
		s.Capacity = a.advertiser.DistributionCapacity
		s.Window = a.advertiser.DistributionWindow
	}
	if a.space != nil {
		s.Queries = a.space.Len()
	}
	if a.store != nil {
		s.RecentConversions = a.store.RecentConversions()
		s.TotalRevenue = a.store.TotalRevenue()
		for _, q := range a.store.Queries() {
			s.TotalCost += a.store.Cost(q)
		}
		s.Performance = analytics.BuildReport(a.store)
		s.QueryReports = a.store.QueryReportsLen()
		if r, ok := a.store.LatestQueryReport(); ok {
			s.LatestQueryReport = r
		}
	}
	if a.policy != nil {
		s.CapacityModifier = a.policy.CapacityModifier()
	}
	if res != nil {
		s.Spikes = res.spikes
		s.Bids = res.bids
	}

	a.snapMu.Lock()
	a.snap = s
	a.snapMu.Unlock()
}
