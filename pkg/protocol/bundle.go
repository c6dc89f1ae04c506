// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"context"
	"errors"
	"math"

	"github.com/luxfi/bidagent/pkg/catalog"
)

var ErrNoPublisher = errors.New("no publisher address")

// Persist is the sentinel for "keep the previous day's value"
var Persist = math.NaN()

// IsPersist reports whether v is the persist sentinel
func IsPersist(v float64) bool {
	return math.IsNaN(v)
}

// BidEntry is the daily update for one query class. A nil Ad persists the
// previous ad.
type BidEntry struct {
	Query      catalog.Query
	Bid        float64
	Ad         *catalog.Ad
	DailyLimit float64
}

// BidBundle is the per-tick output of the agent
type BidBundle struct {
	entries            []BidEntry
	index              map[catalog.Query]int
	CampaignDailyLimit float64
}

// NewBidBundle creates an empty bundle with a persisted campaign limit
func NewBidBundle() *BidBundle {
	return &BidBundle{
		index:              make(map[catalog.Query]int),
		CampaignDailyLimit: Persist,
	}
}

// AddQuery sets bid and ad for q, keeping any daily limit already set
func (b *BidBundle) AddQuery(q catalog.Query, bid float64, ad *catalog.Ad) {
	if i, ok := b.index[q]; ok {
		b.entries[i].Bid = bid
		b.entries[i].Ad = ad
		return
	}
	b.index[q] = len(b.entries)
	b.entries = append(b.entries, BidEntry{Query: q, Bid: bid, Ad: ad, DailyLimit: Persist})
}

// SetDailyLimit sets the spend limit for q
func (b *BidBundle) SetDailyLimit(q catalog.Query, limit float64) {
	if i, ok := b.index[q]; ok {
		b.entries[i].DailyLimit = limit
		return
	}
	b.index[q] = len(b.entries)
	b.entries = append(b.entries, BidEntry{Query: q, Bid: Persist, DailyLimit: limit})
}

// SetCampaignDailySpendLimit sets the campaign-wide limit
func (b *BidBundle) SetCampaignDailySpendLimit(limit float64) {
	b.CampaignDailyLimit = limit
}

// Entry returns the row for q
func (b *BidBundle) Entry(q catalog.Query) (BidEntry, bool) {
	i, ok := b.index[q]
	if !ok {
		return BidEntry{}, false
	}
	return b.entries[i], true
}

// Entries returns the rows in insertion order
func (b *BidBundle) Entries() []BidEntry {
	return append([]BidEntry(nil), b.entries...)
}

// Len returns the number of rows
func (b *BidBundle) Len() int {
	return len(b.entries)
}

// Publisher delivers a bid bundle to the publisher at address
type Publisher interface {
	Publish(ctx context.Context, address string, bundle *BidBundle) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, address string, bundle *BidBundle) error

// Publish calls f
func (f PublisherFunc) Publish(ctx context.Context, address string, bundle *BidBundle) error {
	return f(ctx, address, bundle)
}
