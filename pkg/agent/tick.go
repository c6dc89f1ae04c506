// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package agent

import (
	"context"
	"time"

	"github.com/luxfi/bidagent/pkg/journal"
	"github.com/luxfi/bidagent/pkg/log"
	"github.com/luxfi/bidagent/pkg/protocol"
)

// Tick runs one daily bidding cycle and returns the bundle it produced.
// Publish and journal failures are logged; the only error is ErrNotReady.
func (a *Agent) Tick(ctx context.Context, status *protocol.SimulationStatus) (*protocol.BidBundle, error) {
	if !a.Ready() {
		return nil, ErrNotReady
	}

	if status != nil && status.Day != nil {
		if *status.Day <= a.day && a.ticked {
			a.log.Warn("host day does not advance",
				log.Int("day", *status.Day),
				log.Int("previous", a.day),
			)
		}
		a.day = *status.Day
	} else {
		a.day++
	}
	a.ticked = true
	day := a.day

	a.policy.UpdateBaseBids()
	fired := a.policy.DetectSpikes()
	a.policy.UpdateMaxBids()

	queries := a.space.Queries()
	bundle := protocol.NewBidBundle()
	rows := make([]QueryBid, 0, len(queries))
	for _, q := range queries {
		ad := a.selector.Select(q)
		bid, regime := a.policy.Bid(q, day)
		bundle.AddQuery(q, bid, ad)

		a.metrics.FinalBid.WithLabelValues(regime.String()).Observe(bid)
		rows = append(rows, QueryBid{
			Query:  q.Key(),
			Bid:    bid,
			Base:   a.policy.BaseBid(q),
			Max:    a.policy.MaxBid(q),
			Regime: regime.String(),
			Ad:     ad.String(),
		})
	}

	a.publish(ctx, bundle)

	spikes := make([]string, 0, len(fired))
	for _, q := range fired {
		spikes = append(spikes, q.Key())
	}
	a.record(ctx, day, spikes, rows)

	a.metrics.Ticks.Inc()
	a.metrics.Day.Set(float64(day))
	a.metrics.SpikesFired.Add(float64(len(fired)))
	a.metrics.RecentConversions.Set(a.store.RecentConversions())
	a.metrics.CapacityModifier.Set(a.policy.CapacityModifier())

	a.publishSnapshot(&tickResult{spikes: spikes, bids: rows})

	a.policy.ClearDay()

	a.log.Debug("tick",
		log.Int("day", day),
		log.Int("queries", len(queries)),
		log.Int("spikes", len(fired)),
	)
	return bundle, nil
}

func (a *Agent) publish(ctx context.Context, bundle *protocol.BidBundle) {
	address := a.advertiser.PublisherID
	if a.opts.Publisher == nil || address == "" {
		a.log.Warn("not publishing bid bundle", log.Error(protocol.ErrNoPublisher), log.Int("day", a.day))
		return
	}
	if err := a.opts.Publisher.Publish(ctx, address, bundle); err != nil {
		a.metrics.PublishFailures.Inc()
		a.log.Error("failed to publish bid bundle",
			log.String("publisher", address),
			log.Int("day", a.day),
			log.Error(err),
		)
		return
	}
	a.metrics.BundlesPublished.Inc()
}

func (a *Agent) record(ctx context.Context, day int, spikes []string, rows []QueryBid) {
	if a.opts.Journal == nil {
		return
	}

	bids := make([]journal.BidRow, 0, len(rows))
	for _, r := range rows {
		bids = append(bids, journal.BidRow{Query: r.Query, Bid: r.Bid, Regime: r.Regime, Ad: r.Ad})
	}
	err := a.opts.Journal.Record(ctx, &journal.Day{
		SessionID:         a.sessionID,
		Day:               day,
		RecordedAt:        time.Now().UTC(),
		CapacityModifier:  a.policy.CapacityModifier(),
		RecentConversions: a.store.RecentConversions(),
		Spikes:            spikes,
		Bids:              bids,
	})
	if err != nil {
		a.metrics.JournalFailures.Inc()
		a.log.Error("failed to journal day", log.Int("day", day), log.Error(err))
	}
}

