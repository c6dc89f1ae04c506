// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rtb

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/shopspring/decimal"

	"github.com/luxfi/bidagent/pkg/catalog"
	"github.com/luxfi/bidagent/pkg/protocol"
)

const (
	currency    = "USD"
	pricePlaces = 4
)

var ErrNoSeatBid = errors.New("bid response has no seat bid")

// bidExt carries what an OpenRTB bid cannot express natively
type bidExt struct {
	Product    *catalog.Product `json:"product,omitempty"`
	PersistAd  bool             `json:"persist_ad,omitempty"`
	PersistBid bool             `json:"persist_bid,omitempty"`
	DailyLimit *decimal.Decimal `json:"daily_limit"`
}

type responseExt struct {
	CampaignDailyLimit *decimal.Decimal `json:"campaign_daily_limit"`
}

// Encoder renders bid bundles as OpenRTB bid responses: one seat for the
// agent, one bid per query class with the query key as impression id
type Encoder struct {
	Seat string
}

// NewEncoder creates an encoder bidding under seat
func NewEncoder(seat string) *Encoder {
	return &Encoder{Seat: seat}
}

func money(v float64) *decimal.Decimal {
	if protocol.IsPersist(v) {
		return nil
	}
	d := decimal.NewFromFloat(v).Round(pricePlaces)
	return &d
}

func unmoney(d *decimal.Decimal) float64 {
	if d == nil {
		return protocol.Persist
	}
	return d.InexactFloat64()
}

// BidResponse builds the OpenRTB response for a bundle sent to address
func (e *Encoder) BidResponse(address string, bundle *protocol.BidBundle) (*openrtb2.BidResponse, error) {
	entries := bundle.Entries()
	bids := make([]openrtb2.Bid, 0, len(entries))
	for i, entry := range entries {
		ext := bidExt{DailyLimit: money(entry.DailyLimit)}
		switch {
		case entry.Ad == nil:
			ext.PersistAd = true
		case !entry.Ad.IsGeneric():
			p := *entry.Ad.Product
			ext.Product = &p
		}

		var price float64
		if protocol.IsPersist(entry.Bid) {
			ext.PersistBid = true
		} else {
			price = money(entry.Bid).InexactFloat64()
		}

		raw, err := json.Marshal(ext)
		if err != nil {
			return nil, fmt.Errorf("encode bid ext for %s: %w", entry.Query, err)
		}
		bid := openrtb2.Bid{
			ID:    fmt.Sprintf("%s-%d", e.Seat, i),
			ImpID: entry.Query.Key(),
			Price: price,
			Ext:   raw,
		}
		if entry.Ad != nil {
			bid.CrID = entry.Ad.String()
		}
		bids = append(bids, bid)
	}

	ext, err := json.Marshal(responseExt{CampaignDailyLimit: money(bundle.CampaignDailyLimit)})
	if err != nil {
		return nil, fmt.Errorf("encode response ext: %w", err)
	}

	return &openrtb2.BidResponse{
		ID:    address,
		BidID: e.Seat,
		Cur:   currency,
		SeatBid: []openrtb2.SeatBid{
			{
				Seat: e.Seat,
				Bid:  bids,
			},
		},
		Ext: ext,
	}, nil
}

// EncodeBundle implements protocol.BundleEncoder
func (e *Encoder) EncodeBundle(address string, bundle *protocol.BidBundle) (json.RawMessage, error) {
	resp, err := e.BidResponse(address, bundle)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

// DecodeBidResponse turns an OpenRTB response back into the publisher
// address and bundle
func DecodeBidResponse(raw json.RawMessage) (string, *protocol.BidBundle, error) {
	var resp openrtb2.BidResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", nil, fmt.Errorf("decode bid response: %w", err)
	}
	if len(resp.SeatBid) == 0 {
		return "", nil, ErrNoSeatBid
	}

	bundle := protocol.NewBidBundle()
	if len(resp.Ext) > 0 {
		var ext responseExt
		if err := json.Unmarshal(resp.Ext, &ext); err != nil {
			return "", nil, fmt.Errorf("decode response ext: %w", err)
		}
		bundle.SetCampaignDailySpendLimit(unmoney(ext.CampaignDailyLimit))
	}

	for _, bid := range resp.SeatBid[0].Bid {
		q, err := catalog.ParseQueryKey(bid.ImpID)
		if err != nil {
			return "", nil, err
		}
		var ext bidExt
		if len(bid.Ext) > 0 {
			if err := json.Unmarshal(bid.Ext, &ext); err != nil {
				return "", nil, fmt.Errorf("decode bid ext for %s: %w", bid.ImpID, err)
			}
		}

		var ad *catalog.Ad
		switch {
		case ext.PersistAd:
		case ext.Product != nil:
			ad = catalog.TargetedAd(ext.Product.Manufacturer, ext.Product.Component)
		default:
			ad = catalog.GenericAd()
		}

		price := bid.Price
		if ext.PersistBid {
			price = protocol.Persist
		}
		bundle.AddQuery(q, price, ad)
		bundle.SetDailyLimit(q, unmoney(ext.DailyLimit))
	}
	return resp.ID, bundle, nil
}

var _ protocol.BundleEncoder = (*Encoder)(nil)
