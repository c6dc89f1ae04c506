// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/luxfi/bidagent/pkg/catalog"
)

var (
	ErrUnknownKind    = errors.New("unknown message type")
	ErrMissingPayload = errors.New("missing message payload")
)

// moneyPlaces is the precision of monetary amounts on the wire
const moneyPlaces = 4

// Envelope is the wire frame for every message in both directions
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wireCatalog struct {
	Products []catalog.Entry `json:"products"`
}

// DecodeMessage turns an inbound envelope into a typed message
func DecodeMessage(env Envelope) (Message, error) {
	var msg Message
	switch env.Type {
	case KindStartInfo:
		msg = &StartInfo{}
	case KindPublisherInfo:
		msg = &PublisherInfo{}
	case KindSlotInfo:
		msg = &SlotInfo{}
	case KindAdvertiserInfo:
		msg = &AdvertiserInfo{}
	case KindQueryReport:
		msg = &QueryReport{}
	case KindSalesReport:
		msg = &SalesReport{}
	case KindSimulationStatus:
		msg = &SimulationStatus{}
	case KindSimulationStart:
		return &SimulationStart{}, nil
	case KindSimulationEnd:
		return &SimulationEnd{}, nil
	case KindRetailCatalog:
		if len(env.Payload) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingPayload, env.Type)
		}
		var wc wireCatalog
		if err := json.Unmarshal(env.Payload, &wc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return &RetailCatalogMessage{Catalog: catalog.NewRetailCatalog(wc.Products)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}

	if len(env.Payload) == 0 {
		if env.Type == KindSimulationStatus {
			return msg, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingPayload, env.Type)
	}
	if err := json.Unmarshal(env.Payload, msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return msg, nil
}

// EncodeMessage wraps an inbound message in an envelope. Hosts and tests use
// it to feed the agent.
func EncodeMessage(m Message) (Envelope, error) {
	var payload any = m
	switch v := m.(type) {
	case *RetailCatalogMessage:
		payload = wireCatalog{Products: v.Catalog.Entries()}
	case *SimulationStart, *SimulationEnd:
		return Envelope{Type: KindOf(m)}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", KindOf(m), err)
	}
	return Envelope{Type: KindOf(m), Payload: raw}, nil
}

// BundleEncoder renders a bid bundle as an outbound envelope payload
type BundleEncoder interface {
	EncodeBundle(address string, bundle *BidBundle) (json.RawMessage, error)
}

// NativeEncoder is the default bundle rendition
type NativeEncoder struct{}

type wireBidEntry struct {
	Query      catalog.Query    `json:"query"`
	Bid        *decimal.Decimal `json:"bid"`
	Ad         *catalog.Ad      `json:"ad"`
	DailyLimit *decimal.Decimal `json:"daily_limit"`
}

// WireBidBundle is the JSON form of a bid bundle. Null amounts and a null ad
// mean persist.
type WireBidBundle struct {
	Publisher          string           `json:"publisher"`
	Entries            []wireBidEntry   `json:"entries"`
	CampaignDailyLimit *decimal.Decimal `json:"campaign_daily_limit"`
}

func toMoney(v float64) *decimal.Decimal {
	if IsPersist(v) {
		return nil
	}
	d := decimal.NewFromFloat(v).Round(moneyPlaces)
	return &d
}

func fromMoney(d *decimal.Decimal) float64 {
	if d == nil {
		return Persist
	}
	return d.InexactFloat64()
}

// EncodeBundle implements BundleEncoder
func (NativeEncoder) EncodeBundle(address string, bundle *BidBundle) (json.RawMessage, error) {
	wb := WireBidBundle{
		Publisher:          address,
		Entries:            make([]wireBidEntry, 0, bundle.Len()),
		CampaignDailyLimit: toMoney(bundle.CampaignDailyLimit),
	}
	for _, e := range bundle.Entries() {
		wb.Entries = append(wb.Entries, wireBidEntry{
			Query:      e.Query,
			Bid:        toMoney(e.Bid),
			Ad:         e.Ad,
			DailyLimit: toMoney(e.DailyLimit),
		})
	}
	return json.Marshal(wb)
}

// DecodeBundle parses a native bundle payload
func DecodeBundle(raw json.RawMessage) (string, *BidBundle, error) {
	var wb WireBidBundle
	if err := json.Unmarshal(raw, &wb); err != nil {
		return "", nil, fmt.Errorf("decode %s: %w", KindBidBundle, err)
	}
	bundle := NewBidBundle()
	for _, e := range wb.Entries {
		bundle.AddQuery(e.Query, fromMoney(e.Bid), e.Ad)
		bundle.SetDailyLimit(e.Query, fromMoney(e.DailyLimit))
	}
	bundle.SetCampaignDailySpendLimit(fromMoney(wb.CampaignDailyLimit))
	return wb.Publisher, bundle, nil
}
