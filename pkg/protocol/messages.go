// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocol

import (
	"time"

	"github.com/luxfi/bidagent/pkg/catalog"
)

// Message is an inbound message from the simulation host
type Message interface {
	messageKind() Kind
}

// Kind tags a message on the wire
type Kind string

const (
	KindStartInfo        Kind = "start_info"
	KindPublisherInfo    Kind = "publisher_info"
	KindSlotInfo         Kind = "slot_info"
	KindRetailCatalog    Kind = "retail_catalog"
	KindAdvertiserInfo   Kind = "advertiser_info"
	KindQueryReport      Kind = "query_report"
	KindSalesReport      Kind = "sales_report"
	KindSimulationStatus Kind = "simulation_status"
	KindSimulationStart  Kind = "simulation_start"
	KindSimulationEnd    Kind = "simulation_end"
	KindBidBundle        Kind = "bid_bundle"
)

// KindOf returns the wire tag of a message
func KindOf(m Message) Kind {
	return m.messageKind()
}

// StartInfo describes the simulation run
type StartInfo struct {
	SimulationID  int       `json:"simulation_id"`
	StartTime     time.Time `json:"start_time"`
	NumberOfDays  int       `json:"number_of_days"`
	SecondsPerDay int       `json:"seconds_per_day"`
}

// PublisherInfo carries the publisher's squashing parameter
type PublisherInfo struct {
	SquashingParameter float64 `json:"squashing_parameter"`
}

// SlotInfo is identical for all auctions over all query classes
type SlotInfo struct {
	RegularSlots  int     `json:"regular_slots"`
	PromotedSlots int     `json:"promoted_slots"`
	PromotedBonus float64 `json:"promoted_bonus"`
}

// RetailCatalogMessage delivers the retail catalog
type RetailCatalogMessage struct {
	Catalog *catalog.RetailCatalog
}

// AdvertiserInfo is the advertiser profile of this agent
type AdvertiserInfo struct {
	ManufacturerSpecialty string  `json:"manufacturer_specialty"`
	ComponentSpecialty    string  `json:"component_specialty"`
	ManufacturerBonus     float64 `json:"manufacturer_bonus"`
	ComponentBonus        float64 `json:"component_bonus"`
	DistributionCapacity  int     `json:"distribution_capacity"`
	DistributionWindow    int     `json:"distribution_window"`
	PublisherID           string  `json:"publisher_id"`
	AdvertiserID          string  `json:"advertiser_id"`
}

// SimulationStatus is the daily tick. Day is nil when the host omits it; an
// explicit day, zero included, is used as sent.
type SimulationStatus struct {
	Day *int `json:"day,omitempty"`
}

// StatusForDay returns a status carrying an explicit day
func StatusForDay(day int) *SimulationStatus {
	return &SimulationStatus{Day: &day}
}

// SimulationStart marks the beginning of a session
type SimulationStart struct{}

// SimulationEnd marks the end of a session
type SimulationEnd struct{}

func (*StartInfo) messageKind() Kind            { return KindStartInfo }
func (*PublisherInfo) messageKind() Kind        { return KindPublisherInfo }
func (*SlotInfo) messageKind() Kind             { return KindSlotInfo }
func (*RetailCatalogMessage) messageKind() Kind { return KindRetailCatalog }
func (*AdvertiserInfo) messageKind() Kind       { return KindAdvertiserInfo }
func (*QueryReport) messageKind() Kind          { return KindQueryReport }
func (*SalesReport) messageKind() Kind          { return KindSalesReport }
func (*SimulationStatus) messageKind() Kind     { return KindSimulationStatus }
func (*SimulationStart) messageKind() Kind      { return KindSimulationStart }
func (*SimulationEnd) messageKind() Kind        { return KindSimulationEnd }
