package models

import (
	"time"
)

// IdealTime represents a store's preferred time of day for visits
type IdealTime string

const (
	IdealMorning IdealTime = "morning"
	IdealNoon    IdealTime = "noon"
	IdealNight   IdealTime = "night"
)

// PurchaseProb represents how likely a store is to place an order
type PurchaseProb string

const (
	ProbHigh PurchaseProb = "high"
	ProbLow  PurchaseProb = "low"
)

// VisitType represents how a completed contact happened
type VisitType string

const (
	VisitPhysical VisitType = "physical"
	VisitPhone    VisitType = "phone"
)

// VisitStatus represents the state of a scheduled appointment
type VisitStatus string

const (
	VisitPending VisitStatus = "pending"
	VisitDone    VisitStatus = "done"
)

// RecentWindow is the lookback used to derive the "recently visited" flag.
const RecentWindow = 7 * 24 * time.Hour

// Region is a flat name catalog entry referenced by stores via name.
type Region struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Product is a flat name catalog entry referenced by order items via id.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Store is a sales-target location. Orders and VisitLogs are owned
// collections populated on list/search reads, newest first.
type Store struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Region       string       `json:"region"`
	SellerName   string       `json:"seller_name"`
	Address      string       `json:"address"`
	Phone        string       `json:"phone"`
	Description  string       `json:"description"`
	VisitDays    []int        `json:"visit_days"` // weekdays 0-6, Sunday = 0
	IdealTime    IdealTime    `json:"ideal_time"`
	PurchaseProb PurchaseProb `json:"purchase_prob"`
	Visited      bool         `json:"visited"`
	// LastVisit mirrors the newest visit_logs entry; the recently-visited
	// flag is derived from it, never by re-scanning logs.
	LastVisit *time.Time `json:"last_visit"`
	CreatedAt time.Time  `json:"created_at,omitzero"`

	Orders    []Order    `json:"orders,omitempty"`
	VisitLogs []VisitLog `json:"visit_logs,omitempty"`
}

// RecentlyVisited reports whether the store was visited within the last
// seven days of now.
func (s *Store) RecentlyVisited(now time.Time) bool {
	if s.LastVisit == nil {
		return false
	}
	return now.Sub(*s.LastVisit) <= RecentWindow
}

// OrderItem is a single line of an order. The product name is denormalized
// at write time so historic orders stay readable after catalog edits.
type OrderItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Count       int    `json:"count"`
}

// Order is a purchase record placed against a store.
type Order struct {
	ID        int64       `json:"id"`
	StoreID   int64       `json:"store_id"`
	Date      string      `json:"date"` // locale-formatted display date
	Text      string      `json:"text"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at,omitzero"`
}

// Visit is a scheduled future appointment, distinct from VisitLog.
type Visit struct {
	ID        int64       `json:"id"`
	StoreID   int64       `json:"store_id"`
	VisitDate string      `json:"visit_date"`
	VisitTime string      `json:"visit_time,omitempty"`
	Note      string      `json:"note,omitempty"`
	Status    VisitStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at,omitzero"`

	// Populated on joined listings only.
	StoreName   string `json:"store_name,omitempty"`
	StoreRegion string `json:"store_region,omitempty"`
}

// VisitLog records a completed contact with a store. At most one log of a
// given type exists per store per calendar day; a repeat contact on the
// same day updates the timestamp instead of inserting.
type VisitLog struct {
	ID        int64     `json:"id"`
	StoreID   int64     `json:"store_id"`
	VisitedAt time.Time `json:"visited_at"`
	VisitType VisitType `json:"visit_type"`
	Note      string    `json:"note,omitempty"`
}

// ParseIdealTime validates an ideal-time string, defaulting to morning.
func ParseIdealTime(s string) IdealTime {
	switch IdealTime(s) {
	case IdealMorning, IdealNoon, IdealNight:
		return IdealTime(s)
	}
	return IdealMorning
}

// ParsePurchaseProb validates a purchase-probability string, defaulting to low.
func ParsePurchaseProb(s string) PurchaseProb {
	switch PurchaseProb(s) {
	case ProbHigh, ProbLow:
		return PurchaseProb(s)
	}
	return ProbLow
}

// ParseVisitType validates a visit-type string. Legacy rows with no type
// count as physical.
func ParseVisitType(s string) VisitType {
	if VisitType(s) == VisitPhone {
		return VisitPhone
	}
	return VisitPhysical
}
