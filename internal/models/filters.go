package models

import (
	"strconv"
	"time"
)

// FilterAll is the value all filter keys use to mean "no restriction".
const FilterAll = "all"

// WeekdayToday asks for stores scheduled on the current weekday.
const WeekdayToday = "today"

// StoreFilters are the recognized server-side filter options for store
// listings. Empty or unrecognized values fall back to "all".
type StoreFilters struct {
	Region       string
	PurchaseProb string
	VisitStatus  string // all | visited | not_visited
	Weekday      string // all | today | "0".."6"
}

// IsZero reports whether no filter is active.
func (f StoreFilters) IsZero() bool {
	n := f.Normalize(time.Now())
	return n.Region == "" && n.PurchaseProb == "" && n.VisitStatus == "" && n.Weekday == ""
}

// Normalize collapses empty, "all" and unrecognized values to the empty
// string and resolves "today" against the given clock, in its location.
// The weekday resolution happens wherever Normalize is called, so a client
// normalizing before the request pins the weekday to its own timezone.
func (f StoreFilters) Normalize(now time.Time) StoreFilters {
	out := StoreFilters{}
	if f.Region != "" && f.Region != FilterAll {
		out.Region = f.Region
	}
	switch PurchaseProb(f.PurchaseProb) {
	case ProbHigh, ProbLow:
		out.PurchaseProb = f.PurchaseProb
	}
	switch f.VisitStatus {
	case "visited", "not_visited":
		out.VisitStatus = f.VisitStatus
	}
	switch {
	case f.Weekday == WeekdayToday:
		out.Weekday = strconv.Itoa(int(now.Weekday()))
	case f.Weekday != "" && f.Weekday != FilterAll:
		if d, err := strconv.Atoi(f.Weekday); err == nil && d >= 0 && d <= 6 {
			out.Weekday = f.Weekday
		}
	}
	return out
}
