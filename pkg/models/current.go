package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	KindRequest EntryKind = "request"
	KindRide    EntryKind = "ride"
)

// CurrentRide is what a passenger currently has in flight: exactly one of
// Request or Ride is set.
type CurrentRide struct {
	Kind    EntryKind    `json:"kind"`
	Request *RideRequest `json:"request,omitempty"`
	Ride    *Ride        `json:"ride,omitempty"`
}

type HistoryEntry struct {
	Kind      EntryKind       `json:"kind"`
	ID        int64           `json:"id"`
	DriverID  *int64          `json:"driver_id,omitempty"`
	Pickup    string          `json:"pickup"`
	Drop      string          `json:"drop"`
	Category  Category        `json:"category"`
	Payment   decimal.Decimal `json:"payment"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

func HistoryFromRequest(r *RideRequest) HistoryEntry {
	return HistoryEntry{
		Kind:      KindRequest,
		ID:        r.ID,
		Pickup:    r.Pickup,
		Drop:      r.Drop,
		Category:  r.Category,
		Payment:   r.Payment,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func HistoryFromRide(r *Ride) HistoryEntry {
	driverID := r.DriverID
	return HistoryEntry{
		Kind:      KindRide,
		ID:        r.ID,
		DriverID:  &driverID,
		Pickup:    r.Pickup,
		Drop:      r.Drop,
		Category:  r.Category,
		Payment:   r.Payment,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}
