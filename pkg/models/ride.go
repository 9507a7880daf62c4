package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RideStatus string

const (
	RideAccepted   RideStatus = "accepted"
	RideInProgress RideStatus = "in_progress"
	RideCompleted  RideStatus = "completed"
	RideCancelled  RideStatus = "cancelled"
)

func (s RideStatus) Valid() bool {
	switch s {
	case RideAccepted, RideInProgress, RideCompleted, RideCancelled:
		return true
	}
	return false
}

func (s RideStatus) IsTerminal() bool {
	return s == RideCompleted || s == RideCancelled
}

// IsActive reports whether a ride in this status counts against the
// one-active-ride limits.
func (s RideStatus) IsActive() bool {
	return s == RideAccepted || s == RideInProgress
}

// Settable is what a driver may ask for through a status update.
func (s RideStatus) Settable() bool {
	switch s {
	case RideInProgress, RideCompleted, RideCancelled:
		return true
	}
	return false
}

var rideTransitions = map[RideStatus][]RideStatus{
	RideAccepted:   {RideInProgress, RideCancelled},
	RideInProgress: {RideCompleted, RideCancelled},
	RideCompleted:  nil,
	RideCancelled:  nil,
}

func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	for _, allowed := range rideTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Ride struct {
	ID          int64           `json:"id"`
	RequestID   int64           `json:"request_id"`
	PassengerID int64           `json:"passenger_id"`
	DriverID    int64           `json:"driver_id"`
	Pickup      string          `json:"pickup"`
	Drop        string          `json:"drop"`
	Category    Category        `json:"category"`
	Payment     decimal.Decimal `json:"payment"`
	Status      RideStatus      `json:"status"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RideFromRequest copies the trip attributes of an accepted request,
// keeping its creation time.
func RideFromRequest(req *RideRequest, driverID int64) *Ride {
	return &Ride{
		RequestID:   req.ID,
		PassengerID: req.PassengerID,
		DriverID:    driverID,
		Pickup:      req.Pickup,
		Drop:        req.Drop,
		Category:    req.Category,
		Payment:     req.Payment,
		Status:      RideAccepted,
		Active:      true,
		CreatedAt:   req.CreatedAt,
	}
}
