package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryBike     Category = "bike"
	CategoryCar      Category = "car"
	CategoryRickshaw Category = "rickshaw"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryBike, CategoryCar, CategoryRickshaw:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestRequested RequestStatus = "requested"
	RequestCancelled RequestStatus = "cancelled"
)

type RideRequest struct {
	ID          int64           `json:"id"`
	PassengerID int64           `json:"passenger_id"`
	Pickup      string          `json:"pickup"`
	Drop        string          `json:"drop"`
	Category    Category        `json:"category"`
	Payment     decimal.Decimal `json:"payment"`
	Status      RequestStatus   `json:"status"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsOpen is the visibility predicate for drivers.
func (r *RideRequest) IsOpen() bool {
	return r.Status == RequestRequested && r.Active
}

// NewRideRequest is the caller-supplied part of a request.
type NewRideRequest struct {
	Pickup   string          `json:"pickup"`
	Drop     string          `json:"drop"`
	Category Category        `json:"category"`
	Payment  decimal.Decimal `json:"payment"`
}
