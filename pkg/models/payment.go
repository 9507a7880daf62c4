package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID        int64           `json:"id"`
	RideID    int64           `json:"ride_id"`
	DriverID  int64           `json:"driver_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
