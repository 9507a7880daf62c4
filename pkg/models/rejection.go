package models

import "time"

type RideRejection struct {
	RequestID int64     `json:"request_id"`
	DriverID  int64     `json:"driver_id"`
	CreatedAt time.Time `json:"created_at"`
}
