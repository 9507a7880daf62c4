package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	RideRequested     Type = "ride.requested"
	RequestCancelled  Type = "ride.request_cancelled"
	RideAccepted      Type = "ride.accepted"
	RideStatusChanged Type = "ride.status_changed"
	RideSettled       Type = "ride.settled"
)

// Event is published after the unit that produced it has committed.
type Event struct {
	ID          string           `json:"id"`
	Type        Type             `json:"type"`
	RequestID   int64            `json:"request_id,omitempty"`
	RideID      int64            `json:"ride_id,omitempty"`
	PassengerID int64            `json:"passenger_id,omitempty"`
	DriverID    int64            `json:"driver_id,omitempty"`
	Status      string           `json:"status,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

func New(t Type) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: time.Now().UTC()}
}

// Key groups events of one trip on the same partition.
func (e Event) Key() string {
	if e.RequestID != 0 {
		return "request-" + strconv.FormatInt(e.RequestID, 10)
	}
	return "ride-" + strconv.FormatInt(e.RideID, 10)
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

type nopPublisher struct{}

func NewNop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, ...Event) error { return nil }
func (nopPublisher) Close() error                            { return nil }
