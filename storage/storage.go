package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"ridematch/pkg/models"
)

var (
	ErrNotFound  = errors.New("storage: not found")
	ErrDuplicate = errors.New("storage: duplicate key")
)

// TxFunc runs inside one atomic unit. Returning an error rolls the unit back.
type TxFunc func(ctx context.Context, repos Repos) error

type IStorage interface {
	Repos
	// InTx begins a transaction, commits it when fn returns nil and rolls it
	// back on error or panic.
	InTx(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
	Close()
}

type Repos interface {
	Account() IAccountStorage
	Request() IRequestStorage
	Ride() IRideStorage
	Rejection() IRejectionStorage
	Payment() IPaymentStorage
}

type IAccountStorage interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error)
	// LockByID reads the account and holds a row lock until the enclosing
	// transaction ends.
	LockByID(ctx context.Context, id int64) (*models.Account, error)
	SetAvailability(ctx context.Context, id int64, available bool) error
	SetTelegramID(ctx context.Context, id int64, telegramID int64) error
	CreditBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)
}

type IRequestStorage interface {
	Create(ctx context.Context, req *models.RideRequest) (*models.RideRequest, error)
	GetByID(ctx context.Context, id int64) (*models.RideRequest, error)
	GetActiveByPassenger(ctx context.Context, passengerID int64) (*models.RideRequest, error)
	// GetOpen returns the request only while it is open.
	GetOpen(ctx context.Context, id int64) (*models.RideRequest, error)
	ListOpenForDriver(ctx context.Context, driverID int64) ([]*models.RideRequest, error)
	ListCancelledByPassenger(ctx context.Context, passengerID int64) ([]*models.RideRequest, error)
	// Cancel retires an open request owned by passengerID. ErrNotFound when
	// no such open request exists.
	Cancel(ctx context.Context, id, passengerID int64) (*models.RideRequest, error)
	// TakeOpen deletes an open request and returns it. ErrNotFound when the
	// request is gone or no longer open.
	TakeOpen(ctx context.Context, id int64) (*models.RideRequest, error)
}

type IRideStorage interface {
	Create(ctx context.Context, ride *models.Ride) (*models.Ride, error)
	GetByID(ctx context.Context, id int64) (*models.Ride, error)
	LockByID(ctx context.Context, id int64) (*models.Ride, error)
	GetActiveByDriver(ctx context.Context, driverID int64) (*models.Ride, error)
	GetActiveByPassenger(ctx context.Context, passengerID int64) (*models.Ride, error)
	// UpdateStatus moves a ride from one status to another. ErrNotFound when
	// the ride is no longer in status from.
	UpdateStatus(ctx context.Context, id int64, from, to models.RideStatus) (*models.Ride, error)
	ListFinishedByPassenger(ctx context.Context, passengerID int64) ([]*models.Ride, error)
	ListByDriver(ctx context.Context, driverID int64) ([]*models.Ride, error)
}

type IRejectionStorage interface {
	Create(ctx context.Context, rejection *models.RideRejection) error
	Exists(ctx context.Context, requestID, driverID int64) (bool, error)
}

type IPaymentStorage interface {
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	GetByRide(ctx context.Context, rideID int64) (*models.Payment, error)
	ListByDriver(ctx context.Context, driverID int64) ([]*models.Payment, error)
}
