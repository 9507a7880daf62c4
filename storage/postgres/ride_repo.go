package postgres

import (
	"context"

	"ridematch/pkg/logger"
	"ridematch/pkg/models"
	"ridematch/storage"
)

type rideRepo struct {
	db  querier
	log logger.ILogger
}

func NewRideRepo(db querier, log logger.ILogger) storage.IRideStorage {
	return &rideRepo{db: db, log: log}
}

const rideColumns = `id, request_id, passenger_id, driver_id, pickup, drop_off, category, payment, status, active, created_at, updated_at`

func scanRide(row interface{ Scan(dest ...any) error }) (*models.Ride, error) {
	var d models.Ride
	err := row.Scan(
		&d.ID, &d.RequestID, &d.PassengerID, &d.DriverID, &d.Pickup, &d.Drop, &d.Category, &d.Payment,
		&d.Status, &d.Active, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *rideRepo) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	query := `
		INSERT INTO rides (request_id, passenger_id, driver_id, pickup, drop_off, category, payment, status, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + rideColumns
	created, err := scanRide(r.db.QueryRow(ctx, query,
		ride.RequestID,
		ride.PassengerID,
		ride.DriverID,
		ride.Pickup,
		ride.Drop,
		ride.Category,
		ride.Payment,
		ride.Status,
		ride.Active,
		ride.CreatedAt,
	))
	if err != nil {
		err = mapErr(err)
		r.log.Error("failed to create ride", logger.Int64("request_id", ride.RequestID), logger.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *rideRepo) GetByID(ctx context.Context, id int64) (*models.Ride, error) {
	return r.getOne(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id)
}

func (r *rideRepo) LockByID(ctx context.Context, id int64) (*models.Ride, error) {
	return r.getOne(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1 FOR UPDATE`, id)
}

func (r *rideRepo) GetActiveByDriver(ctx context.Context, driverID int64) (*models.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE driver_id = $1 AND active
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, driverID)
}

func (r *rideRepo) GetActiveByPassenger(ctx context.Context, passengerID int64) (*models.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE passenger_id = $1 AND active
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, passengerID)
}

func (r *rideRepo) getOne(ctx context.Context, query string, arg int64) (*models.Ride, error) {
	d, err := scanRide(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		err = mapErr(err)
		if err != storage.ErrNotFound {
			r.log.Error("failed to get ride", logger.Int64("key", arg), logger.Error(err))
		}
		return nil, err
	}
	return d, nil
}

func (r *rideRepo) UpdateStatus(ctx context.Context, id int64, from, to models.RideStatus) (*models.Ride, error) {
	query := `
		UPDATE rides
		SET status = $1, active = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING ` + rideColumns
	d, err := scanRide(r.db.QueryRow(ctx, query, to, to.IsActive(), id, from))
	if err != nil {
		err = mapErr(err)
		if err != storage.ErrNotFound {
			r.log.Error("failed to update ride status", logger.Int64("id", id), logger.String("to", string(to)), logger.Error(err))
		}
		return nil, err
	}
	return d, nil
}

func (r *rideRepo) ListFinishedByPassenger(ctx context.Context, passengerID int64) ([]*models.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE passenger_id = $1 AND status IN ('completed', 'cancelled')
		ORDER BY created_at DESC, id DESC
	`
	return r.scanRides(ctx, query, passengerID)
}

func (r *rideRepo) ListByDriver(ctx context.Context, driverID int64) ([]*models.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE driver_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.scanRides(ctx, query, driverID)
}

func (r *rideRepo) scanRides(ctx context.Context, query string, args ...interface{}) ([]*models.Ride, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list rides", logger.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []*models.Ride
	for rows.Next() {
		d, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
