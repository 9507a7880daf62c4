package postgres

import (
	"context"

	"ridematch/pkg/logger"
	"ridematch/pkg/models"
	"ridematch/storage"
)

type requestRepo struct {
	db  querier
	log logger.ILogger
}

func NewRequestRepo(db querier, log logger.ILogger) storage.IRequestStorage {
	return &requestRepo{db: db, log: log}
}

const requestColumns = `id, passenger_id, pickup, drop_off, category, payment, status, active, created_at, updated_at`

func scanRequest(row interface{ Scan(dest ...any) error }) (*models.RideRequest, error) {
	var q models.RideRequest
	err := row.Scan(
		&q.ID, &q.PassengerID, &q.Pickup, &q.Drop, &q.Category, &q.Payment, &q.Status, &q.Active, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *requestRepo) Create(ctx context.Context, req *models.RideRequest) (*models.RideRequest, error) {
	query := `
		INSERT INTO ride_requests (passenger_id, pickup, drop_off, category, payment, status, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + requestColumns
	created, err := scanRequest(r.db.QueryRow(ctx, query,
		req.PassengerID,
		req.Pickup,
		req.Drop,
		req.Category,
		req.Payment,
		req.Status,
		req.Active,
	))
	if err != nil {
		err = mapErr(err)
		r.log.Error("failed to create ride request", logger.Int64("passenger_id", req.PassengerID), logger.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *requestRepo) GetByID(ctx context.Context, id int64) (*models.RideRequest, error) {
	return r.getOne(ctx, `SELECT `+requestColumns+` FROM ride_requests WHERE id = $1`, id)
}

func (r *requestRepo) GetActiveByPassenger(ctx context.Context, passengerID int64) (*models.RideRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM ride_requests
		WHERE passenger_id = $1 AND active
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, passengerID)
}

func (r *requestRepo) GetOpen(ctx context.Context, id int64) (*models.RideRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM ride_requests
		WHERE id = $1 AND status = 'requested' AND active
		FOR SHARE
	`
	return r.getOne(ctx, query, id)
}

func (r *requestRepo) getOne(ctx context.Context, query string, arg int64) (*models.RideRequest, error) {
	q, err := scanRequest(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		err = mapErr(err)
		if err != storage.ErrNotFound {
			r.log.Error("failed to get ride request", logger.Int64("key", arg), logger.Error(err))
		}
		return nil, err
	}
	return q, nil
}

func (r *requestRepo) ListOpenForDriver(ctx context.Context, driverID int64) ([]*models.RideRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM ride_requests q
		WHERE q.status = 'requested' AND q.active
		  AND NOT EXISTS (
			SELECT 1 FROM ride_rejections rj
			WHERE rj.request_id = q.id AND rj.driver_id = $1
		  )
		ORDER BY q.created_at, q.id
	`
	return r.scanRequests(ctx, query, driverID)
}

func (r *requestRepo) ListCancelledByPassenger(ctx context.Context, passengerID int64) ([]*models.RideRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM ride_requests
		WHERE passenger_id = $1 AND status = 'cancelled'
		ORDER BY created_at DESC, id DESC
	`
	return r.scanRequests(ctx, query, passengerID)
}

func (r *requestRepo) scanRequests(ctx context.Context, query string, args ...interface{}) ([]*models.RideRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list ride requests", logger.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []*models.RideRequest
	for rows.Next() {
		q, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *requestRepo) Cancel(ctx context.Context, id, passengerID int64) (*models.RideRequest, error) {
	query := `
		UPDATE ride_requests
		SET status = 'cancelled', active = FALSE, updated_at = NOW()
		WHERE id = $1 AND passenger_id = $2 AND status = 'requested' AND active
		RETURNING ` + requestColumns
	q, err := scanRequest(r.db.QueryRow(ctx, query, id, passengerID))
	if err != nil {
		err = mapErr(err)
		if err != storage.ErrNotFound {
			r.log.Error("failed to cancel ride request", logger.Int64("id", id), logger.Error(err))
		}
		return nil, err
	}
	return q, nil
}

func (r *requestRepo) TakeOpen(ctx context.Context, id int64) (*models.RideRequest, error) {
	query := `
		DELETE FROM ride_requests
		WHERE id = $1 AND status = 'requested' AND active
		RETURNING ` + requestColumns
	q, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		err = mapErr(err)
		if err != storage.ErrNotFound {
			r.log.Error("failed to take ride request", logger.Int64("id", id), logger.Error(err))
		}
		return nil, err
	}
	return q, nil
}
