package postgres

import (
	"context"

	"ridematch/pkg/logger"
	"ridematch/pkg/models"
	"ridematch/storage"
)

type paymentRepo struct {
	db  querier
	log logger.ILogger
}

func NewPaymentRepo(db querier, log logger.ILogger) storage.IPaymentStorage {
	return &paymentRepo{db: db, log: log}
}

func (r *paymentRepo) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	query := `
		INSERT INTO payments (ride_id, driver_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, ride_id, driver_id, amount, created_at
	`
	var p models.Payment
	err := r.db.QueryRow(ctx, query, payment.RideID, payment.DriverID, payment.Amount).Scan(
		&p.ID, &p.RideID, &p.DriverID, &p.Amount, &p.CreatedAt,
	)
	if err != nil {
		err = mapErr(err)
		r.log.Error("failed to create payment", logger.Int64("ride_id", payment.RideID), logger.Error(err))
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) GetByRide(ctx context.Context, rideID int64) (*models.Payment, error) {
	var p models.Payment
	err := r.db.QueryRow(ctx,
		"SELECT id, ride_id, driver_id, amount, created_at FROM payments WHERE ride_id = $1", rideID,
	).Scan(&p.ID, &p.RideID, &p.DriverID, &p.Amount, &p.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *paymentRepo) ListByDriver(ctx context.Context, driverID int64) ([]*models.Payment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ride_id, driver_id, amount, created_at
		FROM payments
		WHERE driver_id = $1
		ORDER BY created_at DESC, id DESC
	`, driverID)
	if err != nil {
		r.log.Error("failed to list payments", logger.Int64("driver_id", driverID), logger.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.RideID, &p.DriverID, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
