package postgres

import (
	"context"

	"ridematch/pkg/logger"
	"ridematch/pkg/models"
	"ridematch/storage"
)

type rejectionRepo struct {
	db  querier
	log logger.ILogger
}

func NewRejectionRepo(db querier, log logger.ILogger) storage.IRejectionStorage {
	return &rejectionRepo{db: db, log: log}
}

func (r *rejectionRepo) Create(ctx context.Context, rejection *models.RideRejection) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO ride_rejections (request_id, driver_id) VALUES ($1, $2)",
		rejection.RequestID, rejection.DriverID,
	)
	if err != nil {
		err = mapErr(err)
		r.log.Error("failed to create rejection",
			logger.Int64("request_id", rejection.RequestID),
			logger.Int64("driver_id", rejection.DriverID),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func (r *rejectionRepo) Exists(ctx context.Context, requestID, driverID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM ride_rejections WHERE request_id = $1 AND driver_id = $2)",
		requestID, driverID,
	).Scan(&exists)
	return exists, err
}
