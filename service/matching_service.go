package service

import (
	"context"

	"ridematch/pkg/apperr"
	"ridematch/pkg/events"
	"ridematch/pkg/logger"
	"ridematch/pkg/metrics"
	"ridematch/pkg/models"
	"ridematch/storage"
)

type MatchingService interface {
	ListOpen(ctx context.Context, caller *models.Account) ([]*models.RideRequest, error)
	Accept(ctx context.Context, caller *models.Account, requestID int64) (int64, error)
	Reject(ctx context.Context, caller *models.Account, requestID int64) error
}

type matchingService struct {
	stg      storage.IStorage
	notifier notifier
	log      logger.ILogger
}

func newMatchingService(stg storage.IStorage, n notifier, log logger.ILogger) *matchingService {
	return &matchingService{stg: stg, notifier: n, log: log}
}

func (s *matchingService) ListOpen(ctx context.Context, caller *models.Account) ([]*models.RideRequest, error) {
	if err := requireDriver(caller); err != nil {
		return nil, err
	}
	acc, err := s.stg.Account().GetByID(ctx, caller.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.Forbidden("unknown account %d", caller.ID)
		}
		return nil, apperr.Storage(err)
	}
	if !acc.CanTakeWork() {
		return nil, apperr.Forbidden("driver %d is not available", acc.ID)
	}

	open, err := s.stg.Request().ListOpenForDriver(ctx, acc.ID)
	if err != nil {
		s.log.Error("failed to list open requests", logger.Int64("driver_id", acc.ID), logger.Error(err))
		return nil, apperr.Storage(err)
	}
	return open, nil
}

func (s *matchingService) Accept(ctx context.Context, caller *models.Account, requestID int64) (int64, error) {
	var ride *models.Ride
	err := s.stg.InTx(ctx, func(ctx context.Context, repos storage.Repos) error {
		driver, err := lockDriver(ctx, repos, caller, true)
		if err != nil {
			return err
		}

		if _, err := repos.Ride().GetActiveByDriver(ctx, driver.ID); err == nil {
			return apperr.Conflict("driver already has an active ride")
		} else if !isNotFound(err) {
			return apperr.Storage(err)
		}

		// Removing the open request is the step that decides between
		// concurrent accepts; the loser sees it gone.
		req, err := repos.Request().TakeOpen(ctx, requestID)
		if err != nil {
			if isNotFound(err) {
				metrics.RaceLosses.WithLabelValues("accept").Inc()
				return apperr.NotFound("request %d is not open", requestID)
			}
			return apperr.Storage(err)
		}

		ride, err = repos.Ride().Create(ctx, models.RideFromRequest(req, driver.ID))
		if err != nil {
			if isDuplicate(err) {
				metrics.RaceLosses.WithLabelValues("accept").Inc()
				return apperr.Conflict("request %d already has an active ride", requestID)
			}
			return apperr.Storage(err)
		}
		return nil
	})
	if err != nil {
		err = apperr.Storage(err)
		logFailure(s.log, "accept", caller, err, logger.Int64("request_id", requestID))
		return 0, err
	}

	metrics.RidesAccepted.Inc()
	s.log.Info("ride request accepted",
		logger.Int64("request_id", requestID),
		logger.Int64("ride_id", ride.ID),
		logger.Int64("driver_id", ride.DriverID),
	)

	ev := events.New(events.RideAccepted)
	ev.RequestID = ride.RequestID
	ev.RideID = ride.ID
	ev.PassengerID = ride.PassengerID
	ev.DriverID = ride.DriverID
	ev.Status = string(ride.Status)
	s.notifier.publish(ctx, ev)

	return ride.ID, nil
}

func (s *matchingService) Reject(ctx context.Context, caller *models.Account, requestID int64) error {
	err := s.stg.InTx(ctx, func(ctx context.Context, repos storage.Repos) error {
		driver, err := lockDriver(ctx, repos, caller, true)
		if err != nil {
			return err
		}

		if _, err := repos.Request().GetOpen(ctx, requestID); err != nil {
			if isNotFound(err) {
				return apperr.NotFound("request %d is not open", requestID)
			}
			return apperr.Storage(err)
		}

		err = repos.Rejection().Create(ctx, &models.RideRejection{RequestID: requestID, DriverID: driver.ID})
		if err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("request %d already rejected", requestID)
			}
			return apperr.Storage(err)
		}
		return nil
	})
	if err != nil {
		err = apperr.Storage(err)
		logFailure(s.log, "reject", caller, err, logger.Int64("request_id", requestID))
		return err
	}

	metrics.Rejections.Inc()
	s.log.Info("ride request rejected",
		logger.Int64("request_id", requestID),
		logger.Int64("driver_id", caller.ID),
	)
	return nil
}
