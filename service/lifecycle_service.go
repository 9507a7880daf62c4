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

type LifecycleService interface {
	// UpdateStatus moves a driver's ride forward. Completing a ride settles
	// it in the same unit.
	UpdateStatus(ctx context.Context, caller *models.Account, rideID int64, status models.RideStatus) (*models.Ride, error)
	// Cancel lets a passenger withdraw either an open request or a ride that
	// has not started yet. It reports which of the two was cancelled.
	Cancel(ctx context.Context, caller *models.Account, id int64) (models.EntryKind, error)
	CurrentForDriver(ctx context.Context, caller *models.Account) (*models.Ride, error)
	DriverRides(ctx context.Context, caller *models.Account) ([]*models.Ride, error)
}

type lifecycleService struct {
	stg        storage.IStorage
	requests   *requestService
	settlement *settlementService
	notifier   notifier
	log        logger.ILogger
}

func newLifecycleService(stg storage.IStorage, requests *requestService, settlement *settlementService, n notifier, log logger.ILogger) *lifecycleService {
	return &lifecycleService{
		stg:        stg,
		requests:   requests,
		settlement: settlement,
		notifier:   n,
		log:        log,
	}
}

func (s *lifecycleService) UpdateStatus(ctx context.Context, caller *models.Account, rideID int64, status models.RideStatus) (*models.Ride, error) {
	if err := requireDriver(caller); err != nil {
		return nil, err
	}
	if !status.Settable() {
		return nil, apperr.InvalidInput("status %q cannot be set", status)
	}

	var (
		from    models.RideStatus
		updated *models.Ride
		payment *models.Payment
	)
	err := s.stg.InTx(ctx, func(ctx context.Context, repos storage.Repos) error {
		ride, err := repos.Ride().LockByID(ctx, rideID)
		if err != nil {
			if isNotFound(err) {
				return apperr.NotFound("ride %d not found", rideID)
			}
			return apperr.Storage(err)
		}
		if ride.DriverID != caller.ID {
			return apperr.NotFound("ride %d not found", rideID)
		}
		if ride.Status.IsTerminal() {
			return apperr.Conflict("ride %d is already %s", rideID, ride.Status)
		}
		if !ride.Status.CanTransitionTo(status) {
			return apperr.Conflict("ride %d cannot move from %s to %s", rideID, ride.Status, status)
		}

		from = ride.Status
		updated, err = repos.Ride().UpdateStatus(ctx, rideID, ride.Status, status)
		if err != nil {
			if isNotFound(err) {
				metrics.RaceLosses.WithLabelValues("update_status").Inc()
				return apperr.Conflict("ride %d changed concurrently", rideID)
			}
			return apperr.Storage(err)
		}

		if status == models.RideCompleted {
			payment, err = s.settlement.settle(ctx, repos, updated)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = apperr.Storage(err)
		logFailure(s.log, "update status", caller, err,
			logger.Int64("ride_id", rideID),
			logger.String("status", string(status)),
		)
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(from), string(status)).Inc()
	s.log.Info("ride status changed",
		logger.Int64("ride_id", rideID),
		logger.String("from", string(from)),
		logger.String("to", string(status)),
	)

	evs := []events.Event{statusChanged(updated)}
	if payment != nil {
		metrics.Settlements.Inc()
		metrics.SettledAmount.Add(payment.Amount.InexactFloat64())

		ev := events.New(events.RideSettled)
		ev.RequestID = updated.RequestID
		ev.RideID = updated.ID
		ev.PassengerID = updated.PassengerID
		ev.DriverID = updated.DriverID
		ev.Amount = &payment.Amount
		evs = append(evs, ev)
	}
	s.notifier.publish(ctx, evs...)

	return updated, nil
}

func (s *lifecycleService) Cancel(ctx context.Context, caller *models.Account, id int64) (models.EntryKind, error) {
	if err := requirePassenger(caller); err != nil {
		return "", err
	}

	var (
		kind      models.EntryKind
		request   *models.RideRequest
		cancelled *models.Ride
	)
	err := s.stg.InTx(ctx, func(ctx context.Context, repos storage.Repos) error {
		req, err := repos.Request().GetByID(ctx, id)
		if err != nil && !isNotFound(err) {
			return apperr.Storage(err)
		}
		ownedRequest := err == nil && req.PassengerID == caller.ID
		if ownedRequest && req.IsOpen() {
			kind = models.KindRequest
			request, err = cancelRequestTx(ctx, repos, caller.ID, id)
			return err
		}

		ride, err := repos.Ride().LockByID(ctx, id)
		if err != nil && !isNotFound(err) {
			return apperr.Storage(err)
		}
		if err != nil || ride.PassengerID != caller.ID {
			if ownedRequest {
				return apperr.Conflict("request %d is %s", id, req.Status)
			}
			return apperr.NotFound("nothing to cancel with id %d", id)
		}
		if ride.Status != models.RideAccepted {
			return apperr.Conflict("ride %d is %s and can no longer be cancelled", id, ride.Status)
		}

		kind = models.KindRide
		cancelled, err = repos.Ride().UpdateStatus(ctx, id, models.RideAccepted, models.RideCancelled)
		if err != nil {
			if isNotFound(err) {
				metrics.RaceLosses.WithLabelValues("cancel_ride").Inc()
				return apperr.Conflict("ride %d changed concurrently", id)
			}
			return apperr.Storage(err)
		}
		return nil
	})
	if err != nil {
		err = apperr.Storage(err)
		logFailure(s.log, "cancel", caller, err, logger.Int64("id", id))
		return "", err
	}

	if kind == models.KindRequest {
		s.requests.requestCancelled(ctx, request)
		return kind, nil
	}

	metrics.StatusTransitions.WithLabelValues(string(models.RideAccepted), string(models.RideCancelled)).Inc()
	s.log.Info("ride cancelled by passenger",
		logger.Int64("ride_id", cancelled.ID),
		logger.Int64("passenger_id", caller.ID),
	)
	s.notifier.publish(ctx, statusChanged(cancelled))
	return kind, nil
}

func (s *lifecycleService) CurrentForDriver(ctx context.Context, caller *models.Account) (*models.Ride, error) {
	if err := requireDriver(caller); err != nil {
		return nil, err
	}
	ride, err := s.stg.Ride().GetActiveByDriver(ctx, caller.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		s.log.Error("failed to load active ride", logger.Int64("driver_id", caller.ID), logger.Error(err))
		return nil, apperr.Storage(err)
	}
	return ride, nil
}

func (s *lifecycleService) DriverRides(ctx context.Context, caller *models.Account) ([]*models.Ride, error) {
	if err := requireDriver(caller); err != nil {
		return nil, err
	}
	rides, err := s.stg.Ride().ListByDriver(ctx, caller.ID)
	if err != nil {
		s.log.Error("failed to list driver rides", logger.Int64("driver_id", caller.ID), logger.Error(err))
		return nil, apperr.Storage(err)
	}
	return rides, nil
}

func statusChanged(ride *models.Ride) events.Event {
	ev := events.New(events.RideStatusChanged)
	ev.RequestID = ride.RequestID
	ev.RideID = ride.ID
	ev.PassengerID = ride.PassengerID
	ev.DriverID = ride.DriverID
	ev.Status = string(ride.Status)
	return ev
}
