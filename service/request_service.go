package service

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ridematch/pkg/apperr"
	"ridematch/pkg/events"
	"ridematch/pkg/logger"
	"ridematch/pkg/metrics"
	"ridematch/pkg/models"
	"ridematch/storage"
)

const (
	maxPlaceLen = 255
	// Payments are stored as NUMERIC(14, 2).
	paymentScale = 2
)

var maxPayment = decimal.New(1, 12)

type RequestService interface {
	CreateRequest(ctx context.Context, caller *models.Account, in models.NewRideRequest) (int64, error)
	GetCurrent(ctx context.Context, caller *models.Account) (*models.CurrentRide, error)
	CancelRequest(ctx context.Context, caller *models.Account, requestID int64) error
	History(ctx context.Context, caller *models.Account) ([]models.HistoryEntry, error)
}

type requestService struct {
	stg      storage.IStorage
	notifier notifier
	log      logger.ILogger
}

func newRequestService(stg storage.IStorage, n notifier, log logger.ILogger) *requestService {
	return &requestService{stg: stg, notifier: n, log: log}
}

func validateNewRequest(in models.NewRideRequest) (models.NewRideRequest, error) {
	in.Pickup = strings.TrimSpace(in.Pickup)
	in.Drop = strings.TrimSpace(in.Drop)
	switch {
	case in.Pickup == "":
		return in, apperr.InvalidInput("pickup is required")
	case in.Drop == "":
		return in, apperr.InvalidInput("drop is required")
	case len(in.Pickup) > maxPlaceLen || len(in.Drop) > maxPlaceLen:
		return in, apperr.InvalidInput("locations must be at most %d bytes", maxPlaceLen)
	case !in.Category.Valid():
		return in, apperr.InvalidInput("unknown category %q", in.Category)
	case !in.Payment.IsPositive():
		return in, apperr.InvalidInput("payment must be positive")
	case !in.Payment.Equal(in.Payment.Round(paymentScale)):
		return in, apperr.InvalidInput("payment must have at most %d decimal places", paymentScale)
	case in.Payment.GreaterThanOrEqual(maxPayment):
		return in, apperr.InvalidInput("payment must be less than %s", maxPayment)
	}
	return in, nil
}

func (s *requestService) CreateRequest(ctx context.Context, caller *models.Account, in models.NewRideRequest) (int64, error) {
	if err := requirePassenger(caller); err != nil {
		return 0, err
	}
	in, err := validateNewRequest(in)
	if err != nil {
		return 0, err
	}

	var created *models.RideRequest
	err = s.stg.InTx(ctx, func(ctx context.Context, repos storage.Repos) error {
		// Serializes concurrent creates by the same passenger.
		if _, err := repos.Account().LockByID(ctx, caller.ID); err != nil {
			if isNotFound(err) {
				return apperr.Forbidden("unknown account %d", caller.ID)
			}
			return apperr.Storage(err)
		}

		if _, err := repos.Request().GetActiveByPassenger(ctx, caller.ID); err == nil {
			return apperr.Conflict("passenger already has an active request")
		} else if !isNotFound(err) {
			return apperr.Storage(err)
		}
		if _, err := repos.Ride().GetActiveByPassenger(ctx, caller.ID); err == nil {
			return apperr.Conflict("passenger already has an active ride")
		} else if !isNotFound(err) {
			return apperr.Storage(err)
		}

		created, err = repos.Request().Create(ctx, &models.RideRequest{
			PassengerID: caller.ID,
			Pickup:      in.Pickup,
			Drop:        in.Drop,
			Category:    in.Category,
			Payment:     in.Payment,
			Status:      models.RequestRequested,
			Active:      true,
		})
		if err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("passenger already has an active request")
			}
			return apperr.Storage(err)
		}
		return nil
	})
	if err != nil {
		err = apperr.Storage(err)
		logFailure(s.log, "create request", caller, err)
		return 0, err
	}

	metrics.RequestsCreated.Inc()
	s.log.Info("ride request created",
		logger.Int64("request_id", created.ID),
		logger.Int64("passenger_id", caller.ID),
		logger.String("category", string(created.Category)),
	)

	ev := events.New(events.RideRequested)
	ev.RequestID = created.ID
	ev.PassengerID = caller.ID
	ev.Status = string(created.Status)
	ev.Amount = &created.Payment
	s.notifier.publish(ctx, ev)

	return created.ID, nil
}

func (s *requestService) GetCurrent(ctx context.Context, caller *models.Account) (*models.CurrentRide, error) {
	if err := requirePassenger(caller); err != nil {
		return nil, err
	}

	req, err := s.stg.Request().GetActiveByPassenger(ctx, caller.ID)
	if err == nil {
		return &models.CurrentRide{Kind: models.KindRequest, Request: req}, nil
	}
	if !isNotFound(err) {
		s.log.Error("failed to load active request", logger.Int64("passenger_id", caller.ID), logger.Error(err))
		return nil, apperr.Storage(err)
	}

	ride, err := s.stg.Ride().GetActiveByPassenger(ctx, caller.ID)
	if err == nil {
		return &models.CurrentRide{Kind: models.KindRide, Ride: ride}, nil
	}
	if !isNotFound(err) {
		s.log.Error("failed to load active ride", logger.Int64("passenger_id", caller.ID), logger.Error(err))
		return nil, apperr.Storage(err)
	}
	return nil, nil
}

func (s *requestService) CancelRequest(ctx context.Context, caller *models.Account, requestID int64) error {
	if err := requirePassenger(caller); err != nil {
		return err
	}

	var cancelled *models.RideRequest
	err := s.stg.InTx(ctx, func(ctx context.Context, repos storage.Repos) error {
		var err error
		cancelled, err = cancelRequestTx(ctx, repos, caller.ID, requestID)
		return err
	})
	if err != nil {
		err = apperr.Storage(err)
		logFailure(s.log, "cancel request", caller, err, logger.Int64("request_id", requestID))
		return err
	}

	s.requestCancelled(ctx, cancelled)
	return nil
}

// cancelRequestTx retires an open request. A request that exists and is owned
// by the passenger but is no longer open is a Conflict; anything else is
// NotFound.
func cancelRequestTx(ctx context.Context, repos storage.Repos, passengerID, requestID int64) (*models.RideRequest, error) {
	req, err := repos.Request().Cancel(ctx, requestID, passengerID)
	if err == nil {
		return req, nil
	}
	if !isNotFound(err) {
		return nil, apperr.Storage(err)
	}

	existing, err := repos.Request().GetByID(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("request %d not found", requestID)
		}
		return nil, apperr.Storage(err)
	}
	if existing.PassengerID != passengerID {
		return nil, apperr.NotFound("request %d not found", requestID)
	}
	metrics.RaceLosses.WithLabelValues("cancel_request").Inc()
	return nil, apperr.Conflict("request %d is %s", requestID, existing.Status)
}

func (s *requestService) requestCancelled(ctx context.Context, req *models.RideRequest) {
	metrics.RequestsCancelled.Inc()
	s.log.Info("ride request cancelled",
		logger.Int64("request_id", req.ID),
		logger.Int64("passenger_id", req.PassengerID),
	)

	ev := events.New(events.RequestCancelled)
	ev.RequestID = req.ID
	ev.PassengerID = req.PassengerID
	ev.Status = string(req.Status)
	s.notifier.publish(ctx, ev)
}

func (s *requestService) History(ctx context.Context, caller *models.Account) ([]models.HistoryEntry, error) {
	if err := requirePassenger(caller); err != nil {
		return nil, err
	}

	cancelled, err := s.stg.Request().ListCancelledByPassenger(ctx, caller.ID)
	if err != nil {
		s.log.Error("failed to list cancelled requests", logger.Int64("passenger_id", caller.ID), logger.Error(err))
		return nil, apperr.Storage(err)
	}
	finished, err := s.stg.Ride().ListFinishedByPassenger(ctx, caller.ID)
	if err != nil {
		s.log.Error("failed to list finished rides", logger.Int64("passenger_id", caller.ID), logger.Error(err))
		return nil, apperr.Storage(err)
	}

	history := make([]models.HistoryEntry, 0, len(cancelled)+len(finished))
	for _, r := range cancelled {
		history = append(history, models.HistoryFromRequest(r))
	}
	for _, r := range finished {
		history = append(history, models.HistoryFromRide(r))
	}
	sort.SliceStable(history, func(i, j int) bool {
		if !history[i].CreatedAt.Equal(history[j].CreatedAt) {
			return history[i].CreatedAt.After(history[j].CreatedAt)
		}
		return history[i].ID > history[j].ID
	})
	return history, nil
}

// logFailure logs storage failures as errors, lost races as warnings and
// plain rejections at debug.
func logFailure(log logger.ILogger, op string, caller *models.Account, err error, fields ...logger.Field) {
	fields = append(fields, logger.String("operation", op), logger.Error(err))
	if caller != nil {
		fields = append(fields, logger.Int64("account_id", caller.ID))
	}
	switch apperr.KindOf(err) {
	case apperr.ErrStorage:
		log.Error("operation failed", fields...)
	case apperr.ErrConflict, apperr.ErrNotFound:
		log.Warning("operation rejected", fields...)
	default:
		log.Debug("operation rejected", fields...)
	}
}
