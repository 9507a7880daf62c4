package service

import (
	"context"

	"github.com/shopspring/decimal"

	"ridematch/pkg/apperr"
	"ridematch/pkg/logger"
	"ridematch/pkg/models"
	"ridematch/storage"
)

type SettlementService interface {
	ListPayments(ctx context.Context, caller *models.Account) ([]*models.Payment, error)
	GetBalance(ctx context.Context, caller *models.Account) (decimal.Decimal, error)
}

type settlementService struct {
	stg storage.IStorage
	log logger.ILogger
}

func newSettlementService(stg storage.IStorage, log logger.ILogger) *settlementService {
	return &settlementService{stg: stg, log: log}
}

// settle records the payment for a completed ride and credits the driver.
// It only runs inside the unit that completed the ride, so a failure here
// rolls the completion back too.
func (s *settlementService) settle(ctx context.Context, repos storage.Repos, ride *models.Ride) (*models.Payment, error) {
	if ride.Status != models.RideCompleted {
		return nil, apperr.Conflict("ride %d is %s, not completed", ride.ID, ride.Status)
	}

	payment, err := repos.Payment().Create(ctx, &models.Payment{
		RideID:   ride.ID,
		DriverID: ride.DriverID,
		Amount:   ride.Payment,
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("ride %d is already settled", ride.ID)
		}
		return nil, apperr.Storage(err)
	}

	balance, err := repos.Account().CreditBalance(ctx, ride.DriverID, ride.Payment)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	s.log.Debug("driver credited",
		logger.Int64("ride_id", ride.ID),
		logger.Int64("driver_id", ride.DriverID),
		logger.String("amount", ride.Payment.String()),
		logger.String("balance", balance.String()),
	)
	return payment, nil
}

func (s *settlementService) ListPayments(ctx context.Context, caller *models.Account) ([]*models.Payment, error) {
	if err := requireDriver(caller); err != nil {
		return nil, err
	}
	payments, err := s.stg.Payment().ListByDriver(ctx, caller.ID)
	if err != nil {
		s.log.Error("failed to list payments", logger.Int64("driver_id", caller.ID), logger.Error(err))
		return nil, apperr.Storage(err)
	}
	return payments, nil
}

func (s *settlementService) GetBalance(ctx context.Context, caller *models.Account) (decimal.Decimal, error) {
	if err := requireDriver(caller); err != nil {
		return decimal.Zero, err
	}
	acc, err := s.stg.Account().GetByID(ctx, caller.ID)
	if err != nil {
		if isNotFound(err) {
			return decimal.Zero, apperr.NotFound("account %d not found", caller.ID)
		}
		return decimal.Zero, apperr.Storage(err)
	}
	return acc.Balance, nil
}
