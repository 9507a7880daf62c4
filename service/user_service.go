package service

import (
	"context"
	"strings"

	"ridematch/pkg/apperr"
	"ridematch/pkg/logger"
	"ridematch/pkg/models"
	"ridematch/storage"
)

// UserService is the account directory the ride services and transports
// resolve callers through.
type UserService interface {
	Register(ctx context.Context, in models.Registration) (*models.Account, error)
	VerifyCredentials(ctx context.Context, email, password string) (*models.Account, error)
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error)
	LinkTelegram(ctx context.Context, email, password string, telegramID int64) (*models.Account, error)
	SetAvailability(ctx context.Context, caller *models.Account, available bool) (*models.Account, error)
}

type userService struct {
	stg storage.IStorage
	log logger.ILogger
}

func NewUserService(stg storage.IStorage, log logger.ILogger) UserService {
	return &userService{
		stg: stg,
		log: log,
	}
}

func (s *userService) Register(ctx context.Context, in models.Registration) (*models.Account, error) {
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		s.log.Error("failed to hash password", logger.Error(err))
		return nil, apperr.Storage(err)
	}

	acc, err := s.stg.Account().Create(ctx, &models.Account{
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		Role:         in.Role,
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("email %s is already registered", in.Email)
		}
		s.log.Error("failed to create account", logger.String("email", in.Email), logger.Error(err))
		return nil, apperr.Storage(err)
	}

	s.log.Info("account registered", logger.Int64("account_id", acc.ID), logger.String("role", string(acc.Role)))
	return acc, nil
}

func (s *userService) VerifyCredentials(ctx context.Context, email, password string) (*models.Account, error) {
	acc, err := s.stg.Account().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.New(apperr.ErrUnauthorized, "invalid email or password")
		}
		return nil, apperr.Storage(err)
	}
	if !checkPassword(acc.PasswordHash, password) {
		return nil, apperr.New(apperr.ErrUnauthorized, "invalid email or password")
	}
	return acc, nil
}

func (s *userService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	acc, err := s.stg.Account().GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("account %d not found", id)
		}
		return nil, apperr.Storage(err)
	}
	return acc, nil
}

func (s *userService) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error) {
	acc, err := s.stg.Account().GetByTelegramID(ctx, telegramID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("telegram account is not linked")
		}
		return nil, apperr.Storage(err)
	}
	return acc, nil
}

func (s *userService) LinkTelegram(ctx context.Context, email, password string, telegramID int64) (*models.Account, error) {
	acc, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.stg.Account().SetTelegramID(ctx, acc.ID, telegramID); err != nil {
		if isDuplicate(err) {
			return nil, apperr.Conflict("telegram account is linked to another user")
		}
		return nil, apperr.Storage(err)
	}
	acc.TelegramID = &telegramID

	s.log.Info("telegram linked", logger.Int64("account_id", acc.ID), logger.Int64("telegram_id", telegramID))
	return acc, nil
}

func (s *userService) SetAvailability(ctx context.Context, caller *models.Account, available bool) (*models.Account, error) {
	if err := requireDriver(caller); err != nil {
		return nil, err
	}

	var acc *models.Account
	err := s.stg.InTx(ctx, func(ctx context.Context, repos storage.Repos) error {
		if err := repos.Account().SetAvailability(ctx, caller.ID, available); err != nil {
			if isNotFound(err) {
				return apperr.NotFound("account %d not found", caller.ID)
			}
			return apperr.Storage(err)
		}
		var err error
		acc, err = repos.Account().GetByID(ctx, caller.ID)
		return apperr.Storage(err)
	})
	if err != nil {
		err = apperr.Storage(err)
		logFailure(s.log, "set availability", caller, err)
		return nil, err
	}

	s.log.Info("driver availability changed", logger.Int64("driver_id", acc.ID), logger.Bool("available", available))
	return acc, nil
}
