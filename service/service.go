package service

import (
	"context"
	"errors"

	"ridematch/pkg/apperr"
	"ridematch/pkg/events"
	"ridematch/pkg/logger"
	"ridematch/pkg/metrics"
	"ridematch/pkg/models"
	"ridematch/storage"
)

type IServiceManager interface {
	User() UserService
	Request() RequestService
	Matching() MatchingService
	Lifecycle() LifecycleService
	Settlement() SettlementService
}

type service struct {
	userService       UserService
	requestService    RequestService
	matchingService   MatchingService
	lifecycleService  LifecycleService
	settlementService SettlementService
}

func New(stg storage.IStorage, pub events.Publisher, log logger.ILogger) IServiceManager {
	if pub == nil {
		pub = events.NewNop()
	}
	notifier := notifier{pub: pub, log: log}

	requests := newRequestService(stg, notifier, log)
	settlement := newSettlementService(stg, log)

	return &service{
		userService:       NewUserService(stg, log),
		requestService:    requests,
		matchingService:   newMatchingService(stg, notifier, log),
		lifecycleService:  newLifecycleService(stg, requests, settlement, notifier, log),
		settlementService: settlement,
	}
}

func (s *service) User() UserService             { return s.userService }
func (s *service) Request() RequestService       { return s.requestService }
func (s *service) Matching() MatchingService     { return s.matchingService }
func (s *service) Lifecycle() LifecycleService   { return s.lifecycleService }
func (s *service) Settlement() SettlementService { return s.settlementService }

// notifier publishes ride events once their unit has committed. A publish
// failure is logged and counted; the committed state stands.
type notifier struct {
	pub events.Publisher
	log logger.ILogger
}

func (n notifier) publish(ctx context.Context, evs ...events.Event) {
	if len(evs) == 0 {
		return
	}
	if err := n.pub.Publish(context.WithoutCancel(ctx), evs...); err != nil {
		metrics.EventPublishErrors.Add(float64(len(evs)))
		n.log.Warning("failed to publish ride events",
			logger.String("type", string(evs[0].Type)),
			logger.Int("count", len(evs)),
			logger.Error(err),
		)
	}
}

func isNotFound(err error) bool { return errors.Is(err, storage.ErrNotFound) }

func isDuplicate(err error) bool { return errors.Is(err, storage.ErrDuplicate) }

func requirePassenger(caller *models.Account) error {
	if !caller.IsPassenger() {
		return apperr.Forbidden("only passengers may do this")
	}
	return nil
}

func requireDriver(caller *models.Account) error {
	if !caller.IsDriver() {
		return apperr.Forbidden("only drivers may do this")
	}
	return nil
}

// lockDriver re-reads the caller inside the unit so availability is checked
// against the store, not against a possibly stale caller value.
func lockDriver(ctx context.Context, repos storage.Repos, caller *models.Account, needAvailable bool) (*models.Account, error) {
	if err := requireDriver(caller); err != nil {
		return nil, err
	}
	acc, err := repos.Account().LockByID(ctx, caller.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.Forbidden("unknown account %d", caller.ID)
		}
		return nil, apperr.Storage(err)
	}
	if err := requireDriver(acc); err != nil {
		return nil, err
	}
	if needAvailable && !acc.Available {
		return nil, apperr.Forbidden("driver %d is not available", acc.ID)
	}
	return acc, nil
}
