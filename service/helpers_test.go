package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"ridematch/pkg/events"
	"ridematch/pkg/logger"
	"ridematch/pkg/models"
	"ridematch/storage"
	"ridematch/storage/memory"
)

func init() {
	hashCost = bcrypt.MinCost
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evs ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	stg storage.IStorage
	pub *recordingPublisher
	svc IServiceManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, memory.New())
}

func newFixtureWith(t *testing.T, stg storage.IStorage) *fixture {
	t.Helper()
	pub := &recordingPublisher{}
	return &fixture{
		t:   t,
		ctx: context.Background(),
		stg: stg,
		pub: pub,
		svc: New(stg, pub, logger.NewNop()),
	}
}

// forEachStore runs fn against the memory store and, when TEST_PG_DSN is set,
// against a migrated postgres database.
func forEachStore(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, newFixture(t))
	})
	t.Run("postgres", func(t *testing.T) {
		fn(t, newPostgresFixture(t))
	})
}

func (f *fixture) account(email string, role models.Role) *models.Account {
	f.t.Helper()
	acc, err := f.stg.Account().Create(f.ctx, &models.Account{
		Email:        email,
		FullName:     email,
		PasswordHash: []byte("x"),
		Role:         role,
	})
	if err != nil {
		f.t.Fatalf("create account %s: %v", email, err)
	}
	return acc
}

func (f *fixture) passenger(email string) *models.Account {
	return f.account(email, models.RolePassenger)
}

// driver creates a driver that is available.
func (f *fixture) driver(email string) *models.Account {
	f.t.Helper()
	acc := f.account(email, models.RoleDriver)
	if err := f.stg.Account().SetAvailability(f.ctx, acc.ID, true); err != nil {
		f.t.Fatalf("set availability: %v", err)
	}
	acc.Available = true
	return acc
}

func (f *fixture) request(p *models.Account, payment string) int64 {
	f.t.Helper()
	id, err := f.svc.Request().CreateRequest(f.ctx, p, models.NewRideRequest{
		Pickup:   "Main St 1",
		Drop:     "Airport",
		Category: models.CategoryCar,
		Payment:  decimal.RequireFromString(payment),
	})
	if err != nil {
		f.t.Fatalf("create request: %v", err)
	}
	return id
}

func (f *fixture) accept(d *models.Account, requestID int64) int64 {
	f.t.Helper()
	rideID, err := f.svc.Matching().Accept(f.ctx, d, requestID)
	if err != nil {
		f.t.Fatalf("accept %d: %v", requestID, err)
	}
	return rideID
}

func (f *fixture) setStatus(d *models.Account, rideID int64, status models.RideStatus) {
	f.t.Helper()
	if _, err := f.svc.Lifecycle().UpdateStatus(f.ctx, d, rideID, status); err != nil {
		f.t.Fatalf("set %d to %s: %v", rideID, status, err)
	}
}

func (f *fixture) ride(id int64) *models.Ride {
	f.t.Helper()
	ride, err := f.stg.Ride().GetByID(f.ctx, id)
	if err != nil {
		f.t.Fatalf("get ride %d: %v", id, err)
	}
	return ride
}

func (f *fixture) balance(d *models.Account) decimal.Decimal {
	f.t.Helper()
	acc, err := f.stg.Account().GetByID(f.ctx, d.ID)
	if err != nil {
		f.t.Fatalf("get account: %v", err)
	}
	return acc.Balance
}

func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

// brokenPayments wraps a store so every payment insert inside a
// transaction fails.
type brokenPayments struct {
	storage.IStorage
}

func (b brokenPayments) InTx(ctx context.Context, fn storage.TxFunc) error {
	return b.IStorage.InTx(ctx, func(ctx context.Context, repos storage.Repos) error {
		return fn(ctx, brokenPaymentRepos{repos})
	})
}

type brokenPaymentRepos struct {
	storage.Repos
}

func (brokenPaymentRepos) Payment() storage.IPaymentStorage { return failingPaymentRepo{} }

type failingPaymentRepo struct {
	storage.IPaymentStorage
}

func (failingPaymentRepo) Create(context.Context, *models.Payment) (*models.Payment, error) {
	return nil, errors.New("disk full")
}

func (f *fixture) assertNoPayment(rideID int64) {
	f.t.Helper()
	if p, err := f.stg.Payment().GetByRide(f.ctx, rideID); !errors.Is(err, storage.ErrNotFound) {
		f.t.Fatalf("ride %d has payment %+v, err %v", rideID, p, err)
	}
}
