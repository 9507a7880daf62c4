package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"ridematch/pkg/models"
	"ridematch/storage"
)

func seedDriver(t *testing.T, s *Store) *models.Account {
	t.Helper()
	a, err := s.Account().Create(context.Background(), &models.Account{Email: "d@x.io", Role: models.RoleDriver, Available: true})
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	return a
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := seedDriver(t, s)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, repos storage.Repos) error {
		if _, err := repos.Account().CreditBalance(ctx, d.ID, decimal.NewFromInt(10)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}

	got, err := s.Account().GetByID(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Balance.IsZero() {
		t.Fatalf("balance leaked out of rolled back tx: %s", got.Balance)
	}
}

func TestInTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := seedDriver(t, s)

	err := s.InTx(ctx, func(ctx context.Context, repos storage.Repos) error {
		_, err := repos.Account().CreditBalance(ctx, d.ID, decimal.NewFromInt(7))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.Account().GetByID(ctx, d.ID)
	if !got.Balance.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("balance = %s", got.Balance)
	}
}

func TestDuplicateKeys(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := seedDriver(t, s)

	if _, err := s.Account().Create(ctx, &models.Account{Email: "d@x.io", Role: models.RolePassenger}); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate email: %v", err)
	}

	rj := &models.RideRejection{RequestID: 99, DriverID: d.ID}
	if err := s.Rejection().Create(ctx, rj); err != nil {
		t.Fatal(err)
	}
	if err := s.Rejection().Create(ctx, rj); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate rejection: %v", err)
	}
}

func TestTakeOpenOnlyOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, _ := s.Account().Create(ctx, &models.Account{Email: "p@x.io", Role: models.RolePassenger})
	q, err := s.Request().Create(ctx, &models.RideRequest{
		PassengerID: p.ID, Pickup: "a", Drop: "b", Category: models.CategoryCar,
		Payment: decimal.NewFromInt(5), Status: models.RequestRequested, Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Request().TakeOpen(ctx, q.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Request().TakeOpen(ctx, q.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second take: %v", err)
	}
}

func TestAccountReadsDoNotAlias(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := seedDriver(t, s)
	if err := s.Account().SetTelegramID(ctx, d.ID, 42); err != nil {
		t.Fatal(err)
	}

	got, err := s.Account().GetByID(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	*got.TelegramID = 7

	again, err := s.Account().GetByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("stored telegram id changed through a returned copy: %v", err)
	}
	if *again.TelegramID != 42 {
		t.Fatalf("telegram id %d, want 42", *again.TelegramID)
	}
}
