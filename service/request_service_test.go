package service

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"ridematch/pkg/apperr"
	"ridematch/pkg/events"
	"ridematch/pkg/models"
)

func TestCreateRequestValidation(t *testing.T) {
	f := newFixture(t)
	p := f.passenger("p@example.com")

	valid := models.NewRideRequest{
		Pickup:   "A",
		Drop:     "B",
		Category: models.CategoryBike,
		Payment:  decimal.NewFromInt(10),
	}

	tests := []struct {
		name   string
		modify func(in *models.NewRideRequest)
	}{
		{"blank pickup", func(in *models.NewRideRequest) { in.Pickup = "   " }},
		{"blank drop", func(in *models.NewRideRequest) { in.Drop = "" }},
		{"unknown category", func(in *models.NewRideRequest) { in.Category = "truck" }},
		{"zero payment", func(in *models.NewRideRequest) { in.Payment = decimal.Zero }},
		{"negative payment", func(in *models.NewRideRequest) { in.Payment = decimal.NewFromInt(-5) }},
		{"payment rounds to zero", func(in *models.NewRideRequest) { in.Payment = decimal.RequireFromString("0.001") }},
		{"sub cent payment", func(in *models.NewRideRequest) { in.Payment = decimal.RequireFromString("0.005") }},
		{"payment at column limit", func(in *models.NewRideRequest) { in.Payment = decimal.New(1, 12) }},
		{"payment above column limit", func(in *models.NewRideRequest) { in.Payment = decimal.New(1, 13) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.modify(&in)
			_, err := f.svc.Request().CreateRequest(f.ctx, p, in)
			assertKind(t, err, apperr.ErrInvalidInput)
		})
	}

	// None of the rejected inputs left a row behind.
	if _, err := f.svc.Request().CreateRequest(f.ctx, p, valid); err != nil {
		t.Fatalf("valid request: %v", err)
	}
}

func TestCreateRequestAcceptsPaymentBounds(t *testing.T) {
	for _, amount := range []string{"0.01", "18.50", "999999999999.99"} {
		t.Run(amount, func(t *testing.T) {
			f := newFixture(t)
			p := f.passenger("p@example.com")
			_, err := f.svc.Request().CreateRequest(f.ctx, p, models.NewRideRequest{
				Pickup:   "A",
				Drop:     "B",
				Category: models.CategoryBike,
				Payment:  decimal.RequireFromString(amount),
			})
			if err != nil {
				t.Fatalf("payment %s rejected: %v", amount, err)
			}
		})
	}
}

func TestCreateRequestTrimsLocations(t *testing.T) {
	f := newFixture(t)
	p := f.passenger("p@example.com")

	id, err := f.svc.Request().CreateRequest(f.ctx, p, models.NewRideRequest{
		Pickup:   "  Station ",
		Drop:     "Mall\t",
		Category: models.CategoryRickshaw,
		Payment:  decimal.RequireFromString("7.50"),
	})
	if err != nil {
		t.Fatal(err)
	}
	req, err := f.stg.Request().GetByID(f.ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if req.Pickup != "Station" || req.Drop != "Mall" {
		t.Fatalf("locations not trimmed: %q %q", req.Pickup, req.Drop)
	}
	if req.Status != models.RequestRequested || !req.Active {
		t.Fatalf("unexpected state %s active=%v", req.Status, req.Active)
	}
}

func TestCreateRequestForbiddenForDriver(t *testing.T) {
	f := newFixture(t)
	d := f.driver("d@example.com")

	_, err := f.svc.Request().CreateRequest(f.ctx, d, models.NewRideRequest{
		Pickup: "A", Drop: "B", Category: models.CategoryCar, Payment: decimal.NewFromInt(1),
	})
	assertKind(t, err, apperr.ErrForbidden)
}

func TestOneActiveEntryPerPassenger(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		p := f.passenger("p@example.com")
		d := f.driver("d@example.com")

		first := f.request(p, "10")

		_, err := f.svc.Request().CreateRequest(f.ctx, p, models.NewRideRequest{
			Pickup: "A", Drop: "B", Category: models.CategoryCar, Payment: decimal.NewFromInt(3),
		})
		assertKind(t, err, apperr.ErrConflict)

		// An accepted ride still counts as active.
		rideID := f.accept(d, first)
		_, err = f.svc.Request().CreateRequest(f.ctx, p, models.NewRideRequest{
			Pickup: "A", Drop: "B", Category: models.CategoryCar, Payment: decimal.NewFromInt(3),
		})
		assertKind(t, err, apperr.ErrConflict)

		f.setStatus(d, rideID, models.RideInProgress)
		f.setStatus(d, rideID, models.RideCompleted)

		f.request(p, "4")
	})
}

func TestConcurrentCreateRequestSamePassenger(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		p := f.passenger("p@example.com")

		const attempts = 6
		var (
			wg   sync.WaitGroup
			errs = make([]error, attempts)
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.svc.Request().CreateRequest(f.ctx, p, models.NewRideRequest{
					Pickup: "A", Drop: "B", Category: models.CategoryBike, Payment: decimal.NewFromInt(5),
				})
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			assertKind(t, err, apperr.ErrConflict)
		}
		if created != 1 {
			t.Fatalf("expected one request, got %d", created)
		}
	})
}

func TestGetCurrent(t *testing.T) {
	f := newFixture(t)
	p := f.passenger("p@example.com")
	d := f.driver("d@example.com")

	cur, err := f.svc.Request().GetCurrent(f.ctx, p)
	if err != nil || cur != nil {
		t.Fatalf("expected nothing in flight, got %+v, %v", cur, err)
	}

	reqID := f.request(p, "10")
	cur, err = f.svc.Request().GetCurrent(f.ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if cur.Kind != models.KindRequest || cur.Request.ID != reqID {
		t.Fatalf("expected request %d, got %+v", reqID, cur)
	}

	rideID := f.accept(d, reqID)
	cur, err = f.svc.Request().GetCurrent(f.ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if cur.Kind != models.KindRide || cur.Ride.ID != rideID {
		t.Fatalf("expected ride %d, got %+v", rideID, cur)
	}

	_, err = f.svc.Request().GetCurrent(f.ctx, d)
	assertKind(t, err, apperr.ErrForbidden)
}

func TestCancelRequest(t *testing.T) {
	f := newFixture(t)
	p := f.passenger("p@example.com")
	other := f.passenger("o@example.com")

	reqID := f.request(p, "10")

	assertKind(t, f.svc.Request().CancelRequest(f.ctx, other, reqID), apperr.ErrNotFound)
	assertKind(t, f.svc.Request().CancelRequest(f.ctx, p, reqID+100), apperr.ErrNotFound)

	if err := f.svc.Request().CancelRequest(f.ctx, p, reqID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	req, err := f.stg.Request().GetByID(f.ctx, reqID)
	if err != nil {
		t.Fatal(err)
	}
	if req.Status != models.RequestCancelled || req.Active {
		t.Fatalf("request not retired: %s active=%v", req.Status, req.Active)
	}

	assertKind(t, f.svc.Request().CancelRequest(f.ctx, p, reqID), apperr.ErrConflict)

	// Cancelling frees the passenger to ask again.
	f.request(p, "11")

	got := f.pub.types()
	want := []events.Type{events.RideRequested, events.RequestCancelled, events.RideRequested}
	if len(got) != len(want) {
		t.Fatalf("events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events %v, want %v", got, want)
		}
	}
}

func TestCancelledRequestInvisibleToDrivers(t *testing.T) {
	f := newFixture(t)
	p := f.passenger("p@example.com")
	d := f.driver("d@example.com")

	reqID := f.request(p, "10")
	if err := f.svc.Request().CancelRequest(f.ctx, p, reqID); err != nil {
		t.Fatal(err)
	}

	open, err := f.svc.Matching().ListOpen(f.ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Fatalf("cancelled request still listed: %+v", open)
	}
	_, err = f.svc.Matching().Accept(f.ctx, d, reqID)
	assertKind(t, err, apperr.ErrNotFound)
	assertKind(t, f.svc.Matching().Reject(f.ctx, d, reqID), apperr.ErrNotFound)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	p := f.passenger("p@example.com")
	d := f.driver("d@example.com")

	first := f.request(p, "5")
	if err := f.svc.Request().CancelRequest(f.ctx, p, first); err != nil {
		t.Fatal(err)
	}

	second := f.request(p, "12")
	rideID := f.accept(d, second)
	f.setStatus(d, rideID, models.RideInProgress)
	f.setStatus(d, rideID, models.RideCompleted)

	third := f.request(p, "8")
	if err := f.svc.Request().CancelRequest(f.ctx, p, third); err != nil {
		t.Fatal(err)
	}

	// Still open, so not history.
	f.request(p, "9")

	history, err := f.svc.Request().History(f.ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}

	wantKinds := []models.EntryKind{models.KindRequest, models.KindRide, models.KindRequest}
	wantIDs := []int64{third, rideID, first}
	for i, entry := range history {
		if entry.Kind != wantKinds[i] || entry.ID != wantIDs[i] {
			t.Fatalf("entry %d: got %s %d, want %s %d", i, entry.Kind, entry.ID, wantKinds[i], wantIDs[i])
		}
	}
	if history[1].Status != string(models.RideCompleted) || history[1].DriverID == nil || *history[1].DriverID != d.ID {
		t.Fatalf("ride entry not populated: %+v", history[1])
	}
}
