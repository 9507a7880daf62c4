// Package memory is an in-process Ledger Store. Transactions are serialized
// by a single mutex and run against a copy of the state that replaces the
// live state only on commit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ridematch/pkg/models"
	"ridematch/storage"
)

type state struct {
	seq        int64
	accounts   map[int64]models.Account
	requests   map[int64]models.RideRequest
	rides      map[int64]models.Ride
	rejections map[[2]int64]models.RideRejection
	payments   map[int64]models.Payment
}

func newState() *state {
	return &state{
		accounts:   make(map[int64]models.Account),
		requests:   make(map[int64]models.RideRequest),
		rides:      make(map[int64]models.Ride),
		rejections: make(map[[2]int64]models.RideRejection),
		payments:   make(map[int64]models.Payment),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.accounts {
		if v.TelegramID != nil {
			id := *v.TelegramID
			v.TelegramID = &id
		}
		c.accounts[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.rides {
		c.rides[k] = v
	}
	for k, v := range s.rejections {
		c.rejections[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

type Store struct {
	mu    sync.Mutex
	st    *state
	now   func() time.Time
	inner repos
}

func New() *Store {
	s := &Store{st: newState(), now: time.Now}
	s.inner = repos{db: &db{store: s}}
	return s
}

// db resolves the state a repo operates on. Outside a transaction every call
// takes the store lock; inside one the lock is already held.
type db struct {
	store *Store
	tx    *state
}

func (d *db) with(fn func(st *state) error) error {
	if d.tx != nil {
		return fn(d.tx)
	}
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	return fn(d.store.st)
}

func (d *db) now() time.Time { return d.store.now().UTC() }

func (s *Store) InTx(ctx context.Context, fn storage.TxFunc) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, repos{db: &db{store: s, tx: work}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

func (s *Store) Account() storage.IAccountStorage     { return s.inner.Account() }
func (s *Store) Request() storage.IRequestStorage     { return s.inner.Request() }
func (s *Store) Ride() storage.IRideStorage           { return s.inner.Ride() }
func (s *Store) Rejection() storage.IRejectionStorage { return s.inner.Rejection() }
func (s *Store) Payment() storage.IPaymentStorage     { return s.inner.Payment() }

type repos struct {
	db *db
}

func (r repos) Account() storage.IAccountStorage     { return accountRepo{r.db} }
func (r repos) Request() storage.IRequestStorage     { return requestRepo{r.db} }
func (r repos) Ride() storage.IRideStorage           { return rideRepo{r.db} }
func (r repos) Rejection() storage.IRejectionStorage { return rejectionRepo{r.db} }
func (r repos) Payment() storage.IPaymentStorage     { return paymentRepo{r.db} }

type accountRepo struct{ db *db }

func (r accountRepo) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	var out models.Account
	err := r.db.with(func(st *state) error {
		for _, a := range st.accounts {
			if a.Email == account.Email {
				return storage.ErrDuplicate
			}
		}
		out = *account
		out.ID = st.nextID()
		out.Balance = decimal.Zero
		out.TelegramID = nil
		out.CreatedAt = r.db.now()
		st.accounts[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r accountRepo) find(pred func(models.Account) bool) (*models.Account, error) {
	var out *models.Account
	err := r.db.with(func(st *state) error {
		for _, a := range st.accounts {
			if pred(a) {
				a := a
				if a.TelegramID != nil {
					id := *a.TelegramID
					a.TelegramID = &id
				}
				out = &a
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return out, err
}

func (r accountRepo) GetByID(_ context.Context, id int64) (*models.Account, error) {
	return r.find(func(a models.Account) bool { return a.ID == id })
}

func (r accountRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return r.find(func(a models.Account) bool { return a.Email == email })
}

func (r accountRepo) GetByTelegramID(_ context.Context, telegramID int64) (*models.Account, error) {
	return r.find(func(a models.Account) bool { return a.TelegramID != nil && *a.TelegramID == telegramID })
}

func (r accountRepo) LockByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.GetByID(ctx, id)
}

func (r accountRepo) SetAvailability(_ context.Context, id int64, available bool) error {
	return r.db.with(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok || a.Role != models.RoleDriver {
			return storage.ErrNotFound
		}
		a.Available = available
		st.accounts[id] = a
		return nil
	})
}

func (r accountRepo) SetTelegramID(_ context.Context, id int64, telegramID int64) error {
	return r.db.with(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return storage.ErrNotFound
		}
		for otherID, other := range st.accounts {
			if otherID != id && other.TelegramID != nil && *other.TelegramID == telegramID {
				return storage.ErrDuplicate
			}
		}
		a.TelegramID = &telegramID
		st.accounts[id] = a
		return nil
	})
}

func (r accountRepo) CreditBalance(_ context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.with(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok || a.Role != models.RoleDriver {
			return storage.ErrNotFound
		}
		a.Balance = a.Balance.Add(amount)
		st.accounts[id] = a
		balance = a.Balance
		return nil
	})
	return balance, err
}

type requestRepo struct{ db *db }

func (r requestRepo) Create(_ context.Context, req *models.RideRequest) (*models.RideRequest, error) {
	var out models.RideRequest
	err := r.db.with(func(st *state) error {
		if req.Active {
			for _, q := range st.requests {
				if q.PassengerID == req.PassengerID && q.Active {
					return storage.ErrDuplicate
				}
			}
		}
		out = *req
		out.ID = st.nextID()
		out.CreatedAt = r.db.now()
		out.UpdatedAt = out.CreatedAt
		st.requests[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r requestRepo) first(pred func(models.RideRequest) bool) (*models.RideRequest, error) {
	list, err := r.list(pred, true)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, storage.ErrNotFound
	}
	return list[0], nil
}

// list returns matches ordered by creation, newest first when desc is set.
func (r requestRepo) list(pred func(models.RideRequest) bool, desc bool) ([]*models.RideRequest, error) {
	var out []*models.RideRequest
	err := r.db.with(func(st *state) error {
		for _, q := range st.requests {
			if pred(q) {
				q := q
				out = append(out, &q)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		less := out[i].CreatedAt.Before(out[j].CreatedAt) ||
			(out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID < out[j].ID)
		if desc {
			return !less
		}
		return less
	})
	return out, err
}

func (r requestRepo) GetByID(_ context.Context, id int64) (*models.RideRequest, error) {
	return r.first(func(q models.RideRequest) bool { return q.ID == id })
}

func (r requestRepo) GetActiveByPassenger(_ context.Context, passengerID int64) (*models.RideRequest, error) {
	return r.first(func(q models.RideRequest) bool { return q.PassengerID == passengerID && q.Active })
}

func (r requestRepo) GetOpen(_ context.Context, id int64) (*models.RideRequest, error) {
	return r.first(func(q models.RideRequest) bool { return q.ID == id && q.IsOpen() })
}

func (r requestRepo) ListOpenForDriver(_ context.Context, driverID int64) ([]*models.RideRequest, error) {
	var rejected map[[2]int64]models.RideRejection
	_ = r.db.with(func(st *state) error {
		rejected = make(map[[2]int64]models.RideRejection, len(st.rejections))
		for k, v := range st.rejections {
			rejected[k] = v
		}
		return nil
	})
	return r.list(func(q models.RideRequest) bool {
		_, skip := rejected[[2]int64{q.ID, driverID}]
		return q.IsOpen() && !skip
	}, false)
}

func (r requestRepo) ListCancelledByPassenger(_ context.Context, passengerID int64) ([]*models.RideRequest, error) {
	return r.list(func(q models.RideRequest) bool {
		return q.PassengerID == passengerID && q.Status == models.RequestCancelled
	}, true)
}

func (r requestRepo) Cancel(_ context.Context, id, passengerID int64) (*models.RideRequest, error) {
	var out models.RideRequest
	err := r.db.with(func(st *state) error {
		q, ok := st.requests[id]
		if !ok || q.PassengerID != passengerID || !q.IsOpen() {
			return storage.ErrNotFound
		}
		q.Status = models.RequestCancelled
		q.Active = false
		q.UpdatedAt = r.db.now()
		st.requests[id] = q
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r requestRepo) TakeOpen(_ context.Context, id int64) (*models.RideRequest, error) {
	var out models.RideRequest
	err := r.db.with(func(st *state) error {
		q, ok := st.requests[id]
		if !ok || !q.IsOpen() {
			return storage.ErrNotFound
		}
		delete(st.requests, id)
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type rideRepo struct{ db *db }

func (r rideRepo) Create(_ context.Context, ride *models.Ride) (*models.Ride, error) {
	var out models.Ride
	err := r.db.with(func(st *state) error {
		for _, d := range st.rides {
			if d.RequestID == ride.RequestID {
				return storage.ErrDuplicate
			}
			if ride.Active && d.Active && (d.DriverID == ride.DriverID || d.PassengerID == ride.PassengerID) {
				return storage.ErrDuplicate
			}
		}
		out = *ride
		out.ID = st.nextID()
		out.UpdatedAt = r.db.now()
		if out.CreatedAt.IsZero() {
			out.CreatedAt = out.UpdatedAt
		}
		st.rides[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r rideRepo) list(pred func(models.Ride) bool) ([]*models.Ride, error) {
	var out []*models.Ride
	err := r.db.with(func(st *state) error {
		for _, d := range st.rides {
			if pred(d) {
				d := d
				out = append(out, &d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}

func (r rideRepo) first(pred func(models.Ride) bool) (*models.Ride, error) {
	list, err := r.list(pred)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, storage.ErrNotFound
	}
	return list[0], nil
}

func (r rideRepo) GetByID(_ context.Context, id int64) (*models.Ride, error) {
	return r.first(func(d models.Ride) bool { return d.ID == id })
}

func (r rideRepo) LockByID(ctx context.Context, id int64) (*models.Ride, error) {
	return r.GetByID(ctx, id)
}

func (r rideRepo) GetActiveByDriver(_ context.Context, driverID int64) (*models.Ride, error) {
	return r.first(func(d models.Ride) bool { return d.DriverID == driverID && d.Active })
}

func (r rideRepo) GetActiveByPassenger(_ context.Context, passengerID int64) (*models.Ride, error) {
	return r.first(func(d models.Ride) bool { return d.PassengerID == passengerID && d.Active })
}

func (r rideRepo) UpdateStatus(_ context.Context, id int64, from, to models.RideStatus) (*models.Ride, error) {
	var out models.Ride
	err := r.db.with(func(st *state) error {
		d, ok := st.rides[id]
		if !ok || d.Status != from {
			return storage.ErrNotFound
		}
		d.Status = to
		d.Active = to.IsActive()
		d.UpdatedAt = r.db.now()
		st.rides[id] = d
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r rideRepo) ListFinishedByPassenger(_ context.Context, passengerID int64) ([]*models.Ride, error) {
	return r.list(func(d models.Ride) bool { return d.PassengerID == passengerID && d.Status.IsTerminal() })
}

func (r rideRepo) ListByDriver(_ context.Context, driverID int64) ([]*models.Ride, error) {
	return r.list(func(d models.Ride) bool { return d.DriverID == driverID })
}

type rejectionRepo struct{ db *db }

func (r rejectionRepo) Create(_ context.Context, rejection *models.RideRejection) error {
	return r.db.with(func(st *state) error {
		key := [2]int64{rejection.RequestID, rejection.DriverID}
		if _, ok := st.rejections[key]; ok {
			return storage.ErrDuplicate
		}
		rj := *rejection
		rj.CreatedAt = r.db.now()
		st.rejections[key] = rj
		return nil
	})
}

func (r rejectionRepo) Exists(_ context.Context, requestID, driverID int64) (bool, error) {
	var ok bool
	err := r.db.with(func(st *state) error {
		_, ok = st.rejections[[2]int64{requestID, driverID}]
		return nil
	})
	return ok, err
}

type paymentRepo struct{ db *db }

func (r paymentRepo) Create(_ context.Context, payment *models.Payment) (*models.Payment, error) {
	var out models.Payment
	err := r.db.with(func(st *state) error {
		for _, p := range st.payments {
			if p.RideID == payment.RideID {
				return storage.ErrDuplicate
			}
		}
		if _, ok := st.rides[payment.RideID]; !ok {
			return storage.ErrNotFound
		}
		out = *payment
		out.ID = st.nextID()
		out.CreatedAt = r.db.now()
		st.payments[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r paymentRepo) GetByRide(_ context.Context, rideID int64) (*models.Payment, error) {
	var out *models.Payment
	err := r.db.with(func(st *state) error {
		for _, p := range st.payments {
			if p.RideID == rideID {
				p := p
				out = &p
				return nil
			}
		}
		return storage.ErrNotFound
	})
	return out, err
}

func (r paymentRepo) ListByDriver(_ context.Context, driverID int64) ([]*models.Payment, error) {
	var out []*models.Payment
	err := r.db.with(func(st *state) error {
		for _, p := range st.payments {
			if p.DriverID == driverID {
				p := p
				out = append(out, &p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}
