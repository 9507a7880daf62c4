package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"ridematch/pkg/logger"
	"ridematch/pkg/models"
	"ridematch/storage"
)

type accountRepo struct {
	db  querier
	log logger.ILogger
}

func NewAccountRepo(db querier, log logger.ILogger) storage.IAccountStorage {
	return &accountRepo{db: db, log: log}
}

const accountColumns = `id, email, full_name, password_hash, role, available, balance, telegram_id, created_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &a.Role, &a.Available, &a.Balance, &a.TelegramID, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (email, full_name, password_hash, role, available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountColumns
	created, err := scanAccount(r.db.QueryRow(ctx, query,
		account.Email,
		account.FullName,
		account.PasswordHash,
		account.Role,
		account.Available,
	))
	if err != nil {
		err = mapErr(err)
		r.log.Error("failed to create account", logger.String("email", account.Email), logger.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (r *accountRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE telegram_id = $1`, telegramID)
}

func (r *accountRepo) LockByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

func (r *accountRepo) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		err = mapErr(err)
		if err != storage.ErrNotFound {
			r.log.Error("failed to get account", logger.Any("key", arg), logger.Error(err))
		}
		return nil, err
	}
	return a, nil
}

func (r *accountRepo) SetAvailability(ctx context.Context, id int64, available bool) error {
	res, err := r.db.Exec(ctx, "UPDATE accounts SET available = $1 WHERE id = $2 AND role = 'driver'", available, id)
	if err != nil {
		r.log.Error("failed to set availability", logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *accountRepo) SetTelegramID(ctx context.Context, id int64, telegramID int64) error {
	res, err := r.db.Exec(ctx, "UPDATE accounts SET telegram_id = $1 WHERE id = $2", telegramID, id)
	if err != nil {
		err = mapErr(err)
		r.log.Error("failed to link telegram id", logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *accountRepo) CreditBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRow(ctx,
		"UPDATE accounts SET balance = balance + $1 WHERE id = $2 AND role = 'driver' RETURNING balance",
		amount, id,
	).Scan(&balance)
	if err != nil {
		err = mapErr(err)
		r.log.Error("failed to credit balance", logger.Int64("id", id), logger.Error(err))
		return decimal.Zero, err
	}
	return balance, nil
}
