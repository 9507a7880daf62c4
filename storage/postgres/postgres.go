package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ridematch/config"
	"ridematch/pkg/logger"
	"ridematch/storage"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every repo
// works inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	log  logger.ILogger
	repos
}

func New(ctx context.Context, cfg config.Config, log logger.ILogger) (*Store, error) {
	url := cfg.PostgresURL()

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		log.Error("error while parsing Postgres config", logger.Error(err))
		return nil, err
	}
	if cfg.PostgresMaxConns > 0 {
		poolConfig.MaxConns = cfg.PostgresMaxConns
	}
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("failed to connect Postgres", logger.Error(err))
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error("failed to ping Postgres", logger.Error(err))
		return nil, err
	}

	if err := runMigrations(cfg.MigrationsPath, url, log); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("Postgres connected")

	return &Store{
		pool:  pool,
		log:   log,
		repos: newRepos(pool, log),
	}, nil
}

func runMigrations(path, url string, log logger.ILogger) error {
	mPath := path
	if !filepath.IsAbs(mPath) {
		cwd, _ := os.Getwd()
		mPath = filepath.Join(cwd, mPath)
	}
	if _, err := os.Stat(mPath); err != nil {
		log.Warning("migrations directory not found, skipping", logger.String("path", mPath))
		return nil
	}

	m, err := migrate.New("file://"+mPath, url)
	if err != nil {
		log.Error("migration init error", logger.Error(err))
		return err
	}
	defer m.Close()

	if err = m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return nil
		}
		log.Error("migration up error", logger.Error(err))
		return err
	}
	log.Info("migrations applied", logger.String("path", mPath))
	return nil
}

func (s *Store) InTx(ctx context.Context, fn storage.TxFunc) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		s.log.Error("failed to begin transaction", logger.Error(err))
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.log.Error("failed to rollback transaction", logger.Error(rbErr))
			}
			return
		}
		if err = tx.Commit(ctx); err != nil {
			s.log.Error("failed to commit transaction", logger.Error(err))
		}
	}()

	return fn(ctx, newRepos(tx, s.log))
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}

type repos struct {
	account   storage.IAccountStorage
	request   storage.IRequestStorage
	ride      storage.IRideStorage
	rejection storage.IRejectionStorage
	payment   storage.IPaymentStorage
}

func newRepos(db querier, log logger.ILogger) repos {
	return repos{
		account:   NewAccountRepo(db, log),
		request:   NewRequestRepo(db, log),
		ride:      NewRideRepo(db, log),
		rejection: NewRejectionRepo(db, log),
		payment:   NewPaymentRepo(db, log),
	}
}

func (r repos) Account() storage.IAccountStorage     { return r.account }
func (r repos) Request() storage.IRequestStorage     { return r.request }
func (r repos) Ride() storage.IRideStorage           { return r.ride }
func (r repos) Rejection() storage.IRejectionStorage { return r.rejection }
func (r repos) Payment() storage.IPaymentStorage     { return r.payment }

const uniqueViolation = "23505"

// mapErr converts driver errors into the storage sentinels callers branch on.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
