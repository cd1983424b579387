package db

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker/v2"

	"swimslot/internal/apperr"
	"swimslot/internal/logger"
	"swimslot/internal/metrics"
)

// Executor is satisfied by both *sqlx.DB and *sqlx.Tx.
type Executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Transactor runs fn inside one database transaction. Nested calls join the
// transaction already carried by ctx.
type Transactor interface {
	WithinTx(ctx context.Context, op string, fn func(ctx context.Context) error) error
}

type StoreConfig struct {
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Store guards every persistence call with a timeout and a circuit breaker,
// and maps driver failures onto apperr kinds.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[any]
}

func NewStore(db *sqlx.DB, cfg StoreConfig) *Store {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultStoreConfig().FailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        "store",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				apperr.IsBusiness(err) ||
				IsNoRows(err) ||
				IsUniqueViolation(err) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Store{
		db:      db,
		timeout: cfg.Timeout,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Executor returns the transaction carried by ctx, or the pool.
func (s *Store) Executor(ctx context.Context) Executor {
	return ExecutorFromContext(ctx, s.db)
}

// Call runs one unit of persistence work. Business errors returned by fn
// pass through untouched; everything else is classified.
func Call[T any](ctx context.Context, s *Store, op string, fn func(ctx context.Context, ex Executor) (T, error)) (T, error) {
	var zero T

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ex := s.Executor(ctx)
	res, err := s.breaker.Execute(func() (any, error) {
		return fn(ctx, ex)
	})
	if err != nil {
		return zero, s.classify(op, err)
	}

	v, _ := res.(T)
	return v, nil
}

// Exec is Call for operations without a result.
func (s *Store) Exec(ctx context.Context, op string, fn func(ctx context.Context, ex Executor) error) error {
	_, err := Call(ctx, s, op, func(ctx context.Context, ex Executor) (struct{}, error) {
		return struct{}{}, fn(ctx, ex)
	})
	return err
}

func (s *Store) WithinTx(ctx context.Context, op string, fn func(ctx context.Context) error) (err error) {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	if s.breaker.State() == gobreaker.StateOpen {
		return s.classify(op, gobreaker.ErrOpenState)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.classify(op+".begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warn("rollback failed", "op", op, "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return s.classify(op+".commit", err)
	}

	return nil
}

func (s *Store) classify(op string, err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case IsNoRows(err):
		return apperr.NotFound("%s: not found", op)
	case IsUniqueViolation(err):
		return apperr.Duplicate("%s: record already exists", op)
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logger.Warn("store call rejected by circuit breaker", "op", op)
	} else {
		logger.Error("store call failed", "op", op, "error", err)
	}
	metrics.RecordStoreUnavailable(op)

	return apperr.Unavailable(op, err)
}
