package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swimslot/internal/apperr"
)

func newMockStore(t *testing.T, cfg StoreConfig) (*Store, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewStore(sqlx.NewDb(conn, "sqlmock"), cfg), mock
}

func selectOne(ctx context.Context, ex Executor) (int, error) {
	var n int
	err := ex.GetContext(ctx, &n, ex.Rebind("SELECT 1"))
	return n, err
}

func TestCall_ClassifiesErrors(t *testing.T) {
	s, mock := newMockStore(t, DefaultStoreConfig())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).WillReturnRows(sqlmock.NewRows([]string{"n"}))
	_, err := Call(context.Background(), s, "ping", selectOne)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).WillReturnError(&pq.Error{Code: "23505"})
	_, err = Call(context.Background(), s, "ping", selectOne)
	assert.ErrorIs(t, err, apperr.ErrDuplicateBooking)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).WillReturnError(errors.New("i/o timeout"))
	_, err = Call(context.Background(), s, "ping", selectOne)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	n, err := Call(context.Background(), s, "ping", selectOne)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCall_BusinessErrorsPassThrough(t *testing.T) {
	s, _ := newMockStore(t, DefaultStoreConfig())

	_, err := Call(context.Background(), s, "ping", func(ctx context.Context, ex Executor) (int, error) {
		return 0, apperr.SlotFull("full")
	})

	assert.ErrorIs(t, err, apperr.ErrSlotFull)
	assert.Equal(t, "full", err.Error())
}

func TestCall_TimeoutIsStoreUnavailable(t *testing.T) {
	s, mock := newMockStore(t, StoreConfig{Timeout: 20 * time.Millisecond, FailureThreshold: 5, OpenTimeout: time.Second})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	_, err := Call(context.Background(), s, "ping", selectOne)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestCall_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	s, mock := newMockStore(t, StoreConfig{Timeout: time.Second, FailureThreshold: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).WillReturnError(errors.New("connection refused"))
		_, err := Call(context.Background(), s, "ping", selectOne)
		require.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	}

	called := false
	_, err := Call(context.Background(), s, "ping", func(ctx context.Context, ex Executor) (int, error) {
		called = true
		return 0, nil
	})

	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCall_BusinessErrorsDoNotTripBreaker(t *testing.T) {
	s, _ := newMockStore(t, StoreConfig{Timeout: time.Second, FailureThreshold: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := Call(context.Background(), s, "ping", func(ctx context.Context, ex Executor) (int, error) {
			return 0, apperr.NotFound("missing")
		})
		require.ErrorIs(t, err, apperr.ErrNotFound)
	}

	n, err := Call(context.Background(), s, "ping", func(ctx context.Context, ex Executor) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestWithinTx_CommitsAndJoins(t *testing.T) {
	s, mock := newMockStore(t, DefaultStoreConfig())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectCommit()

	err := s.WithinTx(context.Background(), "outer", func(ctx context.Context) error {
		require.NotNil(t, TxFromContext(ctx))
		return s.WithinTx(ctx, "inner", func(ctx context.Context) error {
			_, err := Call(ctx, s, "ping", selectOne)
			return err
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t, DefaultStoreConfig())

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), "op", func(ctx context.Context) error {
		return apperr.SlotFull("full")
	})

	assert.ErrorIs(t, err, apperr.ErrSlotFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnPanic(t *testing.T) {
	s, mock := newMockStore(t, DefaultStoreConfig())

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = s.WithinTx(context.Background(), "op", func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_BeginFailure(t *testing.T) {
	s, mock := newMockStore(t, DefaultStoreConfig())

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := s.WithinTx(context.Background(), "op", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("UNIQUE constraint failed")))
	assert.False(t, IsUniqueViolation(nil))
}
