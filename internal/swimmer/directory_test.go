package swimmer

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swimslot/internal/apperr"
	"swimslot/internal/db"
	"swimslot/internal/testutil"
)

func setupMock(t *testing.T, now time.Time) (Directory, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	d := NewDirectory(db.NewStore(sqlx.NewDb(conn, "sqlmock"), db.DefaultStoreConfig())).(*directory)
	d.now = func() time.Time { return now }
	return d, mock
}

func TestSetFlexibleFlagStampsMetadata(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, mock := setupMock(t, now)
	reason := "Late cancellation - admin marked"
	setBy := "admin-1"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE swimmers SET flexible_swimmer = ?, flexible_swimmer_reason = ?, flexible_swimmer_set_at = ?, flexible_swimmer_set_by = ?, updated_at = ? WHERE id = ?")).
		WithArgs(true, &reason, &now, &setBy, now, "w1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, d.SetFlexibleFlag(context.Background(), "w1", true, reason, setBy))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetFlexibleFlagClearing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d, mock := setupMock(t, now)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE swimmers SET flexible_swimmer = ?")).
		WithArgs(false, nil, nil, nil, now, "w1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, d.SetFlexibleFlag(context.Background(), "w1", false, "ignored", "admin-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetAssessmentStatusMissing(t *testing.T) {
	now := time.Now().UTC()
	d, mock := setupMock(t, now)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE swimmers SET assessment_status = ?, updated_at = ? WHERE id = ?")).
		WithArgs(AssessmentNotScheduled, now, "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.ResetAssessmentStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDirectorySQLite(t *testing.T) {
	store := testutil.NewStore(t)
	fx := testutil.NewFixtures(t, store)
	d := NewDirectory(store)
	ctx := context.Background()

	parent := fx.Profile("parent")
	id := fx.Swimmer(parent, testutil.SwimmerOpts{FundingSource: true, AssessmentStat: "scheduled"})

	s, err := d.GetSwimmer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, parent, s.ParentID)
	assert.True(t, s.HasFundingSource())
	assert.False(t, s.FlexibleSwimmer)

	require.NoError(t, d.SetFlexibleFlag(ctx, id, true, "sick twice", parent))
	require.NoError(t, d.ResetAssessmentStatus(ctx, id))

	s, err = d.GetSwimmer(ctx, id)
	require.NoError(t, err)
	assert.True(t, s.FlexibleSwimmer)
	require.NotNil(t, s.FlexibleSwimmerReason)
	assert.Equal(t, "sick twice", *s.FlexibleSwimmerReason)
	require.NotNil(t, s.FlexibleSwimmerSetAt)
	require.NotNil(t, s.AssessmentStatus)
	assert.Equal(t, AssessmentNotScheduled, *s.AssessmentStatus)

	_, err = d.GetSwimmer(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
