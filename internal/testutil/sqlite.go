// Package testutil opens throwaway SQLite stores with the real schema and
// seeds rows for tests that need actual transactional behaviour.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"swimslot/internal/db"
)

// NewStore returns a migrated SQLite-backed store in t.TempDir().
func NewStore(t *testing.T) *db.Store {
	t.Helper()

	conn, err := db.Connect(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.RunMigrations(conn))

	cfg := db.DefaultStoreConfig()
	cfg.Timeout = 30 * time.Second
	return db.NewStore(conn, cfg)
}

type Fixtures struct {
	t  *testing.T
	db *sqlx.DB
}

func NewFixtures(t *testing.T, store *db.Store) *Fixtures {
	return &Fixtures{t: t, db: store.DB()}
}

func (f *Fixtures) Profile(role string) string {
	f.t.Helper()

	id := uuid.NewString()
	_, err := f.db.Exec(f.db.Rebind(`
		INSERT INTO profiles (id, full_name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		id, role+" "+id[:8], id+"@example.com", role, time.Now().UTC())
	require.NoError(f.t, err)

	return id
}

type SwimmerOpts struct {
	Flexible       bool
	FundingSource  bool
	AssessmentStat string
}

// Swimmer inserts a swimmer for parentID and returns its id.
func (f *Fixtures) Swimmer(parentID string, opts SwimmerOpts) string {
	f.t.Helper()

	id := uuid.NewString()
	paymentType := "private_pay"
	var fundingID *string
	if opts.FundingSource {
		paymentType = "funding_source"
		fid := uuid.NewString()
		fundingID = &fid
	}
	var assessment *string
	if opts.AssessmentStat != "" {
		assessment = &opts.AssessmentStat
	}

	now := time.Now().UTC()
	_, err := f.db.Exec(f.db.Rebind(`
		INSERT INTO swimmers (id, parent_id, first_name, last_name, payment_type, funding_source_id,
			flexible_swimmer, assessment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, parentID, "Swimmer", id[:8], paymentType, fundingID, opts.Flexible, assessment, now, now)
	require.NoError(f.t, err)

	return id
}

type SessionOpts struct {
	Start        time.Time
	Capacity     int
	InstructorID *string
	Type         string
	Location     string
	Recurring    bool
	BookingCount int
}

func (f *Fixtures) Session(opts SessionOpts) string {
	f.t.Helper()

	if opts.Capacity == 0 {
		opts.Capacity = 1
	}
	if opts.Type == "" {
		opts.Type = "lesson"
	}
	if opts.Location == "" {
		opts.Location = "Main Pool"
	}

	id := uuid.NewString()
	start := opts.Start.UTC()
	now := time.Now().UTC()
	_, err := f.db.Exec(f.db.Rebind(`
		INSERT INTO sessions (id, start_time, end_time, location, instructor_id, capacity,
			session_type, booking_count, is_recurring, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, start, start.Add(30*time.Minute), opts.Location, opts.InstructorID, opts.Capacity,
		opts.Type, opts.BookingCount, opts.Recurring, now, now)
	require.NoError(f.t, err)

	return id
}

// BookingCount reads the stored counter for a session.
func (f *Fixtures) BookingCount(sessionID string) int {
	f.t.Helper()

	var n int
	require.NoError(f.t, f.db.Get(&n, f.db.Rebind(`SELECT booking_count FROM sessions WHERE id = ?`), sessionID))
	return n
}

func (f *Fixtures) InstructorOf(sessionID string) *string {
	f.t.Helper()

	var id *string
	require.NoError(f.t, f.db.Get(&id, f.db.Rebind(`SELECT instructor_id FROM sessions WHERE id = ?`), sessionID))
	return id
}

func (f *Fixtures) Count(query string, args ...interface{}) int {
	f.t.Helper()

	var n int
	require.NoError(f.t, f.db.Get(&n, f.db.Rebind(query), args...))
	return n
}
