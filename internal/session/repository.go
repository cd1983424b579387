package session

import (
	"context"
	"strings"
	"time"

	"swimslot/internal/apperr"
	"swimslot/internal/db"
)

const sessionColumns = `id, start_time, end_time, location, instructor_id, capacity,
	session_type, booking_count, is_recurring, batch_id, created_at, updated_at`

type repository struct {
	store *db.Store
}

func NewRepository(store *db.Store) Repository {
	return &repository{store: store}
}

func (r *repository) Create(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO sessions (id, start_time, end_time, location, instructor_id, capacity,
			session_type, booking_count, is_recurring, batch_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.store.Exec(ctx, "session.create", func(ctx context.Context, ex db.Executor) error {
		_, err := ex.ExecContext(ctx, ex.Rebind(query),
			s.ID, s.StartTime, s.EndTime, s.Location, s.InstructorID, s.Capacity,
			s.SessionType, s.BookingCount, s.IsRecurring, s.BatchID, s.CreatedAt, s.UpdatedAt)
		return err
	})
}

func (r *repository) GetByID(ctx context.Context, id string) (*Session, error) {
	return db.Call(ctx, r.store, "session.get", func(ctx context.Context, ex db.Executor) (*Session, error) {
		return getByID(ctx, ex, id)
	})
}

func getByID(ctx context.Context, ex db.Executor, id string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	var s Session
	if err := ex.GetContext(ctx, &s, ex.Rebind(query), id); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("session %s not found", id)
		}
		return nil, err
	}

	return &s, nil
}

func (r *repository) FindAvailable(ctx context.Context, from, to time.Time, f Filter) ([]Session, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + sessionColumns + `
		FROM sessions
		WHERE booking_count < capacity AND start_time >= ? AND start_time < ?`)
	args := []interface{}{from, to}

	if f.InstructorID != "" {
		b.WriteString(" AND instructor_id = ?")
		args = append(args, f.InstructorID)
	}
	if f.Location != "" {
		b.WriteString(" AND location = ?")
		args = append(args, f.Location)
	}
	if f.SessionType != "" {
		b.WriteString(" AND session_type = ?")
		args = append(args, f.SessionType)
	}
	b.WriteString(" ORDER BY start_time ASC, location ASC")

	return db.Call(ctx, r.store, "session.find_available", func(ctx context.Context, ex db.Executor) ([]Session, error) {
		sessions := []Session{}
		if err := ex.SelectContext(ctx, &sessions, ex.Rebind(b.String()), args...); err != nil {
			return nil, err
		}
		return sessions, nil
	})
}

// IncrementBookingCount claims one place iff one is free. A miss is reported
// as NotFound or SlotFull depending on whether the row exists.
func (r *repository) IncrementBookingCount(ctx context.Context, id string, at time.Time) (*Session, error) {
	query := `
		UPDATE sessions
		SET booking_count = booking_count + 1, updated_at = ?
		WHERE id = ? AND booking_count < capacity
	`

	return db.Call(ctx, r.store, "session.reserve", func(ctx context.Context, ex db.Executor) (*Session, error) {
		res, err := ex.ExecContext(ctx, ex.Rebind(query), at, id)
		if err != nil {
			return nil, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}

		s, err := getByID(ctx, ex, id)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, apperr.SlotFull("session %s is full (%d/%d)", id, s.BookingCount, s.Capacity)
		}

		return s, nil
	})
}

func (r *repository) DecrementBookingCount(ctx context.Context, id string, at time.Time) (*Session, error) {
	query := `
		UPDATE sessions
		SET booking_count = CASE WHEN booking_count > 0 THEN booking_count - 1 ELSE 0 END,
			updated_at = ?
		WHERE id = ?
	`

	return db.Call(ctx, r.store, "session.release", func(ctx context.Context, ex db.Executor) (*Session, error) {
		return r.updateAndGet(ctx, ex, id, query, at, id)
	})
}

// SetInstructor swaps the instructor from -> to. If the stored instructor is
// no longer from the update is refused with InvalidTransition.
func (r *repository) SetInstructor(ctx context.Context, id string, from, to *string, at time.Time) (*Session, error) {
	query := `
		UPDATE sessions
		SET instructor_id = ?, updated_at = ?
		WHERE id = ?`
	args := []interface{}{to, at, id}
	if from != nil {
		query += " AND instructor_id = ?"
		args = append(args, *from)
	} else {
		query += " AND instructor_id IS NULL"
	}

	return db.Call(ctx, r.store, "session.set_instructor", func(ctx context.Context, ex db.Executor) (*Session, error) {
		res, err := ex.ExecContext(ctx, ex.Rebind(query), args...)
		if err != nil {
			return nil, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}

		s, err := getByID(ctx, ex, id)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, apperr.InvalidTransition("session %s instructor changed concurrently (now %s)", id, instructorLabel(s.InstructorID))
		}

		return s, nil
	})
}

func instructorLabel(id *string) string {
	if id == nil {
		return "tbd"
	}
	return *id
}

func (r *repository) updateAndGet(ctx context.Context, ex db.Executor, id, query string, args ...interface{}) (*Session, error) {
	res, err := ex.ExecContext(ctx, ex.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.NotFound("session %s not found", id)
	}

	return getByID(ctx, ex, id)
}
