package booking

import (
	"context"
	"time"

	"swimslot/internal/apperr"
	"swimslot/internal/db"
)

const bookingColumns = `id, session_id, swimmer_id, parent_id, status, booking_type, notes,
	cancel_reason, cancel_source, canceled_at, canceled_by, created_at, updated_at`

type repository struct {
	store *db.Store
}

func NewRepository(store *db.Store) Repository {
	return &repository{store: store}
}

func (r *repository) Insert(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (id, session_id, swimmer_id, parent_id, status, booking_type, notes,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.store.Exec(ctx, "booking.insert", func(ctx context.Context, ex db.Executor) error {
		_, err := ex.ExecContext(ctx, ex.Rebind(query),
			b.ID, b.SessionID, b.SwimmerID, b.ParentID, b.Status, b.BookingType, b.Notes,
			b.CreatedAt, b.UpdatedAt)
		return err
	})
}

func (r *repository) GetByID(ctx context.Context, id string) (*Booking, error) {
	return db.Call(ctx, r.store, "booking.get", func(ctx context.Context, ex db.Executor) (*Booking, error) {
		return getByID(ctx, ex, id)
	})
}

func getByID(ctx context.Context, ex db.Executor, id string) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

	var b Booking
	if err := ex.GetContext(ctx, &b, ex.Rebind(query), id); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("booking %s not found", id)
		}
		return nil, err
	}

	return &b, nil
}

func (r *repository) HasActiveBooking(ctx context.Context, sessionID, swimmerID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE session_id = ? AND swimmer_id = ? AND status <> 'cancelled'
		)
	`

	return db.Call(ctx, r.store, "booking.has_active", func(ctx context.Context, ex db.Executor) (bool, error) {
		return db.Exists(ctx, ex, query, sessionID, swimmerID)
	})
}

// CompareAndSetStatus applies from -> to only if the stored status is still
// from. A lost race is reported as InvalidTransition.
func (r *repository) CompareAndSetStatus(ctx context.Context, id string, from, to Status, at time.Time) (*Booking, error) {
	query := `
		UPDATE bookings
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	return db.Call(ctx, r.store, "booking.set_status", func(ctx context.Context, ex db.Executor) (*Booking, error) {
		return casAndGet(ctx, ex, id, from, query, to, at, id, from)
	})
}

func (r *repository) MarkCancelled(ctx context.Context, id string, meta CancelMeta) (*Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancel_reason = ?, cancel_source = ?, canceled_at = ?,
			canceled_by = ?, updated_at = ?
		WHERE id = ? AND status = 'confirmed' AND session_id = ?
	`

	var canceledBy *string
	if meta.By != "" {
		canceledBy = &meta.By
	}

	return db.Call(ctx, r.store, "booking.mark_cancelled", func(ctx context.Context, ex db.Executor) (*Booking, error) {
		res, err := ex.ExecContext(ctx, ex.Rebind(query),
			meta.Reason, meta.Source, meta.At, canceledBy, meta.At, id, meta.SessionID)
		if err != nil {
			return nil, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}

		b, err := getByID(ctx, ex, id)
		if err != nil {
			return nil, err
		}
		switch {
		case n > 0:
			return b, nil
		case b.Status != StatusConfirmed:
			return nil, apperr.InvalidTransition("booking %s is %s, expected %s", id, b.Status, StatusConfirmed)
		default:
			return nil, apperr.InvalidTransition("booking %s moved from session %s to %s", id, meta.SessionID, b.SessionID)
		}
	})
}

func (r *repository) MoveToSession(ctx context.Context, id, fromSessionID, toSessionID string, at time.Time) (*Booking, error) {
	query := `
		UPDATE bookings
		SET session_id = ?, updated_at = ?
		WHERE id = ? AND session_id = ? AND status = 'confirmed'
	`

	return db.Call(ctx, r.store, "booking.move", func(ctx context.Context, ex db.Executor) (*Booking, error) {
		res, err := ex.ExecContext(ctx, ex.Rebind(query), toSessionID, at, id, fromSessionID)
		if err != nil {
			return nil, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}

		b, err := getByID(ctx, ex, id)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, apperr.InvalidTransition("booking %s changed concurrently (status %s, session %s)", id, b.Status, b.SessionID)
		}

		return b, nil
	})
}

func casAndGet(ctx context.Context, ex db.Executor, id string, expected Status, query string, args ...interface{}) (*Booking, error) {
	res, err := ex.ExecContext(ctx, ex.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	b, err := getByID(ctx, ex, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.InvalidTransition("booking %s is %s, expected %s", id, b.Status, expected)
	}

	return b, nil
}

func (r *repository) ListBySwimmer(ctx context.Context, swimmerID string) ([]BookingWithSession, error) {
	query := `
		SELECT
			b.id, b.session_id, b.swimmer_id, b.parent_id, b.status, b.booking_type, b.notes,
			b.cancel_reason, b.cancel_source, b.canceled_at, b.canceled_by, b.created_at, b.updated_at,
			s.start_time AS session_start,
			s.end_time AS session_end,
			s.location,
			s.instructor_id
		FROM bookings b
		JOIN sessions s ON s.id = b.session_id
		WHERE b.swimmer_id = ?
		ORDER BY s.start_time DESC, b.created_at DESC
	`

	return db.Call(ctx, r.store, "booking.list_by_swimmer", func(ctx context.Context, ex db.Executor) ([]BookingWithSession, error) {
		bookings := []BookingWithSession{}
		if err := ex.SelectContext(ctx, &bookings, ex.Rebind(query), swimmerID); err != nil {
			return nil, err
		}
		return bookings, nil
	})
}

func (r *repository) FindFutureSeries(ctx context.Context, q SeriesQuery) ([]SeriesEntry, error) {
	query := `
		SELECT b.id AS booking_id, b.session_id, s.start_time
		FROM bookings b
		JOIN sessions s ON s.id = b.session_id
		WHERE b.swimmer_id = ?
			AND b.status = 'confirmed'
			AND b.booking_type = 'lesson'
			AND s.start_time > ?
			AND b.id <> ?`
	args := []interface{}{q.SwimmerID, q.After, q.ExcludeBookingID}

	if q.InstructorID != nil {
		query += " AND s.instructor_id = ?"
		args = append(args, *q.InstructorID)
	} else {
		query += " AND s.instructor_id IS NULL"
	}
	query += " ORDER BY s.start_time ASC"

	return db.Call(ctx, r.store, "booking.find_series", func(ctx context.Context, ex db.Executor) ([]SeriesEntry, error) {
		entries := []SeriesEntry{}
		if err := ex.SelectContext(ctx, &entries, ex.Rebind(query), args...); err != nil {
			return nil, err
		}
		return entries, nil
	})
}
