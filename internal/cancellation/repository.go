package cancellation

import (
	"context"

	"swimslot/internal/db"
)

type Repository interface {
	InsertRecord(ctx context.Context, r *Record) error
	InsertFloatingSession(ctx context.Context, f *FloatingSession) error
	ListBySwimmer(ctx context.Context, swimmerID string) ([]Record, error)
}

type repository struct {
	store *db.Store
}

func NewRepository(store *db.Store) Repository {
	return &repository{store: store}
}

func (r *repository) InsertRecord(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO cancellations (id, booking_id, session_id, swimmer_id, parent_id, canceled_by,
			cancellation_type, session_start_time, instructor_id, hours_before_session,
			was_late_cancellation, cancel_reason, cancel_source, admin_notes, marked_flexible_swimmer,
			swimmer_has_funding_source, created_floating_session, floating_session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.store.Exec(ctx, "cancellation.insert", func(ctx context.Context, ex db.Executor) error {
		_, err := ex.ExecContext(ctx, ex.Rebind(query),
			rec.ID, rec.BookingID, rec.SessionID, rec.SwimmerID, rec.ParentID, rec.CanceledBy,
			rec.CancellationType, rec.SessionStartTime, rec.InstructorID, rec.HoursBeforeSession,
			rec.WasLateCancellation, rec.CancelReason, rec.CancelSource, rec.AdminNotes, rec.MarkedFlexibleSwimmer,
			rec.SwimmerHasFundingSource, rec.CreatedFloatingSession, rec.FloatingSessionID, rec.CreatedAt)
		return err
	})
}

func (r *repository) InsertFloatingSession(ctx context.Context, f *FloatingSession) error {
	query := `
		INSERT INTO floating_sessions (id, original_session_id, original_booking_id, available_until,
			month_year, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	return r.store.Exec(ctx, "cancellation.insert_floating", func(ctx context.Context, ex db.Executor) error {
		_, err := ex.ExecContext(ctx, ex.Rebind(query),
			f.ID, f.OriginalSessionID, f.OriginalBookingID, f.AvailableUntil, f.MonthYear, f.Status, f.CreatedAt)
		return err
	})
}

func (r *repository) ListBySwimmer(ctx context.Context, swimmerID string) ([]Record, error) {
	query := `
		SELECT id, booking_id, session_id, swimmer_id, parent_id, canceled_by, cancellation_type,
			session_start_time, instructor_id, hours_before_session, was_late_cancellation,
			cancel_reason, cancel_source, admin_notes, marked_flexible_swimmer,
			swimmer_has_funding_source, created_floating_session, floating_session_id, created_at
		FROM cancellations
		WHERE swimmer_id = ?
		ORDER BY created_at DESC
	`

	return db.Call(ctx, r.store, "cancellation.list_by_swimmer", func(ctx context.Context, ex db.Executor) ([]Record, error) {
		records := []Record{}
		if err := ex.SelectContext(ctx, &records, ex.Rebind(query), swimmerID); err != nil {
			return nil, err
		}
		return records, nil
	})
}
