package instructor

import (
	"context"
	"time"

	"swimslot/internal/apperr"
	"swimslot/internal/booking"
	"swimslot/internal/logger"
	"swimslot/internal/metrics"
	"swimslot/internal/session"
)

type SessionFailure struct {
	SessionID string `json:"session_id"`
	Err       error  `json:"-"`
}

// Result describes what ChangeInstructor touched. The primary session is
// always reassigned before any cascade work starts, so Session is set even
// when Failures is not empty.
type Result struct {
	Booking  *booking.Booking `json:"booking"`
	Session  *session.Session `json:"session"`
	Cascaded []string         `json:"cascaded_session_ids"`
	Failures []SessionFailure `json:"failures,omitempty"`
	// SeriesLookupErr is set when the future sessions could not be listed.
	SeriesLookupErr error `json:"-"`
}

func (r *Result) Partial() bool {
	return len(r.Failures) > 0 || r.SeriesLookupErr != nil
}

type Reassigner struct {
	ledger      booking.Ledger
	sessions    session.Catalog
	instructors Directory
	now         func() time.Time
}

func NewReassigner(ledger booking.Ledger, sessions session.Catalog, instructors Directory) *Reassigner {
	return &Reassigner{
		ledger:      ledger,
		sessions:    sessions,
		instructors: instructors,
		now:         time.Now,
	}
}

// ChangeInstructor reassigns the booking's session to newInstructorID. With
// applyToFuture set on a lesson booking, later confirmed lessons of the same
// swimmer that were taught by the original instructor follow along. Cascade
// failures are collected rather than aborting the loop.
func (r *Reassigner) ChangeInstructor(ctx context.Context, bookingID, newInstructorID, reason string, applyToFuture bool) (*Result, error) {
	b, err := r.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	ok, err := r.instructors.InstructorExists(ctx, newInstructorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("instructor %s not found", newInstructorID)
	}

	primary, err := r.sessions.Get(ctx, b.SessionID)
	if err != nil {
		return nil, err
	}
	original := primary.InstructorID

	updated, err := r.sessions.ReassignInstructor(ctx, primary.ID, original, &newInstructorID)
	if err != nil {
		return nil, err
	}
	metrics.RecordInstructorChange("single")

	logger.Info("instructor changed",
		"booking_id", b.ID,
		"session_id", primary.ID,
		"from", derefOr(original, "tbd"),
		"to", newInstructorID,
		"reason", reason,
	)

	res := &Result{Booking: b, Session: updated, Cascaded: []string{}}
	if !applyToFuture || b.BookingType != booking.KindLesson {
		return res, nil
	}

	series, err := r.ledger.FindFutureSeries(ctx, booking.SeriesQuery{
		SwimmerID:        b.SwimmerID,
		InstructorID:     original,
		After:            primary.StartTime,
		ExcludeBookingID: b.ID,
	})
	if err != nil {
		logger.Error("listing future sessions for cascade failed", "booking_id", b.ID, "error", err)
		res.SeriesLookupErr = err
		return res, nil
	}

	for _, entry := range series {
		if entry.SessionID == primary.ID {
			continue
		}
		if _, err := r.sessions.ReassignInstructor(ctx, entry.SessionID, original, &newInstructorID); err != nil {
			logger.Warn("cascade reassignment failed", "session_id", entry.SessionID, "error", err)
			res.Failures = append(res.Failures, SessionFailure{SessionID: entry.SessionID, Err: err})
			continue
		}
		res.Cascaded = append(res.Cascaded, entry.SessionID)
	}

	if len(res.Cascaded) > 0 {
		metrics.RecordInstructorChange("series")
	}
	metrics.RecordCascadeFailures(len(res.Failures))

	logger.Info("instructor cascade finished",
		"booking_id", b.ID,
		"updated", len(res.Cascaded),
		"failed", len(res.Failures),
	)
	return res, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
