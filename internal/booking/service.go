package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"swimslot/internal/apperr"
	"swimslot/internal/db"
	"swimslot/internal/logger"
	"swimslot/internal/session"
)

// Ledger owns booking records and their state machine. Capacity changes
// are delegated to the session catalog inside the same transaction.
type Ledger interface {
	Create(ctx context.Context, p CreateParams) (*Booking, error)
	Get(ctx context.Context, id string) (*Booking, error)
	SetStatus(ctx context.Context, id string, to Status) (*Booking, error)
	MarkCancelled(ctx context.Context, id string, meta CancelMeta) (*Booking, error)
	MoveToSession(ctx context.Context, id, fromSessionID, toSessionID string) (*Booking, error)
	HasActiveBooking(ctx context.Context, sessionID, swimmerID string) (bool, error)
	ListBySwimmer(ctx context.Context, swimmerID string) ([]BookingWithSession, error)
	FindFutureSeries(ctx context.Context, q SeriesQuery) ([]SeriesEntry, error)
}

type ledger struct {
	repo     Repository
	sessions session.Catalog
	tx       db.Transactor
	now      func() time.Time
}

func NewLedger(repo Repository, sessions session.Catalog, tx db.Transactor) Ledger {
	return &ledger{
		repo:     repo,
		sessions: sessions,
		tx:       tx,
		now:      time.Now,
	}
}

// Create reserves a place and records the booking as one unit. The duplicate
// check runs first so a swimmer re-booking a full session gets
// DuplicateBooking rather than SlotFull.
func (l *ledger) Create(ctx context.Context, p CreateParams) (*Booking, error) {
	if !p.Kind.IsValid() {
		return nil, apperr.Validation("unknown booking type %q", p.Kind)
	}

	var created *Booking
	err := l.tx.WithinTx(ctx, "booking.create", func(ctx context.Context) error {
		dup, err := l.repo.HasActiveBooking(ctx, p.SessionID, p.SwimmerID)
		if err != nil {
			return err
		}
		if dup {
			return apperr.Duplicate("swimmer %s already has an active booking for session %s", p.SwimmerID, p.SessionID)
		}

		s, err := l.sessions.ReserveSlot(ctx, p.SessionID)
		if err != nil {
			return err
		}
		if err := checkKindMatchesSession(p.Kind, s); err != nil {
			return err
		}

		now := l.now().UTC()
		b := &Booking{
			ID:          uuid.NewString(),
			SessionID:   p.SessionID,
			SwimmerID:   p.SwimmerID,
			ParentID:    p.ParentID,
			Status:      StatusConfirmed,
			BookingType: p.Kind,
			Notes:       p.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := l.repo.Insert(ctx, b); err != nil {
			return err
		}

		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("booking created",
		"booking_id", created.ID,
		"session_id", created.SessionID,
		"swimmer_id", created.SwimmerID,
		"kind", created.BookingType,
	)
	return created, nil
}

func checkKindMatchesSession(k Kind, s *session.Session) error {
	switch {
	case k == KindAssessment && s.SessionType != session.TypeAssessment:
		return apperr.Validation("assessment bookings need an assessment session, session %s is a %s", s.ID, s.SessionType)
	case k != KindAssessment && s.SessionType == session.TypeAssessment:
		return apperr.Validation("session %s is reserved for assessments", s.ID)
	}
	return nil
}

func (l *ledger) Get(ctx context.Context, id string) (*Booking, error) {
	return l.repo.GetByID(ctx, id)
}

// SetStatus moves a booking to completed or no_show. Cancellation has its own
// path because it also releases the slot.
func (l *ledger) SetStatus(ctx context.Context, id string, to Status) (*Booking, error) {
	if !to.IsValid() {
		return nil, apperr.Validation("unknown booking status %q", to)
	}
	if to == StatusCancelled {
		return nil, apperr.InvalidTransition("bookings are cancelled through the cancellation flow")
	}

	b, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransitionTo(to) {
		return nil, apperr.InvalidTransition("cannot move booking %s from %s to %s", id, b.Status, to)
	}

	now := l.now().UTC()
	if to.RequiresStartedSession() {
		s, err := l.sessions.Get(ctx, b.SessionID)
		if err != nil {
			return nil, err
		}
		if !s.HasStarted(now) {
			return nil, apperr.InvalidTransition("booking %s cannot be marked %s before its session starts", id, to)
		}
	}

	updated, err := l.repo.CompareAndSetStatus(ctx, id, b.Status, to, now)
	if err != nil {
		return nil, err
	}

	logger.Info("booking status changed", "booking_id", id, "from", b.Status, "to", to)
	return updated, nil
}

func (l *ledger) MarkCancelled(ctx context.Context, id string, meta CancelMeta) (*Booking, error) {
	if meta.SessionID == "" {
		return nil, apperr.Validation("cancelling booking %s needs the session it was read in", id)
	}
	if meta.At.IsZero() {
		meta.At = l.now()
	}
	meta.At = meta.At.UTC()
	return l.repo.MarkCancelled(ctx, id, meta)
}

func (l *ledger) MoveToSession(ctx context.Context, id, fromSessionID, toSessionID string) (*Booking, error) {
	return l.repo.MoveToSession(ctx, id, fromSessionID, toSessionID, l.now().UTC())
}

func (l *ledger) HasActiveBooking(ctx context.Context, sessionID, swimmerID string) (bool, error) {
	return l.repo.HasActiveBooking(ctx, sessionID, swimmerID)
}

func (l *ledger) ListBySwimmer(ctx context.Context, swimmerID string) ([]BookingWithSession, error) {
	return l.repo.ListBySwimmer(ctx, swimmerID)
}

func (l *ledger) FindFutureSeries(ctx context.Context, q SeriesQuery) ([]SeriesEntry, error) {
	q.After = q.After.UTC()
	return l.repo.FindFutureSeries(ctx, q)
}
