package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"swimslot/internal/apperr"
	"swimslot/internal/logger"
)

const defaultRetryBackoff = 100 * time.Millisecond

// Catalog owns session capacity. BookingCount changes only through
// ReserveSlot and ReleaseSlot.
type Catalog interface {
	Get(ctx context.Context, id string) (*Session, error)
	Create(ctx context.Context, req CreateRequest) (*Session, error)
	FindAvailable(ctx context.Context, from, to time.Time, f Filter) ([]Session, error)
	ReserveSlot(ctx context.Context, id string) (*Session, error)
	ReleaseSlot(ctx context.Context, id string) (*Session, error)
	// ReassignInstructor sets the instructor only while the session is still
	// taught by from (nil meaning TBD).
	ReassignInstructor(ctx context.Context, id string, from, to *string) (*Session, error)
}

type catalog struct {
	repo         Repository
	retryBackoff time.Duration
	now          func() time.Time
}

func NewCatalog(repo Repository) Catalog {
	return &catalog{
		repo:         repo,
		retryBackoff: defaultRetryBackoff,
		now:          time.Now,
	}
}

func (c *catalog) Get(ctx context.Context, id string) (*Session, error) {
	return c.repo.GetByID(ctx, id)
}

func (c *catalog) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	if req.Capacity <= 0 {
		return nil, apperr.Validation("capacity must be positive")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, apperr.Validation("end_time must be after start_time")
	}
	if !req.SessionType.IsValid() {
		return nil, apperr.Validation("unknown session type %q", req.SessionType)
	}

	now := c.now().UTC()
	s := &Session{
		ID:           uuid.NewString(),
		StartTime:    req.StartTime.UTC(),
		EndTime:      req.EndTime.UTC(),
		Location:     req.Location,
		InstructorID: req.InstructorID,
		Capacity:     req.Capacity,
		SessionType:  req.SessionType,
		IsRecurring:  req.IsRecurring,
		BatchID:      req.BatchID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.repo.Create(ctx, s); err != nil {
		return nil, err
	}

	logger.Info("session created", "session_id", s.ID, "start_time", s.StartTime, "capacity", s.Capacity)
	return s, nil
}

// FindAvailable is read-only, so a StoreUnavailable failure is retried once.
func (c *catalog) FindAvailable(ctx context.Context, from, to time.Time, f Filter) ([]Session, error) {
	if !to.After(from) {
		return nil, apperr.Validation("range end must be after range start")
	}
	if f.SessionType != "" && !f.SessionType.IsValid() {
		return nil, apperr.Validation("unknown session type %q", f.SessionType)
	}

	from, to = from.UTC(), to.UTC()
	sessions, err := c.repo.FindAvailable(ctx, from, to, f)
	if err == nil || !errors.Is(err, apperr.ErrStoreUnavailable) {
		return sessions, err
	}

	logger.Warn("find available sessions failed, retrying", "error", err)

	select {
	case <-ctx.Done():
		return nil, apperr.Unavailable("session.find_available", ctx.Err())
	case <-time.After(c.retryBackoff):
	}

	return c.repo.FindAvailable(ctx, from, to, f)
}

func (c *catalog) ReserveSlot(ctx context.Context, id string) (*Session, error) {
	s, err := c.repo.IncrementBookingCount(ctx, id, c.now().UTC())
	if err != nil {
		return nil, err
	}

	logger.Debug("slot reserved", "session_id", id, "booking_count", s.BookingCount, "capacity", s.Capacity)
	return s, nil
}

func (c *catalog) ReleaseSlot(ctx context.Context, id string) (*Session, error) {
	s, err := c.repo.DecrementBookingCount(ctx, id, c.now().UTC())
	if err != nil {
		return nil, err
	}

	logger.Debug("slot released", "session_id", id, "booking_count", s.BookingCount)
	return s, nil
}

func (c *catalog) ReassignInstructor(ctx context.Context, id string, from, to *string) (*Session, error) {
	return c.repo.SetInstructor(ctx, id, from, to, c.now().UTC())
}
