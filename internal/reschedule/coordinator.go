package reschedule

import (
	"context"
	"time"

	"swimslot/internal/apperr"
	"swimslot/internal/booking"
	"swimslot/internal/db"
	"swimslot/internal/logger"
	"swimslot/internal/metrics"
	"swimslot/internal/notify"
	"swimslot/internal/session"
)

const noticeTimeout = 10 * time.Second

type Result struct {
	Booking     *booking.Booking `json:"booking"`
	FromSession *session.Session `json:"from_session"`
	ToSession   *session.Session `json:"to_session"`
}

// Coordinator moves a confirmed booking between sessions. The new place is
// reserved before the old one is released, and the three writes commit or
// roll back together, so a failed move leaves both counters untouched.
type Coordinator struct {
	ledger   booking.Ledger
	sessions session.Catalog
	tx       db.Transactor
	notifier notify.Sender
}

func NewCoordinator(ledger booking.Ledger, sessions session.Catalog, tx db.Transactor, notifier notify.Sender) *Coordinator {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Coordinator{
		ledger:   ledger,
		sessions: sessions,
		tx:       tx,
		notifier: notifier,
	}
}

func (c *Coordinator) Reschedule(ctx context.Context, bookingID, newSessionID string, notifyParent bool) (*Result, error) {
	b, err := c.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusConfirmed {
		return nil, apperr.InvalidTransition("booking %s is %s, only confirmed bookings can be rescheduled", b.ID, b.Status)
	}
	if b.SessionID == newSessionID {
		return nil, apperr.Validation("booking %s is already in session %s", b.ID, newSessionID)
	}

	dup, err := c.ledger.HasActiveBooking(ctx, newSessionID, b.SwimmerID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperr.Duplicate("swimmer %s already has an active booking for session %s", b.SwimmerID, newSessionID)
	}

	res := &Result{}
	err = c.tx.WithinTx(ctx, "booking.reschedule", func(ctx context.Context) error {
		to, err := c.sessions.ReserveSlot(ctx, newSessionID)
		if err != nil {
			return err
		}
		from, err := c.sessions.ReleaseSlot(ctx, b.SessionID)
		if err != nil {
			return err
		}
		moved, err := c.ledger.MoveToSession(ctx, b.ID, b.SessionID, newSessionID)
		if err != nil {
			return err
		}

		res.Booking, res.FromSession, res.ToSession = moved, from, to
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordReschedule()
	logger.Info("booking rescheduled",
		"booking_id", b.ID,
		"from_session", b.SessionID,
		"to_session", newSessionID,
	)

	if notifyParent {
		go c.sendNotice(res.Booking.ID)
	}

	return res, nil
}

func (c *Coordinator) sendNotice(bookingID string) {
	ctx, cancel := context.WithTimeout(context.Background(), noticeTimeout)
	defer cancel()

	if err := c.notifier.SendRescheduleNotice(ctx, bookingID); err != nil {
		logger.Warn("reschedule notice failed", "booking_id", bookingID, "error", err)
	}
}
