package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"swimslot/internal/apperr"
	"swimslot/internal/booking"
	"swimslot/internal/cancellation"
	"swimslot/internal/events"
	"swimslot/internal/logger"
	"swimslot/internal/metrics"
	"swimslot/internal/session"
)

type CancelResult struct {
	Booking           *booking.Booking      `json:"booking"`
	Session           *session.Session      `json:"session"`
	Decision          cancellation.Decision `json:"decision"`
	FloatingSessionID *string               `json:"floating_session_id,omitempty"`
	FlexibleFlagSet   bool                  `json:"flexible_flag_set"`
	// FlexibleFlagError is set when the cancellation committed but the
	// swimmer could not be marked flexible afterwards.
	FlexibleFlagError string `json:"flexible_flag_error,omitempty"`
}

// CancelBooking cancels a confirmed booking. The status change, the released
// slot, the analytics row, any floating session and the assessment reset are
// written in one transaction. Flagging the swimmer and notifying the parent
// happen after commit and cannot undo the cancellation.
func (s *Service) CancelBooking(ctx context.Context, actor Actor, bookingID string, req CancelBookingRequest) (res *CancelResult, err error) {
	ctx, span := s.start(ctx, "cancel_booking", attribute.String("booking_id", bookingID))
	defer func() { s.finish(span, "cancel_booking", err) }()

	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)

	b, err := s.Ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeBooking(actor, b); err != nil {
		return nil, err
	}
	if b.Status != booking.StatusConfirmed {
		return nil, apperr.InvalidTransition("booking %s is %s, only confirmed bookings can be cancelled", b.ID, b.Status)
	}

	sess, err := s.Sessions.Get(ctx, b.SessionID)
	if err != nil {
		return nil, err
	}
	sw, err := s.Swimmers.GetSwimmer(ctx, b.SwimmerID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	source := actor.cancelSource()
	decision := s.Policy.Evaluate(b, sess, now, cancellation.Options{
		Source:          source,
		RequestFlexible: req.MarkFlexible && actor.IsStaff(),
		SwimmerFlexible: sw.FlexibleSwimmer,
	})
	span.SetAttributes(
		attribute.Bool("late", decision.IsLate),
		attribute.Float64("hours_before_session", decision.HoursBeforeSession),
	)
	if decision.Blocked {
		return nil, apperr.Validation("cancellations within %s of the session must be arranged with staff", s.Policy.LateWindow)
	}

	res = &CancelResult{Decision: decision}
	err = s.Tx.WithinTx(ctx, "booking.cancel", func(ctx context.Context) error {
		cancelled, err := s.Ledger.MarkCancelled(ctx, b.ID, booking.CancelMeta{
			SessionID: sess.ID,
			Reason:    req.Reason,
			Source:    source,
			By:        actor.UserID,
			At:        now,
		})
		if err != nil {
			return err
		}

		released, err := s.Sessions.ReleaseSlot(ctx, cancelled.SessionID)
		if err != nil {
			return err
		}

		if decision.CreateFloatingSession {
			f := &cancellation.FloatingSession{
				ID:                uuid.NewString(),
				OriginalSessionID: sess.ID,
				OriginalBookingID: b.ID,
				AvailableUntil:    sess.StartTime.UTC(),
				MonthYear:         sess.StartTime.UTC().Format("2006-01"),
				Status:            cancellation.FloatingAvailable,
				CreatedAt:         now,
			}
			if err := s.Cancellations.InsertFloatingSession(ctx, f); err != nil {
				return err
			}
			res.FloatingSessionID = &f.ID
		}

		if err := s.Cancellations.InsertRecord(ctx, s.cancellationRecord(actor, cancelled, sess, decision, req, sw.HasFundingSource(), res.FloatingSessionID, now)); err != nil {
			return err
		}

		if b.BookingType == booking.KindAssessment {
			if err := s.Swimmers.ResetAssessmentStatus(ctx, b.SwimmerID); err != nil {
				return err
			}
		}

		res.Booking, res.Session = cancelled, released
		return nil
	})
	if err != nil {
		return nil, err
	}

	if decision.RecommendFlexibleFlag {
		reason := strings.TrimSpace(req.FlexibleReason)
		if reason == "" {
			reason = cancellation.DefaultFlexibleReason
		}
		if err := s.Swimmers.SetFlexibleFlag(ctx, sw.ID, true, reason, actor.UserID); err != nil {
			logger.Error("failed to mark swimmer flexible after cancellation",
				"booking_id", b.ID,
				"swimmer_id", sw.ID,
				"error", err,
			)
			res.FlexibleFlagError = err.Error()
		} else {
			res.FlexibleFlagSet = true
		}
	}

	metrics.RecordBookingCancellation(string(source), decision.IsLate)
	logger.Info("booking cancelled",
		"booking_id", b.ID,
		"session_id", res.Booking.SessionID,
		"source", source,
		"late", decision.IsLate,
		"hours_before_session", decision.HoursBeforeSession,
	)

	if req.NotifyParent {
		s.notifyAsync(b.ID, s.Notifier.SendCancellationNotice)
	}
	late := decision.IsLate
	s.Events.Emit(ctx, events.BookingCancelled, bookingEvent{
		BookingID: b.ID,
		SessionID: res.Booking.SessionID,
		SwimmerID: b.SwimmerID,
		Kind:      string(b.BookingType),
		Late:      &late,
		Source:    string(source),
	})

	return res, nil
}

func (s *Service) cancellationRecord(actor Actor, b *booking.Booking, sess *session.Session, d cancellation.Decision, req CancelBookingRequest, funded bool, floatingID *string, now time.Time) *cancellation.Record {
	var canceledBy *string
	if actor.UserID != "" {
		canceledBy = &actor.UserID
	}

	return &cancellation.Record{
		ID:                      uuid.NewString(),
		BookingID:               b.ID,
		SessionID:               sess.ID,
		SwimmerID:               b.SwimmerID,
		ParentID:                b.ParentID,
		CanceledBy:              canceledBy,
		CancellationType:        d.CancellationType,
		SessionStartTime:        sess.StartTime.UTC(),
		InstructorID:            sess.InstructorID,
		HoursBeforeSession:      d.HoursBeforeSession,
		WasLateCancellation:     d.IsLate,
		CancelReason:            req.Reason,
		CancelSource:            string(actor.cancelSource()),
		AdminNotes:              req.AdminNotes,
		MarkedFlexibleSwimmer:   d.RecommendFlexibleFlag,
		SwimmerHasFundingSource: funded,
		CreatedFloatingSession:  floatingID != nil,
		FloatingSessionID:       floatingID,
		CreatedAt:               now,
	}
}
