package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"swimslot/internal/apperr"
	"swimslot/internal/booking"
	"swimslot/internal/cancellation"
	"swimslot/internal/db"
	"swimslot/internal/events"
	"swimslot/internal/instructor"
	"swimslot/internal/logger"
	"swimslot/internal/metrics"
	"swimslot/internal/notify"
	"swimslot/internal/reschedule"
	"swimslot/internal/session"
	"swimslot/internal/swimmer"
	"swimslot/internal/tracing"
)

// ErrForbidden is returned when a parent reaches for another family's
// booking or a staff-only operation.
var ErrForbidden = errors.New("operation not permitted for this user")

const noticeTimeout = 10 * time.Second

type Deps struct {
	Sessions      session.Catalog
	Ledger        booking.Ledger
	Cancellations cancellation.Repository
	Swimmers      swimmer.Directory
	Reschedules   *reschedule.Coordinator
	Reassigner    *instructor.Reassigner
	Policy        cancellation.Policy
	Tx            db.Transactor
	Notifier      notify.Sender
	Events        *events.Emitter
}

// Service is the entry point for booking operations. It validates input,
// checks who is asking, and delegates to the components. It keeps no state
// of its own.
type Service struct {
	Deps
	validate *validator.Validate
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.Notifier == nil {
		d.Notifier = notify.Noop{}
	}
	if d.Events == nil {
		d.Events = events.NewEmitter(nil)
	}
	return &Service{
		Deps:     d,
		validate: newValidator(),
		tracer:   tracing.Tracer("swimslot/scheduling"),
		now:      time.Now,
	}
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "scheduling."+op, trace.WithAttributes(attrs...))
}

// finish closes the span and counts rejected requests by kind.
func (s *Service) finish(span trace.Span, op string, err error) {
	defer span.End()
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	kind := string(apperr.KindOf(err))
	switch {
	case errors.Is(err, ErrForbidden):
		kind = "forbidden"
	case kind == "":
		kind = "internal"
	}
	metrics.RecordRejection(op, kind)
}

func (s *Service) authorizeSwimmer(actor Actor, sw *swimmer.Swimmer) error {
	if actor.IsStaff() || sw.ParentID == actor.UserID {
		return nil
	}
	return ErrForbidden
}

func (s *Service) authorizeBooking(actor Actor, b *booking.Booking) error {
	if actor.IsStaff() || b.ParentID == actor.UserID {
		return nil
	}
	return ErrForbidden
}

func requireStaff(actor Actor) error {
	if actor.IsStaff() {
		return nil
	}
	return ErrForbidden
}

func (s *Service) CreateBooking(ctx context.Context, actor Actor, req CreateBookingRequest) (b *booking.Booking, err error) {
	ctx, span := s.start(ctx, "create_booking",
		attribute.String("session_id", req.SessionID),
		attribute.String("swimmer_id", req.SwimmerID),
	)
	defer func() { s.finish(span, "create_booking", err) }()

	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	if req.Kind == "" {
		req.Kind = booking.KindLesson
	}

	sw, err := s.Swimmers.GetSwimmer(ctx, req.SwimmerID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeSwimmer(actor, sw); err != nil {
		return nil, err
	}

	sess, err := s.Sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.HasStarted(s.now()) {
		return nil, apperr.Validation("session %s has already started", sess.ID)
	}

	b, err = s.Ledger.Create(ctx, booking.CreateParams{
		SessionID: req.SessionID,
		SwimmerID: sw.ID,
		ParentID:  sw.ParentID,
		Kind:      req.Kind,
		Notes:     req.Notes,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking(string(b.BookingType))
	s.Events.Emit(ctx, events.BookingCreated, bookingEvent{
		BookingID: b.ID,
		SessionID: b.SessionID,
		SwimmerID: b.SwimmerID,
		Kind:      string(b.BookingType),
	})
	return b, nil
}

func (s *Service) GetBooking(ctx context.Context, actor Actor, bookingID string) (b *booking.Booking, err error) {
	ctx, span := s.start(ctx, "get_booking", attribute.String("booking_id", bookingID))
	defer func() { s.finish(span, "get_booking", err) }()

	b, err = s.Ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeBooking(actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ListSwimmerBookings(ctx context.Context, actor Actor, swimmerID string) (out []booking.BookingWithSession, err error) {
	ctx, span := s.start(ctx, "list_swimmer_bookings", attribute.String("swimmer_id", swimmerID))
	defer func() { s.finish(span, "list_swimmer_bookings", err) }()

	sw, err := s.Swimmers.GetSwimmer(ctx, swimmerID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeSwimmer(actor, sw); err != nil {
		return nil, err
	}
	return s.Ledger.ListBySwimmer(ctx, swimmerID)
}

func (s *Service) ListAvailableSessions(ctx context.Context, q AvailableSessionsQuery) (out []session.Session, err error) {
	ctx, span := s.start(ctx, "list_available_sessions")
	defer func() { s.finish(span, "list_available_sessions", err) }()

	if err := validateStruct(s.validate, q); err != nil {
		return nil, err
	}
	if q.To.IsZero() {
		q.To = q.From.Add(defaultAvailabilityRange)
	}

	return s.Sessions.FindAvailable(ctx, q.From, q.To, session.Filter{
		InstructorID: q.InstructorID,
		Location:     q.Location,
		SessionType:  q.SessionType,
	})
}

func (s *Service) CreateSession(ctx context.Context, actor Actor, req session.CreateRequest) (sess *session.Session, err error) {
	ctx, span := s.start(ctx, "create_session")
	defer func() { s.finish(span, "create_session", err) }()

	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	return s.Sessions.Create(ctx, req)
}

func (s *Service) SetBookingStatus(ctx context.Context, actor Actor, bookingID string, req SetStatusRequest) (b *booking.Booking, err error) {
	ctx, span := s.start(ctx, "set_booking_status",
		attribute.String("booking_id", bookingID),
		attribute.String("status", string(req.Status)),
	)
	defer func() { s.finish(span, "set_booking_status", err) }()

	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	b, err = s.Ledger.SetStatus(ctx, bookingID, req.Status)
	if err != nil {
		return nil, err
	}

	s.Events.Emit(ctx, events.BookingStatusChanged, bookingEvent{
		BookingID: b.ID,
		SessionID: b.SessionID,
		SwimmerID: b.SwimmerID,
		Status:    string(b.Status),
	})
	return b, nil
}

func (s *Service) RescheduleBooking(ctx context.Context, actor Actor, bookingID string, req RescheduleRequest) (res *reschedule.Result, err error) {
	ctx, span := s.start(ctx, "reschedule_booking",
		attribute.String("booking_id", bookingID),
		attribute.String("new_session_id", req.NewSessionID),
	)
	defer func() { s.finish(span, "reschedule_booking", err) }()

	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	b, err := s.Ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeBooking(actor, b); err != nil {
		return nil, err
	}

	target, err := s.Sessions.Get(ctx, req.NewSessionID)
	if err != nil {
		return nil, err
	}
	if target.HasStarted(s.now()) {
		return nil, apperr.Validation("session %s has already started", target.ID)
	}

	res, err = s.Reschedules.Reschedule(ctx, bookingID, req.NewSessionID, req.NotifyParent)
	if err != nil {
		return nil, err
	}

	s.Events.Emit(ctx, events.BookingRescheduled, bookingEvent{
		BookingID:     res.Booking.ID,
		SessionID:     res.Booking.SessionID,
		SwimmerID:     res.Booking.SwimmerID,
		FromSessionID: b.SessionID,
	})
	return res, nil
}

func (s *Service) ChangeInstructor(ctx context.Context, actor Actor, bookingID string, req ChangeInstructorRequest) (res *instructor.Result, err error) {
	ctx, span := s.start(ctx, "change_instructor",
		attribute.String("booking_id", bookingID),
		attribute.String("instructor_id", req.InstructorID),
		attribute.Bool("apply_to_future", req.ApplyToFuture),
	)
	defer func() { s.finish(span, "change_instructor", err) }()

	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	res, err = s.Reassigner.ChangeInstructor(ctx, bookingID, req.InstructorID, req.Reason, req.ApplyToFuture)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("cascaded", len(res.Cascaded)),
		attribute.Int("cascade_failures", len(res.Failures)),
	)

	if req.NotifyParent {
		s.notifyAsync(res.Booking.ID, s.Notifier.SendInstructorChangeNotice)
	}
	s.Events.Emit(ctx, events.BookingInstructorChanged, bookingEvent{
		BookingID:    res.Booking.ID,
		SessionID:    res.Session.ID,
		SwimmerID:    res.Booking.SwimmerID,
		InstructorID: req.InstructorID,
		Cascaded:     res.Cascaded,
	})
	return res, nil
}

func (s *Service) notifyAsync(bookingID string, send func(ctx context.Context, bookingID string) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), noticeTimeout)
		defer cancel()

		if err := send(ctx, bookingID); err != nil {
			logger.Warn("parent notice failed", "booking_id", bookingID, "error", err)
		}
	}()
}

type bookingEvent struct {
	BookingID     string   `json:"booking_id"`
	SessionID     string   `json:"session_id"`
	SwimmerID     string   `json:"swimmer_id"`
	Kind          string   `json:"booking_type,omitempty"`
	Status        string   `json:"status,omitempty"`
	FromSessionID string   `json:"from_session_id,omitempty"`
	InstructorID  string   `json:"instructor_id,omitempty"`
	Cascaded      []string `json:"cascaded_session_ids,omitempty"`
	Late          *bool    `json:"late,omitempty"`
	Source        string   `json:"cancel_source,omitempty"`
}
