package email

import (
	"context"
	"fmt"

	"swimslot/internal/booking"
	"swimslot/internal/session"
	"swimslot/internal/swimmer"
	"swimslot/internal/user"
)

const (
	TypeCancellation     = "cancellation"
	TypeReschedule       = "reschedule"
	TypeInstructorChange = "instructor_change"
)

const timeLayout = "Mon Jan 2, 2006 at 3:04 PM MST"

type BookingReader interface {
	Get(ctx context.Context, id string) (*booking.Booking, error)
}

type SessionReader interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

type SwimmerReader interface {
	GetSwimmer(ctx context.Context, id string) (*swimmer.Swimmer, error)
}

type ProfileReader interface {
	FindByID(ctx context.Context, id string) (*user.Profile, error)
}

type mailer interface {
	Send(ctx context.Context, to, name, emailType, subject, body string) error
}

// Notifier turns booking changes into parent emails on the queue.
type Notifier struct {
	mail     mailer
	bookings BookingReader
	sessions SessionReader
	swimmers SwimmerReader
	profiles ProfileReader
}

func NewNotifier(mail *Service, bookings BookingReader, sessions SessionReader, swimmers SwimmerReader, profiles ProfileReader) *Notifier {
	return &Notifier{
		mail:     mail,
		bookings: bookings,
		sessions: sessions,
		swimmers: swimmers,
		profiles: profiles,
	}
}

type notice struct {
	booking    *booking.Booking
	session    *session.Session
	swimmer    *swimmer.Swimmer
	parent     *user.Profile
	instructor string
}

func (n *Notifier) load(ctx context.Context, bookingID string) (*notice, error) {
	b, err := n.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s, err := n.sessions.Get(ctx, b.SessionID)
	if err != nil {
		return nil, err
	}
	sw, err := n.swimmers.GetSwimmer(ctx, b.SwimmerID)
	if err != nil {
		return nil, err
	}
	parent, err := n.profiles.FindByID(ctx, b.ParentID)
	if err != nil {
		return nil, err
	}

	instructor := "TBD"
	if s.InstructorID != nil {
		if p, err := n.profiles.FindByID(ctx, *s.InstructorID); err == nil {
			instructor = p.FullName
		}
	}

	return &notice{booking: b, session: s, swimmer: sw, parent: parent, instructor: instructor}, nil
}

func (n *Notifier) SendCancellationNotice(ctx context.Context, bookingID string) error {
	nt, err := n.load(ctx, bookingID)
	if err != nil {
		return err
	}

	reason := ""
	if nt.booking.CancelReason != nil {
		reason = "\nReason: " + *nt.booking.CancelReason
	}

	subject := "Lesson Cancelled - " + nt.swimmer.FullName()
	body := fmt.Sprintf(`Hi %s,

The following session for %s has been cancelled:

When: %s
Location: %s%s

- Swim School Team`, nt.parent.FullName, nt.swimmer.FirstName,
		nt.session.StartTime.Format(timeLayout), nt.session.Location, reason)

	return n.mail.Send(ctx, nt.parent.Email, nt.parent.FullName, TypeCancellation, subject, body)
}

func (n *Notifier) SendRescheduleNotice(ctx context.Context, bookingID string) error {
	nt, err := n.load(ctx, bookingID)
	if err != nil {
		return err
	}

	subject := "Lesson Rescheduled - " + nt.swimmer.FullName()
	body := fmt.Sprintf(`Hi %s,

%s's lesson has been moved to a new time:

When: %s
Location: %s
Instructor: %s

- Swim School Team`, nt.parent.FullName, nt.swimmer.FirstName,
		nt.session.StartTime.Format(timeLayout), nt.session.Location, nt.instructor)

	return n.mail.Send(ctx, nt.parent.Email, nt.parent.FullName, TypeReschedule, subject, body)
}

func (n *Notifier) SendInstructorChangeNotice(ctx context.Context, bookingID string) error {
	nt, err := n.load(ctx, bookingID)
	if err != nil {
		return err
	}

	subject := "Instructor Update - " + nt.swimmer.FullName()
	body := fmt.Sprintf(`Hi %s,

%s's lesson on %s at %s will now be taught by %s.

- Swim School Team`, nt.parent.FullName, nt.swimmer.FirstName,
		nt.session.StartTime.Format(timeLayout), nt.session.Location, nt.instructor)

	return n.mail.Send(ctx, nt.parent.Email, nt.parent.FullName, TypeInstructorChange, subject, body)
}
