// Package notify defines how the scheduling core tells parents about changes
// to their bookings. Delivery is best effort: senders are called after the
// change has committed and their errors never undo it.
package notify

import (
	"context"
	"errors"
)

type Sender interface {
	SendCancellationNotice(ctx context.Context, bookingID string) error
	SendRescheduleNotice(ctx context.Context, bookingID string) error
	SendInstructorChangeNotice(ctx context.Context, bookingID string) error
}

type Noop struct{}

func (Noop) SendCancellationNotice(context.Context, string) error     { return nil }
func (Noop) SendRescheduleNotice(context.Context, string) error       { return nil }
func (Noop) SendInstructorChangeNotice(context.Context, string) error { return nil }

// Multi fans a notice out to every sender and joins their errors.
type Multi []Sender

func (m Multi) SendCancellationNotice(ctx context.Context, bookingID string) error {
	return m.each(func(s Sender) error { return s.SendCancellationNotice(ctx, bookingID) })
}

func (m Multi) SendRescheduleNotice(ctx context.Context, bookingID string) error {
	return m.each(func(s Sender) error { return s.SendRescheduleNotice(ctx, bookingID) })
}

func (m Multi) SendInstructorChangeNotice(ctx context.Context, bookingID string) error {
	return m.each(func(s Sender) error { return s.SendInstructorChangeNotice(ctx, bookingID) })
}

func (m Multi) each(fn func(Sender) error) error {
	var errs []error
	for _, s := range m {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
