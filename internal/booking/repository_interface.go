package booking

import (
	"context"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	HasActiveBooking(ctx context.Context, sessionID, swimmerID string) (bool, error)
	CompareAndSetStatus(ctx context.Context, id string, from, to Status, at time.Time) (*Booking, error)
	MarkCancelled(ctx context.Context, id string, meta CancelMeta) (*Booking, error)
	MoveToSession(ctx context.Context, id, fromSessionID, toSessionID string, at time.Time) (*Booking, error)
	ListBySwimmer(ctx context.Context, swimmerID string) ([]BookingWithSession, error)
	FindFutureSeries(ctx context.Context, q SeriesQuery) ([]SeriesEntry, error)
}
