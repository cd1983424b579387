package session

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	FindAvailable(ctx context.Context, from, to time.Time, f Filter) ([]Session, error)
	IncrementBookingCount(ctx context.Context, id string, at time.Time) (*Session, error)
	DecrementBookingCount(ctx context.Context, id string, at time.Time) (*Session, error)
	SetInstructor(ctx context.Context, id string, from, to *string, at time.Time) (*Session, error)
}
