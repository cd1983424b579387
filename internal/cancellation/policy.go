package cancellation

import (
	"math"
	"time"

	"swimslot/internal/booking"
	"swimslot/internal/session"
)

const DefaultLateWindow = 24 * time.Hour

// Policy decides the consequences of a cancellation. It performs no I/O.
type Policy struct {
	LateWindow time.Duration
	// BlockParentLateCancel refuses parent-initiated cancellations inside the
	// late window; staff can still cancel.
	BlockParentLateCancel bool
}

func NewPolicy(lateWindow time.Duration, blockParentLate bool) Policy {
	if lateWindow <= 0 {
		lateWindow = DefaultLateWindow
	}
	return Policy{LateWindow: lateWindow, BlockParentLateCancel: blockParentLate}
}

type Options struct {
	Source          booking.CancelSource
	RequestFlexible bool
	SwimmerFlexible bool
}

type Decision struct {
	IsLate                bool
	HoursBeforeSession    float64
	RecommendFlexibleFlag bool
	FlexibleAlreadySet    bool
	CreateFloatingSession bool
	Blocked               bool
	CancellationType      Type
}

// Evaluate classifies a cancellation made at now. Late means strictly less
// than LateWindow before the session starts.
func (p Policy) Evaluate(b *booking.Booking, s *session.Session, now time.Time, opts Options) Decision {
	window := p.LateWindow
	if window <= 0 {
		window = DefaultLateWindow
	}

	until := s.StartTime.Sub(now)
	d := Decision{
		IsLate:             until < window,
		HoursBeforeSession: math.Round(until.Hours()*100) / 100,
		FlexibleAlreadySet: opts.SwimmerFlexible,
		CancellationType:   TypeSingle,
	}

	d.RecommendFlexibleFlag = opts.RequestFlexible && !opts.SwimmerFlexible
	d.CreateFloatingSession = s.IsRecurring && now.Before(s.StartTime)
	d.Blocked = p.BlockParentLateCancel && d.IsLate && opts.Source == booking.CancelSourceParent

	if b.BookingType == booking.KindAssessment {
		d.CancellationType = TypeAssessment
	}

	return d
}
