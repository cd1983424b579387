package booking

import "time"

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var validTransitions = map[Status][]Status{
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s.IsValid() && len(validTransitions[s]) == 0
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// RequiresStartedSession reports whether moving into s is only allowed once
// the session has begun.
func (s Status) RequiresStartedSession() bool {
	return s == StatusCompleted || s == StatusNoShow
}

type Kind string

const (
	KindLesson     Kind = "lesson"
	KindAssessment Kind = "assessment"
	KindFloating   Kind = "floating"
)

func (k Kind) IsValid() bool {
	return k == KindLesson || k == KindAssessment || k == KindFloating
}

type CancelSource string

const (
	CancelSourceParent CancelSource = "parent"
	CancelSourceAdmin  CancelSource = "admin"
)

type Booking struct {
	ID           string        `db:"id" json:"id"`
	SessionID    string        `db:"session_id" json:"session_id"`
	SwimmerID    string        `db:"swimmer_id" json:"swimmer_id"`
	ParentID     string        `db:"parent_id" json:"parent_id"`
	Status       Status        `db:"status" json:"status"`
	BookingType  Kind          `db:"booking_type" json:"booking_type"`
	Notes        *string       `db:"notes" json:"notes,omitempty"`
	CancelReason *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelSource *CancelSource `db:"cancel_source" json:"cancel_source,omitempty"`
	CanceledAt   *time.Time    `db:"canceled_at" json:"canceled_at,omitempty"`
	CanceledBy   *string       `db:"canceled_by" json:"canceled_by,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

type BookingWithSession struct {
	Booking
	SessionStart time.Time `db:"session_start" json:"session_start"`
	SessionEnd   time.Time `db:"session_end" json:"session_end"`
	Location     string    `db:"location" json:"location"`
	InstructorID *string   `db:"instructor_id" json:"instructor_id"`
}

type CreateParams struct {
	SessionID string
	SwimmerID string
	ParentID  string
	Kind      Kind
	Notes     *string
}

// CancelMeta describes a cancellation. SessionID is the session the caller
// saw the booking in; the cancel is refused if the booking has since moved.
type CancelMeta struct {
	SessionID string
	Reason    string
	Source    CancelSource
	By        string
	At        time.Time
}

// SeriesQuery selects the future confirmed lessons of one swimmer taught by
// InstructorID. A nil InstructorID matches sessions still marked TBD.
type SeriesQuery struct {
	SwimmerID        string
	InstructorID     *string
	After            time.Time
	ExcludeBookingID string
}

type SeriesEntry struct {
	BookingID string    `db:"booking_id"`
	SessionID string    `db:"session_id"`
	StartTime time.Time `db:"start_time"`
}
