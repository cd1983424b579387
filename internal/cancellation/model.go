package cancellation

import "time"

type Type string

const (
	TypeSingle     Type = "single"
	TypeAssessment Type = "assessment"
)

const DefaultFlexibleReason = "Late cancellation - admin marked"

// Record is the analytics row written for every cancellation.
type Record struct {
	ID                      string    `db:"id" json:"id"`
	BookingID               string    `db:"booking_id" json:"booking_id"`
	SessionID               string    `db:"session_id" json:"session_id"`
	SwimmerID               string    `db:"swimmer_id" json:"swimmer_id"`
	ParentID                string    `db:"parent_id" json:"parent_id"`
	CanceledBy              *string   `db:"canceled_by" json:"canceled_by,omitempty"`
	CancellationType        Type      `db:"cancellation_type" json:"cancellation_type"`
	SessionStartTime        time.Time `db:"session_start_time" json:"session_start_time"`
	InstructorID            *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	HoursBeforeSession      float64   `db:"hours_before_session" json:"hours_before_session"`
	WasLateCancellation     bool      `db:"was_late_cancellation" json:"was_late_cancellation"`
	CancelReason            string    `db:"cancel_reason" json:"cancel_reason"`
	CancelSource            string    `db:"cancel_source" json:"cancel_source"`
	AdminNotes              *string   `db:"admin_notes" json:"admin_notes,omitempty"`
	MarkedFlexibleSwimmer   bool      `db:"marked_flexible_swimmer" json:"marked_flexible_swimmer"`
	SwimmerHasFundingSource bool      `db:"swimmer_has_funding_source" json:"swimmer_has_funding_source"`
	CreatedFloatingSession  bool      `db:"created_floating_session" json:"created_floating_session"`
	FloatingSessionID       *string   `db:"floating_session_id" json:"floating_session_id,omitempty"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
}

type FloatingStatus string

const (
	FloatingAvailable FloatingStatus = "available"
	FloatingClaimed   FloatingStatus = "claimed"
	FloatingExpired   FloatingStatus = "expired"
)

// FloatingSession is a released recurring place other swimmers may claim
// until the original session starts.
type FloatingSession struct {
	ID                string         `db:"id" json:"id"`
	OriginalSessionID string         `db:"original_session_id" json:"original_session_id"`
	OriginalBookingID string         `db:"original_booking_id" json:"original_booking_id"`
	AvailableUntil    time.Time      `db:"available_until" json:"available_until"`
	MonthYear         string         `db:"month_year" json:"month_year"`
	Status            FloatingStatus `db:"status" json:"status"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
}
