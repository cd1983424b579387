package scheduling

import (
	"time"

	"swimslot/internal/booking"
	"swimslot/internal/session"
	"swimslot/internal/user"
)

// Actor is the authenticated caller. Parents may only act on their own
// swimmers; admin and staff may act on anyone.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsStaff() bool {
	return user.IsStaffRole(a.Role)
}

func (a Actor) cancelSource() booking.CancelSource {
	if a.IsStaff() {
		return booking.CancelSourceAdmin
	}
	return booking.CancelSourceParent
}

type CreateBookingRequest struct {
	SessionID string       `json:"session_id" validate:"required"`
	SwimmerID string       `json:"swimmer_id" validate:"required"`
	Kind      booking.Kind `json:"booking_type" validate:"omitempty,oneof=lesson assessment floating"`
	Notes     *string      `json:"notes" validate:"omitempty,max=1000"`
}

type CancelBookingRequest struct {
	Reason         string  `json:"reason" validate:"required,notblank,max=500"`
	MarkFlexible   bool    `json:"mark_flexible_swimmer"`
	FlexibleReason string  `json:"flexible_swimmer_reason" validate:"max=500"`
	AdminNotes     *string `json:"admin_notes" validate:"omitempty,max=1000"`
	NotifyParent   bool    `json:"notify_parent"`
}

type RescheduleRequest struct {
	NewSessionID string `json:"new_session_id" validate:"required"`
	NotifyParent bool   `json:"notify_parent"`
}

type ChangeInstructorRequest struct {
	InstructorID  string `json:"instructor_id" validate:"required"`
	Reason        string `json:"reason" validate:"max=500"`
	ApplyToFuture bool   `json:"apply_to_future"`
	NotifyParent  bool   `json:"notify_parent"`
}

type SetStatusRequest struct {
	Status booking.Status `json:"status" validate:"required,oneof=confirmed completed cancelled no_show"`
}

// AvailableSessionsQuery defaults To to one week after From.
type AvailableSessionsQuery struct {
	From         time.Time    `form:"from" time_format:"2006-01-02T15:04:05Z07:00" validate:"required"`
	To           time.Time    `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	InstructorID string       `form:"instructor_id"`
	Location     string       `form:"location"`
	SessionType  session.Type `form:"session_type" validate:"omitempty,oneof=lesson assessment"`
}

const defaultAvailabilityRange = 7 * 24 * time.Hour
