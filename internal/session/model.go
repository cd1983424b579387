package session

import "time"

type Type string

const (
	TypeLesson     Type = "lesson"
	TypeAssessment Type = "assessment"
)

func (t Type) IsValid() bool {
	return t == TypeLesson || t == TypeAssessment
}

// Session is a bookable time slot. InstructorID is nil while the instructor
// is still to be decided.
type Session struct {
	ID           string    `db:"id" json:"id"`
	StartTime    time.Time `db:"start_time" json:"start_time"`
	EndTime      time.Time `db:"end_time" json:"end_time"`
	Location     string    `db:"location" json:"location"`
	InstructorID *string   `db:"instructor_id" json:"instructor_id"`
	Capacity     int       `db:"capacity" json:"capacity"`
	SessionType  Type      `db:"session_type" json:"session_type"`
	BookingCount int       `db:"booking_count" json:"booking_count"`
	IsRecurring  bool      `db:"is_recurring" json:"is_recurring"`
	BatchID      *string   `db:"batch_id" json:"batch_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (s *Session) Available() int {
	if s.BookingCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.BookingCount
}

func (s *Session) IsFull() bool {
	return s.BookingCount >= s.Capacity
}

func (s *Session) HasStarted(now time.Time) bool {
	return !now.Before(s.StartTime)
}

func (s *Session) InstructorIs(id *string) bool {
	if s.InstructorID == nil || id == nil {
		return s.InstructorID == nil && id == nil
	}
	return *s.InstructorID == *id
}

// Filter narrows FindAvailable. Empty fields match everything.
type Filter struct {
	InstructorID string
	Location     string
	SessionType  Type
}

type CreateRequest struct {
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Location     string    `json:"location" validate:"required"`
	InstructorID *string   `json:"instructor_id" validate:"omitempty,uuid"`
	Capacity     int       `json:"capacity" validate:"required,min=1"`
	SessionType  Type      `json:"session_type" validate:"required,oneof=lesson assessment"`
	IsRecurring  bool      `json:"is_recurring"`
	BatchID      *string   `json:"batch_id"`
}
