package user

import "time"

const (
	RoleParent     = "parent"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
)

// Profile is a parent, instructor or staff member.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func IsStaffRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}
