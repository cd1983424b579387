package instructor

import (
	"context"

	"swimslot/internal/user"
)

type Directory interface {
	InstructorExists(ctx context.Context, id string) (bool, error)
}

type profileDirectory struct {
	profiles user.Repository
}

// NewDirectory answers instructor lookups from the profiles table.
func NewDirectory(profiles user.Repository) Directory {
	return &profileDirectory{profiles: profiles}
}

func (d *profileDirectory) InstructorExists(ctx context.Context, id string) (bool, error) {
	return d.profiles.HasRole(ctx, id, user.RoleInstructor)
}
