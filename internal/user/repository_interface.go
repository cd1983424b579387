package user

import "context"

type Repository interface {
	Create(ctx context.Context, p *Profile) error
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	FindByID(ctx context.Context, id string) (*Profile, error)
	HasRole(ctx context.Context, id, role string) (bool, error)
}
