package user

import (
	"context"

	"swimslot/internal/apperr"
	"swimslot/internal/db"
)

type repository struct {
	store *db.Store
}

func NewRepository(store *db.Store) Repository {
	return &repository{store: store}
}

func (r *repository) Create(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (id, full_name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	return r.store.Exec(ctx, "profile.create", func(ctx context.Context, ex db.Executor) error {
		_, err := ex.ExecContext(ctx, ex.Rebind(query), p.ID, p.FullName, p.Email, p.Role, p.CreatedAt)
		return err
	})
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	query := `
		SELECT id, full_name, email, role, created_at
		FROM profiles
		WHERE email = ?
	`

	return r.findOne(ctx, "profile.find_by_email", query, email)
}

func (r *repository) FindByID(ctx context.Context, id string) (*Profile, error) {
	query := `
		SELECT id, full_name, email, role, created_at
		FROM profiles
		WHERE id = ?
	`

	return r.findOne(ctx, "profile.find_by_id", query, id)
}

func (r *repository) findOne(ctx context.Context, op, query string, arg string) (*Profile, error) {
	return db.Call(ctx, r.store, op, func(ctx context.Context, ex db.Executor) (*Profile, error) {
		var p Profile
		if err := ex.GetContext(ctx, &p, ex.Rebind(query), arg); err != nil {
			if db.IsNoRows(err) {
				return nil, apperr.NotFound("profile %s not found", arg)
			}
			return nil, err
		}
		return &p, nil
	})
}

func (r *repository) HasRole(ctx context.Context, id, role string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM profiles WHERE id = ? AND role = ?)`

	return db.Call(ctx, r.store, "profile.has_role", func(ctx context.Context, ex db.Executor) (bool, error) {
		return db.Exists(ctx, ex, query, id, role)
	})
}
