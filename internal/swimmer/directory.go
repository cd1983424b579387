package swimmer

import (
	"context"
	"time"

	"swimslot/internal/apperr"
	"swimslot/internal/db"
)

// Directory is the narrow view of swimmer records the scheduling core may
// read and write.
type Directory interface {
	GetSwimmer(ctx context.Context, id string) (*Swimmer, error)
	SetFlexibleFlag(ctx context.Context, id string, flag bool, reason, setBy string) error
	ResetAssessmentStatus(ctx context.Context, id string) error
}

type directory struct {
	store *db.Store
	now   func() time.Time
}

func NewDirectory(store *db.Store) Directory {
	return &directory{store: store, now: time.Now}
}

func (d *directory) GetSwimmer(ctx context.Context, id string) (*Swimmer, error) {
	query := `
		SELECT id, parent_id, first_name, last_name, payment_type, funding_source_id,
			flexible_swimmer, flexible_swimmer_reason, flexible_swimmer_set_at,
			flexible_swimmer_set_by, assessment_status, created_at, updated_at
		FROM swimmers
		WHERE id = ?
	`

	return db.Call(ctx, d.store, "swimmer.get", func(ctx context.Context, ex db.Executor) (*Swimmer, error) {
		var s Swimmer
		if err := ex.GetContext(ctx, &s, ex.Rebind(query), id); err != nil {
			if db.IsNoRows(err) {
				return nil, apperr.NotFound("swimmer %s not found", id)
			}
			return nil, err
		}
		return &s, nil
	})
}

// SetFlexibleFlag records who changed the flag and why. Clearing the flag
// clears the metadata too.
func (d *directory) SetFlexibleFlag(ctx context.Context, id string, flag bool, reason, setBy string) error {
	query := `
		UPDATE swimmers
		SET flexible_swimmer = ?, flexible_swimmer_reason = ?, flexible_swimmer_set_at = ?,
			flexible_swimmer_set_by = ?, updated_at = ?
		WHERE id = ?
	`

	now := d.now().UTC()
	var (
		reasonArg, setByArg *string
		setAtArg            *time.Time
	)
	if flag {
		reasonArg, setAtArg = &reason, &now
		if setBy != "" {
			setByArg = &setBy
		}
	}

	return d.store.Exec(ctx, "swimmer.set_flexible", func(ctx context.Context, ex db.Executor) error {
		return execOne(ctx, ex, id, query, flag, reasonArg, setAtArg, setByArg, now, id)
	})
}

func (d *directory) ResetAssessmentStatus(ctx context.Context, id string) error {
	query := `
		UPDATE swimmers
		SET assessment_status = ?, updated_at = ?
		WHERE id = ?
	`

	return d.store.Exec(ctx, "swimmer.reset_assessment", func(ctx context.Context, ex db.Executor) error {
		return execOne(ctx, ex, id, query, AssessmentNotScheduled, d.now().UTC(), id)
	})
}

func execOne(ctx context.Context, ex db.Executor, id, query string, args ...interface{}) error {
	res, err := ex.ExecContext(ctx, ex.Rebind(query), args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("swimmer %s not found", id)
	}

	return nil
}
