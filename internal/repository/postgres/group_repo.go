// internal/repository/postgres/group_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"memoriza-service/internal/domain/auth"
	xerrors "memoriza-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

type GroupRepository struct {
	db *DB
}

func NewGroupRepository(db *DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// GetGroup loads a permission group with its module grants. Granted actions
// are stored as a text array and come back as {action: true}.
func (r *GroupRepository) GetGroup(ctx context.Context, id int64) (*auth.PermissionGroup, error) {
	g := &auth.PermissionGroup{ID: strconv.FormatInt(id, 10)}

	err := r.db.Pool().QueryRow(ctx, `SELECT name FROM permission_groups WHERE id = $1`, id).Scan(&g.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}

	rows, err := r.db.Pool().Query(ctx, `
		SELECT module, actions
		FROM group_permissions
		WHERE group_id = $1
		ORDER BY module
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load group permissions: %w", err)
	}
	defer rows.Close()

	g.Permissions = []auth.ModulePermission{}
	for rows.Next() {
		var module string
		var actions []string
		if err := rows.Scan(&module, pq.Array(&actions)); err != nil {
			return nil, fmt.Errorf("failed to scan group permission: %w", err)
		}

		granted := make(map[string]any, len(actions))
		for _, a := range actions {
			granted[a] = true
		}
		g.Permissions = append(g.Permissions, auth.ModulePermission{Module: module, Actions: granted})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group permissions: %w", err)
	}

	return g, nil
}

// SaveGroup creates or replaces a group and all of its grants
func (r *GroupRepository) SaveGroup(ctx context.Context, g *auth.PermissionGroup) error {
	id, err := strconv.ParseInt(g.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: group id %q", xerrors.ErrInvalidInput, g.ID)
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO permission_groups (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, id, g.Name); err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM group_permissions WHERE group_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear group permissions: %w", err)
	}

	for _, p := range g.Permissions {
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_permissions (group_id, module, actions) VALUES ($1, $2, $3)`,
			id, p.Module, pq.Array(grantedActions(p.Actions)),
		); err != nil {
			return fmt.Errorf("failed to save permission %s: %w", p.Module, err)
		}
	}

	return tx.Commit(ctx)
}

func grantedActions(actions map[string]any) []string {
	out := make([]string, 0, len(actions))
	for name, v := range actions {
		if auth.Truthy(v) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
