package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oarkflow/squealx"

	"github.com/integrahub/privilege"
)

// SQLRoleSource persists role definitions in SQL (squealx), one row per role
// with the grant/revoke patterns stored as JSON. SaveRoles replaces the whole
// table so the stored catalog always matches one coherent generation.
type SQLRoleSource struct {
	db *squealx.DB
}

func NewSQLRoleSource(db *squealx.DB) *SQLRoleSource {
	return &SQLRoleSource{db: db}
}

func (s *SQLRoleSource) LoadRoles(ctx context.Context) ([]privilege.RoleDef, error) {
	q := `SELECT id, title, grant_json, revoke_json FROM roles ORDER BY id`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out := make([]privilege.RoleDef, 0)
	for r.Next() {
		var id, title, grantJSON, revokeJSON string
		if err := r.Scan(&id, &title, &grantJSON, &revokeJSON); err != nil {
			return nil, err
		}
		def := privilege.RoleDef{ID: id, Title: title}
		if err := json.Unmarshal([]byte(grantJSON), &def.Grant); err != nil {
			return nil, fmt.Errorf("role %s grant patterns: %w", id, err)
		}
		if err := json.Unmarshal([]byte(revokeJSON), &def.Revoke); err != nil {
			return nil, fmt.Errorf("role %s revoke patterns: %w", id, err)
		}
		out = append(out, def)
	}
	return out, nil
}

// LastUpdated reports when the stored catalog was last replaced, zero when
// the table is empty.
func (s *SQLRoleSource) LastUpdated(ctx context.Context) (time.Time, error) {
	r, err := s.db.NamedQueryContext(ctx, `SELECT MAX(updated_at) FROM roles`, map[string]any{})
	if err != nil {
		return time.Time{}, err
	}
	defer r.Close()
	if !r.Next() {
		return time.Time{}, nil
	}
	var raw any
	if err := r.Scan(&raw); err != nil {
		return time.Time{}, err
	}
	return scanTime(raw), nil
}

func (s *SQLRoleSource) SaveRoles(ctx context.Context, defs []privilege.RoleDef) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM roles`); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	now := time.Now()
	q := `INSERT INTO roles(id, title, grant_json, revoke_json, updated_at) VALUES(:id, :title, :grant_json, :revoke_json, :updated_at)`
	for _, def := range defs {
		grantJSON, _ := json.Marshal(def.Grant)
		revokeJSON, _ := json.Marshal(def.Revoke)
		_, err := s.db.NamedExecContext(ctx, q, map[string]any{
			"id":          def.ID,
			"title":       def.Title,
			"grant_json":  string(grantJSON),
			"revoke_json": string(revokeJSON),
			"updated_at":  now,
		})
		if err != nil {
			return fmt.Errorf("insert role %s: %w", def.ID, err)
		}
	}
	return nil
}
