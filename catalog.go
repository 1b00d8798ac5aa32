package privilege

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/integrahub/privilege/logger"
)

// ============================================================================
// ROLE CATALOG
// ============================================================================

// RoleSource persists role definitions. Saving always writes the whole list:
// role edits can shift cross-role revoke semantics in ways too subtle to
// patch one role at a time, so the catalog is only ever replaced wholesale.
type RoleSource interface {
	LoadRoles(ctx context.Context) ([]RoleDef, error)
	SaveRoles(ctx context.Context, defs []RoleDef) error
}

// RoleSnapshot is one immutable generation of the compiled catalog. An
// evaluation pins the snapshot it started with; a concurrent reload never
// changes what an in-flight decision sees.
type RoleSnapshot struct {
	roles map[string]*Role
}

// Get returns the compiled role, or nil when the id is unknown.
func (s *RoleSnapshot) Get(roleID string) *Role {
	if s == nil {
		return nil
	}
	return s.roles[roleID]
}

// Len reports how many roles the snapshot holds.
func (s *RoleSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.roles)
}

var emptySnapshot = &RoleSnapshot{roles: map[string]*Role{}}

// RoleCatalog owns the process-wide compiled role set as a single atomically
// swappable snapshot. Reads never lock; Reload builds a complete replacement
// and publishes it in one store, so readers never observe a half-updated
// catalog. Concurrent reloads are resolved by last-store-wins, which is
// acceptable because role definitions change rarely.
type RoleCatalog struct {
	source RoleSource
	log    logger.Logger
	snap   atomic.Pointer[RoleSnapshot]
}

func NewRoleCatalog(source RoleSource, log logger.Logger) *RoleCatalog {
	if log == nil {
		log = logger.NewNullLogger()
	}
	c := &RoleCatalog{source: source, log: log}
	c.snap.Store(emptySnapshot)
	return c
}

// Current returns the live snapshot. Callers that make several role lookups
// for one decision should hold on to the returned value.
func (c *RoleCatalog) Current() *RoleSnapshot {
	return c.snap.Load()
}

// Get resolves a role against the live snapshot.
func (c *RoleCatalog) Get(roleID string) *Role {
	return c.Current().Get(roleID)
}

// Reload fetches the full role list from the source, compiles every
// expression, and publishes the result as the new snapshot. A role whose
// patterns do not parse is left out entirely: dropping just the bad
// expression could widen privilege when the expression sat in a revoke list,
// while dropping the whole role can only narrow it.
func (c *RoleCatalog) Reload(ctx context.Context) error {
	defs, err := c.source.LoadRoles(ctx)
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}

	roles := make(map[string]*Role, len(defs))
	for _, def := range defs {
		role, err := compileRole(def)
		if err != nil {
			c.log.Error("skipping role with invalid privilege pattern", "role", def.ID, "error", err.Error())
			continue
		}
		roles[def.ID] = role
	}

	c.snap.Store(&RoleSnapshot{roles: roles})
	c.log.Info("role catalog reloaded", "roles", len(roles))
	return nil
}

func compileRole(def RoleDef) (*Role, error) {
	grant, err := ParseExpressions(def.Grant)
	if err != nil {
		return nil, fmt.Errorf("role %s grant: %w", def.ID, err)
	}
	revoke, err := ParseExpressions(def.Revoke)
	if err != nil {
		return nil, fmt.Errorf("role %s revoke: %w", def.ID, err)
	}
	return &Role{ID: def.ID, Title: def.Title, Grant: grant, Revoke: revoke}, nil
}
