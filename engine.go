package privilege

import (
	"context"
	"fmt"

	"github.com/integrahub/privilege/logger"
)

// ============================================================================
// ENGINE
// ============================================================================

// Engine is the privilege decision engine: the role catalog, the scope rule
// table, the evaluator and the escalation guard wired together. It decides;
// it never persists. Entity state and the principal are supplied per call.
type Engine struct {
	catalog *RoleCatalog
	dir     Directory
	eval    *Evaluator
	guard   *EscalationGuard
	signal  ChangeSignal
	log     logger.Logger

	rules    map[string]map[opKey]opHandler
	catchAll map[string]opHandler
}

type EngineOption func(*Engine) error

// WithLogger installs a Logger on the engine and its catalog.
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) error {
		if l == nil {
			return fmt.Errorf("logger is nil")
		}
		e.log = l
		return nil
	}
}

// WithChangeSignal installs the broadcast used to announce role edits made
// through SaveRole/RemoveRole to other nodes.
func WithChangeSignal(sig ChangeSignal) EngineOption {
	return func(e *Engine) error {
		e.signal = sig
		return nil
	}
}

func NewEngine(source RoleSource, dir Directory, opts ...EngineOption) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("role source is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory is required")
	}
	e := &Engine{
		dir: dir,
		log: logger.NewNullLogger(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.catalog = NewRoleCatalog(source, e.log)
	e.eval = NewEvaluator(e.catalog, dir)
	e.guard = NewEscalationGuard(dir)
	e.buildRuleTable()
	return e, nil
}

// Catalog exposes the engine's role catalog, mainly so callers can trigger
// the initial load and inspect the live snapshot.
func (e *Engine) Catalog() *RoleCatalog { return e.catalog }

// Reload replaces the role catalog snapshot from the role source.
func (e *Engine) Reload(ctx context.Context) error {
	return e.catalog.Reload(ctx)
}

// CheckPrivilege is the per-request gate. A nil Denial means the operation is
// allowed. A denial carries a stable code (NOT_LOGIN or NO_PRIV) plus a
// human-readable reason. Unrecognized operations and failed ownership
// lookups are returned as errors, not denials.
func (e *Engine) CheckPrivilege(ctx context.Context, p *Principal, method Method, category, item string, params Params) (*Denial, error) {
	if p == nil {
		return &Denial{Code: CodeNotLogin, Reason: reasonNotLoggedIn}, nil
	}

	handler := e.lookupRule(category, method, item)
	if handler == nil {
		return nil, unsupportedOperation(method, category, item)
	}

	rq := &request{
		principal: p,
		method:    method,
		category:  category,
		item:      item,
		params:    params,
		snap:      e.catalog.Current(),
		memo:      newOwnerMemo(),
	}

	v, err := handler(ctx, rq)
	if err != nil {
		return nil, err
	}
	if v.allowed {
		return nil, nil
	}
	reason := v.reason
	if reason == "" {
		reason = reasonNoPrivilege
	}
	e.log.Debug("privilege denied",
		"principal", p.ID, "method", string(method), "category", category, "item", item, "reason", reason)
	return &Denial{Code: CodeNoPrivilege, Reason: reason}, nil
}

// Evaluate exposes the bare evaluator for callers that already resolved an
// effective scope themselves.
func (e *Engine) Evaluate(ctx context.Context, p *Principal, method Method, category, item string, scope ScopeQuery, ignoreScope bool) (*Denial, error) {
	return e.eval.Evaluate(ctx, p, method, category, item, scope, ignoreScope)
}

// ValidateAssignment checks that a client-bound administrator is not handing
// out permissions beyond its own authority.
func (e *Engine) ValidateAssignment(ctx context.Context, assigningClientID string, perms []Permission) (*Denial, error) {
	return e.guard.ValidateAssignment(ctx, assigningClientID, perms)
}

// WatchRoleChanges subscribes to the roles-changed broadcast and reloads the
// catalog on every event until ctx is done. Reload failures are logged and
// the previous snapshot stays live.
func (e *Engine) WatchRoleChanges(ctx context.Context, sig ChangeSignal) error {
	events, err := sig.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe role changes: %w", err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				if err := e.catalog.Reload(ctx); err != nil {
					e.log.Error("role catalog reload failed", "error", err.Error())
				}
			}
		}
	}()
	return nil
}

// ============================================================================
// ROLE ADMINISTRATION
// ============================================================================

// SaveRole upserts one role definition: grant/revoke patterns are normalized,
// the whole catalog is persisted, the change is broadcast, and the local
// snapshot reloads.
func (e *Engine) SaveRole(ctx context.Context, def RoleDef) error {
	if def.ID == "" {
		return fmt.Errorf("role id is required")
	}
	def.Grant = NormalizeExpressions(def.Grant)
	def.Revoke = NormalizeExpressions(def.Revoke)
	if _, err := compileRole(def); err != nil {
		return err
	}

	defs, err := e.catalog.source.LoadRoles(ctx)
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	replaced := false
	for i := range defs {
		if defs[i].ID == def.ID {
			defs[i] = def
			replaced = true
			break
		}
	}
	if !replaced {
		defs = append(defs, def)
	}
	return e.storeRoles(ctx, defs)
}

// RemoveRole deletes a role definition; removing an unknown id is a no-op.
func (e *Engine) RemoveRole(ctx context.Context, roleID string) error {
	defs, err := e.catalog.source.LoadRoles(ctx)
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	kept := defs[:0]
	for _, d := range defs {
		if d.ID != roleID {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(defs) {
		return nil
	}
	return e.storeRoles(ctx, kept)
}

func (e *Engine) storeRoles(ctx context.Context, defs []RoleDef) error {
	if err := e.catalog.source.SaveRoles(ctx, defs); err != nil {
		return fmt.Errorf("save roles: %w", err)
	}
	if e.signal != nil {
		if err := e.signal.Publish(ctx); err != nil {
			e.log.Error("role change broadcast failed", "error", err.Error())
		}
	}
	return e.catalog.Reload(ctx)
}
