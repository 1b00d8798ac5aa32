package privilege

import "context"

// ============================================================================
// PRIVILEGE EVALUATOR
// ============================================================================

// Denial reasons shared across the engine.
const (
	reasonNotLoggedIn         = "not logged in"
	reasonNoPrivilegeAssigned = "no privilege assigned"
	reasonNoPrivilege         = "no privilege to perform the action"
)

// Evaluator is the core decision function: given a principal's permission
// list, a requested operation and an effective scope, it decides allow or
// deny. It holds no per-request state; every call evaluates from scratch
// against the catalog snapshot current at the start of the call.
type Evaluator struct {
	catalog *RoleCatalog
	dir     Directory
}

func NewEvaluator(catalog *RoleCatalog, dir Directory) *Evaluator {
	return &Evaluator{catalog: catalog, dir: dir}
}

// Evaluate runs one complete decision. A nil Denial means the operation is
// allowed. ignoreScope answers "could any held role ever allow this" and is
// meant for the batch affordance probe only.
func (ev *Evaluator) Evaluate(ctx context.Context, p *Principal, method Method, category, item string, scope ScopeQuery, ignoreScope bool) (*Denial, error) {
	if p == nil {
		return &Denial{Code: CodeNotLogin, Reason: reasonNotLoggedIn}, nil
	}
	if len(p.Permissions) == 0 {
		return &Denial{Code: CodeNoPrivilege, Reason: reasonNoPrivilegeAssigned}, nil
	}
	ok, err := ev.satisfies(ctx, ev.catalog.Current(), p, method, category, item, scope, ignoreScope, newOwnerMemo())
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	return &Denial{Code: CodeNoPrivilege, Reason: reasonNoPrivilege}, nil
}

// satisfies is an OR across the principal's permissions, in list order: one
// satisfying permission authorizes the request even if every other permission
// would not. Grant/revoke composition happens inside a single role; a revoke
// in one role cannot veto a grant held through another.
func (ev *Evaluator) satisfies(ctx context.Context, snap *RoleSnapshot, p *Principal, method Method, category, item string, scope ScopeQuery, ignoreScope bool, memo *ownerMemo) (bool, error) {
	for _, perm := range p.Permissions {
		role := snap.Get(perm.Role)
		if role == nil {
			continue
		}
		if !role.Authorizes(method, category, item) {
			continue
		}
		if ignoreScope {
			return true, nil
		}
		if perm.ScopeType == "" {
			// Global grant.
			return true, nil
		}
		if scope.Type == "" {
			// The request asks for an unscoped capability; a scoped
			// permission cannot satisfy it.
			continue
		}
		if perm.ScopeType == scope.Type {
			if containsAll(perm.Scope, scope.IDs) {
				return true, nil
			}
			continue
		}
		if scope.Type == ScopeIntegration && perm.ScopeType == ScopeClient {
			// Hierarchy fallback: a client-scoped permission covers every
			// integration that client owns.
			owners, err := memo.ownersOf(ctx, ev.dir, scope.IDs)
			if err != nil {
				return false, err
			}
			covered := true
			for _, id := range scope.IDs {
				if !containsString(perm.Scope, owners[id]) {
					covered = false
					break
				}
			}
			if covered {
				return true, nil
			}
		}
	}
	return false, nil
}

func containsString(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsAll(list []string, wanted []string) bool {
	for _, w := range wanted {
		if !containsString(list, w) {
			return false
		}
	}
	return true
}
