package privilege

import "context"

// ============================================================================
// ESCALATION GUARD
// ============================================================================

// EscalationGuard bounds what a client-bound administrator may assign to other
// principals. Application-scoped permissions are never assignable from inside
// a client, client-scoped permissions must point at the assigner's own client,
// and integration-scoped permissions must point at integrations that client
// owns. Permissions with an empty scope type pass through unchecked.
type EscalationGuard struct {
	dir Directory
}

func NewEscalationGuard(dir Directory) *EscalationGuard {
	return &EscalationGuard{dir: dir}
}

// ValidateAssignment reports whether the proposed permission list stays within
// the assigner's authority. A nil Denial means the assignment is acceptable.
func (g *EscalationGuard) ValidateAssignment(ctx context.Context, assigningClientID string, perms []Permission) (*Denial, error) {
	v, err := g.validate(ctx, assigningClientID, perms)
	if err != nil {
		return nil, err
	}
	if v.allowed {
		return nil, nil
	}
	return &Denial{Code: CodeNoPrivilege, Reason: v.reason}, nil
}

func (g *EscalationGuard) validate(ctx context.Context, assigningClientID string, perms []Permission) (verdict, error) {
	var owned []string
	ownedLoaded := false

	for _, perm := range perms {
		switch perm.ScopeType {
		case ScopeApplication:
			return deny("can not assign an application permission"), nil
		case ScopeClient:
			for _, id := range perm.Scope {
				if id != assigningClientID {
					return deny("can not assign other clients' permissions"), nil
				}
			}
		case ScopeIntegration:
			if !ownedLoaded {
				ids, err := g.dir.IntegrationsOfClient(ctx, assigningClientID)
				if err != nil {
					return verdict{}, &LookupError{Entity: "client integrations", ID: assigningClientID, Err: err}
				}
				owned = ids
				ownedLoaded = true
			}
			for _, id := range perm.Scope {
				if !containsString(owned, id) {
					return deny("can not assign integration permissions owned by another client"), nil
				}
			}
		}
	}
	return allowedVerdict, nil
}
