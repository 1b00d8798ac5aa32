package privilege

// ============================================================================
// DOMAIN OBJECTS
// ============================================================================

// Principal is the already-authenticated actor a decision is made for. The
// caller reconstructs it per request (typically from its session store); the
// engine never fetches or caches principals itself.
type Principal struct {
	ID          string       `json:"id"`
	ClientID    string       `json:"clientId,omitempty"`
	Permissions []Permission `json:"permissions"`
}

// Permission binds a role to an optional scope. A permission without a scope
// type is global within whatever the role's grant and revoke lists allow.
type Permission struct {
	Role      string   `json:"role"`
	ScopeType string   `json:"type,omitempty"`
	Scope     []string `json:"scope,omitempty"`
}

// RoleDef is a role as persisted: grant and revoke privilege patterns in
// their raw string form. The catalog compiles these into Role values.
type RoleDef struct {
	ID     string   `json:"id" yaml:"id"`
	Title  string   `json:"title,omitempty" yaml:"title,omitempty"`
	Grant  []string `json:"grant,omitempty" yaml:"grant,omitempty"`
	Revoke []string `json:"revoke,omitempty" yaml:"revoke,omitempty"`
}

// Role is a compiled role definition. A role authorizes an operation when its
// grant list matches and its revoke list does not; a revoke match vetoes the
// grant no matter how specific the grant was.
type Role struct {
	ID     string
	Title  string
	Grant  []Expression
	Revoke []Expression
}

// Authorizes evaluates the role's grant/revoke lists for one operation.
func (r *Role) Authorizes(method Method, category, item string) bool {
	granted := false
	for _, expr := range r.Grant {
		if expr.Matches(method, category, item) {
			granted = true
			break
		}
	}
	if !granted {
		return false
	}
	for _, expr := range r.Revoke {
		if expr.Matches(method, category, item) {
			return false
		}
	}
	return true
}

// Scope type tokens used across the platform's ownership hierarchy.
const (
	ScopeClient      = "client"
	ScopeIntegration = "integration"
	ScopeApplication = "application"
)

// ScopeQuery is the effective scope a request is checked against, produced by
// the scope resolver per request and never persisted. An empty Type asks for
// an unscoped (global) capability.
type ScopeQuery struct {
	Type string
	IDs  []string
}

func scopeOf(scopeType string, ids ...string) ScopeQuery {
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		return ScopeQuery{}
	}
	return ScopeQuery{Type: scopeType, IDs: kept}
}

// Stable machine-readable denial codes surfaced to the API layer.
const (
	CodeNotLogin    = "NOT_LOGIN"
	CodeNoPrivilege = "NO_PRIV"
)

// Denial is the negative outcome of a privilege check: a stable code plus a
// human-readable reason. A nil *Denial means the operation is allowed.
type Denial struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (d *Denial) Error() string {
	return d.Code + ": " + d.Reason
}

// verdict is the internal decision type threaded through the per-category
// handlers. Reasons are composed into the returned value rather than
// accumulated in a shared buffer.
type verdict struct {
	allowed bool
	reason  string
}

var allowedVerdict = verdict{allowed: true}

func deny(reason string) verdict {
	return verdict{reason: reason}
}

// BatchItem is one entry of a batch affordance probe: a scope plus a set of
// named operations, each resolved to whether the principal's roles could ever
// allow it. A true here is a UI hint, not authorization for a concrete
// resource; only CheckPrivilege grants that.
type BatchItem struct {
	ScopeType  string          `json:"scopeType,omitempty"`
	Scope      []string        `json:"scope,omitempty"`
	Operations map[string]bool `json:"operations"`
}
