package privilege

import (
	"context"
	"strings"
)

// ============================================================================
// SCOPE RESOLVER
// ============================================================================

// The resolver turns raw request parameters into the effective scope a
// requester is checked against. Each recognized operation has an entry in a
// rule table keyed by (category, method, item); categories whose operations
// all share one rule register a catch-all instead. A miss in both tables is
// an unsupported operation, which is a different failure class than a denial.

const (
	// Owner token marking code files that belong to the integration runtime
	// rather than to a user.
	codeOwnerIntegration = "integration"
	// Extension of integration-owned node code files; the integration id is
	// the filename with this extension stripped.
	nodeCodeExt = "node.js"
)

type opKey struct {
	method Method
	item   string
}

type opHandler func(ctx context.Context, rq *request) (verdict, error)

// request is the per-decision working state: the principal, the operation,
// the raw params, the pinned catalog snapshot and the ownership memo. It
// lives for exactly one CheckPrivilege call.
type request struct {
	principal *Principal
	method    Method
	category  string
	item      string
	params    Params
	snap      *RoleSnapshot
	memo      *ownerMemo
}

func (e *Engine) buildRuleTable() {
	pub := e.allowPublic
	global := e.checkGlobal

	e.rules = map[string]map[opKey]opHandler{
		"user": {
			{MethodPut, ""}:         e.checkSaveUser,
			{MethodPut, "role"}:     global,
			{MethodGet, ""}:         e.checkReadUser,
			{MethodGet, "id"}:       e.checkReadUser,
			{MethodGet, "role"}:     pub,
			{MethodDelete, "login"}: e.checkManageUser,
			{MethodDelete, "id"}:    e.checkManageUser,
			{MethodDelete, "role"}:  global,
		},
		"module": {
			{MethodPut, "java"}:      global,
			{MethodGet, "java"}:      global,
			{MethodGet, "nodejs"}:    global,
			{MethodGet, "id"}:        pub,
			{MethodGet, "encode"}:    pub,
			{MethodGet, "code"}:      e.checkReadCode,
			{MethodPost, "java"}:     global,
			{MethodPost, "nodejs"}:   global,
			{MethodPost, "code"}:     e.checkWriteCode,
			{MethodDelete, "java"}:   global,
			{MethodDelete, "nodejs"}: global,
			{MethodDelete, "code"}:   e.checkWriteCode,
		},
		"client": {
			{MethodPut, ""}:           e.checkClientScoped,
			{MethodPut, "table"}:      e.checkClientScoped,
			{MethodGet, ""}:           e.checkListClients,
			{MethodGet, "category"}:   global,
			{MethodGet, "id"}:         e.checkClientScoped,
			{MethodGet, "table"}:      e.checkClientScoped,
			{MethodGet, "connection"}: e.checkClientScoped,
			{MethodDelete, "table"}:   e.checkClientScoped,
			{MethodDelete, "id"}:      global,
		},
		"connection": {
			{MethodPut, ""}:           e.checkConnectionByClient,
			{MethodGet, ""}:           e.checkListConnections,
			{MethodGet, "id"}:         e.checkConnectionByClient,
			{MethodPost, "operation"}: e.checkConnectionByOwner,
			{MethodDelete, "id"}:      e.checkConnectionByOwner,
		},
		"application": {
			{MethodPut, ""}:            e.checkApplicationScoped,
			{MethodPut, "endpoint"}:    e.checkApplicationScoped,
			{MethodPut, "table"}:       e.checkApplicationScoped,
			{MethodGet, ""}:            pub,
			{MethodGet, "category"}:    pub,
			{MethodGet, "protocol"}:    pub,
			{MethodGet, "endpoint"}:    e.checkApplicationScoped,
			{MethodGet, "table"}:       e.checkApplicationScoped,
			{MethodGet, "id"}:          e.checkApplicationScoped,
			{MethodGet, "connection"}:  e.checkApplicationScoped,
			{MethodPost, "operation"}:  e.checkApplicationScoped,
			{MethodDelete, "id"}:       e.checkApplicationScoped,
			{MethodDelete, "endpoint"}: e.checkApplicationScoped,
			{MethodDelete, "table"}:    e.checkApplicationScoped,
		},
		"integration": {
			{MethodPut, ""}:           e.checkIntegrationFallback,
			{MethodPut, "table"}:      e.checkIntegrationFallback,
			{MethodGet, ""}:           e.checkListIntegrations,
			{MethodGet, "id"}:         e.checkIntegrationFallback,
			{MethodGet, "table"}:      e.checkIntegrationFallback,
			{MethodGet, "category"}:   pub,
			{MethodGet, "template"}:   pub,
			{MethodPost, "test"}:      e.checkIntegrationScoped,
			{MethodPost, "operation"}: e.checkIntegrationScoped,
			{MethodDelete, "id"}:      e.checkIntegrationScoped,
			{MethodDelete, "table"}:   e.checkIntegrationScoped,
		},
	}

	e.catchAll = map[string]opHandler{
		"transaction": e.checkTransaction,
		"cluster":     global,
	}
}

func (e *Engine) lookupRule(category string, method Method, item string) opHandler {
	if ops, ok := e.rules[category]; ok {
		if h, ok := ops[opKey{method, item}]; ok {
			return h
		}
		return nil
	}
	return e.catchAll[category]
}

// generalCheck runs the evaluator for the request's own operation against an
// effective scope, producing the standard denial reasons.
func (e *Engine) generalCheck(ctx context.Context, rq *request, scope ScopeQuery) (verdict, error) {
	return e.generalCheckAs(ctx, rq, rq.item, scope)
}

func (e *Engine) generalCheckAs(ctx context.Context, rq *request, item string, scope ScopeQuery) (verdict, error) {
	if len(rq.principal.Permissions) == 0 {
		return deny(reasonNoPrivilegeAssigned), nil
	}
	ok, err := e.eval.satisfies(ctx, rq.snap, rq.principal, rq.method, rq.category, item, scope, false, rq.memo)
	if err != nil {
		return verdict{}, err
	}
	if ok {
		return allowedVerdict, nil
	}
	return deny(reasonNoPrivilege), nil
}

func (e *Engine) allowPublic(context.Context, *request) (verdict, error) {
	return allowedVerdict, nil
}

func (e *Engine) checkGlobal(ctx context.Context, rq *request) (verdict, error) {
	return e.generalCheck(ctx, rq, ScopeQuery{})
}

// ---------------------------------------------------------------- user -----

// checkSaveUser covers "save user". Editing your own record bypasses scoping
// entirely, but may never touch your own permissions. Saving someone else is
// a client-scoped check, and a client-bound administrator assigning
// permissions additionally goes through the escalation guard.
func (e *Engine) checkSaveUser(ctx context.Context, rq *request) (verdict, error) {
	userID := rq.params.str("id")
	clientID := rq.params.str("clientId")

	if rq.principal.ID != "" && rq.principal.ID == userID {
		if rq.params.has("permissions") {
			return deny("can not update your own permissions"), nil
		}
		return allowedVerdict, nil
	}

	v, err := e.generalCheck(ctx, rq, scopeOf(ScopeClient, clientID))
	if err != nil || !v.allowed {
		return v, err
	}

	if perms := rq.params.permissionList("permissions"); rq.principal.ClientID != "" && len(perms) > 0 {
		return e.guard.validate(ctx, rq.principal.ClientID, perms)
	}
	return allowedVerdict, nil
}

// checkReadUser covers "get user" and "count/list users": any user may read
// inside their own client scope, without holding an explicit privilege.
func (e *Engine) checkReadUser(_ context.Context, rq *request) (verdict, error) {
	userID := rq.params.str("id")
	clientID := rq.params.str("clientId")
	cur := rq.principal.ClientID

	if cur != "" && clientID != cur && rq.principal.ID != userID {
		return deny("can not get user information beyond your authority"), nil
	}
	return allowedVerdict, nil
}

// checkManageUser covers "logout user" and "remove user". The target's owning
// client is resolved through the directory when the request only carries the
// user id.
func (e *Engine) checkManageUser(ctx context.Context, rq *request) (verdict, error) {
	userID := rq.params.str("id")
	clientID := rq.params.str("clientId")

	if userID != "" && clientID == "" {
		owner, err := e.dir.OwnerOfUser(ctx, userID)
		if err != nil {
			return verdict{}, &LookupError{Entity: "user", ID: userID, Err: err}
		}
		clientID = owner
	}
	return e.generalCheck(ctx, rq, scopeOf(ScopeClient, clientID))
}

// --------------------------------------------------------- transaction -----

// checkTransaction covers every transaction read: scope comes straight from
// whichever id the request supplies, application winning over client winning
// over integration.
func (e *Engine) checkTransaction(ctx context.Context, rq *request) (verdict, error) {
	scope := ScopeQuery{}
	if id := rq.params.str("integrationId"); id != "" {
		scope = scopeOf(ScopeIntegration, id)
	}
	if id := rq.params.str("clientId"); id != "" {
		scope = scopeOf(ScopeClient, id)
	}
	if id := rq.params.str("applicationId"); id != "" {
		scope = scopeOf(ScopeApplication, id)
	}
	return e.generalCheck(ctx, rq, scope)
}

// -------------------------------------------------------------- module -----

func (e *Engine) codeTarget(rq *request) (owner, integrationID string) {
	owner = rq.params.str("owner")
	if owner != codeOwnerIntegration {
		return owner, ""
	}
	// Integration-owned code: the file name encodes the integration id.
	if filename := rq.params.str("filename"); filename != "" {
		if pos := strings.LastIndex(filename, "."+nodeCodeExt); pos > 0 {
			integrationID = filename[:pos]
		}
	}
	return "", integrationID
}

func (e *Engine) checkReadCode(ctx context.Context, rq *request) (verdict, error) {
	owner, integrationID := e.codeTarget(rq)
	if owner != "" && owner != "all" && owner != rq.principal.ID {
		return deny("can not manipulate others' code"), nil
	}
	item := rq.item
	if owner == "all" {
		item = "listallcode"
	}
	return e.generalCheckAs(ctx, rq, item, scopeOf(ScopeIntegration, integrationID))
}

func (e *Engine) checkWriteCode(ctx context.Context, rq *request) (verdict, error) {
	owner, integrationID := e.codeTarget(rq)
	if owner != "" && owner != rq.principal.ID {
		return deny("can not manipulate others' code"), nil
	}
	return e.generalCheck(ctx, rq, scopeOf(ScopeIntegration, integrationID))
}

// -------------------------------------------------------------- client -----

func (e *Engine) checkClientScoped(ctx context.Context, rq *request) (verdict, error) {
	clientID := rq.params.str("id", "clientId")
	return e.generalCheck(ctx, rq, scopeOf(ScopeClient, clientID))
}

// checkListClients requires the scope check to hold for every requested
// client id; without an id set the request asks for the global capability.
func (e *Engine) checkListClients(ctx context.Context, rq *request) (verdict, error) {
	if ids := rq.params.stringSet("clientIds"); len(ids) > 0 {
		return e.generalCheck(ctx, rq, scopeOf(ScopeClient, ids...))
	}
	return e.generalCheck(ctx, rq, ScopeQuery{})
}

// ---------------------------------------------------------- connection -----

func (e *Engine) checkConnectionByClient(ctx context.Context, rq *request) (verdict, error) {
	clientID := rq.params.str("clientId")
	return e.generalCheck(ctx, rq, scopeOf(ScopeClient, clientID))
}

func (e *Engine) checkListConnections(ctx context.Context, rq *request) (verdict, error) {
	v, err := e.checkConnectionByClient(ctx, rq)
	if err == nil && !v.allowed {
		v.reason += ". If you are a client member, try to include 'clientId' in the 'fields'"
	}
	return v, err
}

// checkConnectionByOwner resolves the connection's owning client before the
// scope check; the request itself only carries the connection id.
func (e *Engine) checkConnectionByOwner(ctx context.Context, rq *request) (verdict, error) {
	clientID := rq.params.str("clientId")
	if connID := rq.params.str("id"); connID != "" {
		owner, err := e.dir.OwnerOfConnection(ctx, connID)
		if err != nil {
			return verdict{}, &LookupError{Entity: "connection", ID: connID, Err: err}
		}
		clientID = owner
	}
	return e.generalCheck(ctx, rq, scopeOf(ScopeClient, clientID))
}

// --------------------------------------------------------- application -----

func (e *Engine) checkApplicationScoped(ctx context.Context, rq *request) (verdict, error) {
	appID := rq.params.str("id", "applicationId")
	return e.generalCheck(ctx, rq, scopeOf(ScopeApplication, appID))
}

// --------------------------------------------------------- integration -----

// integrationFallback is the two-stage OR: when the request supplies a
// clientId, the full privilege check runs once against the client scope; only
// if that attempt fails does the check run again against the integration
// scope. The two attempts are independent, not a merged scope query.
func (e *Engine) integrationFallback(ctx context.Context, rq *request, integrationIDs []string) (verdict, error) {
	if clientID := rq.params.str("clientId"); clientID != "" {
		v, err := e.generalCheck(ctx, rq, scopeOf(ScopeClient, clientID))
		if err != nil {
			return verdict{}, err
		}
		if v.allowed {
			return v, nil
		}
	}
	return e.generalCheck(ctx, rq, scopeOf(ScopeIntegration, integrationIDs...))
}

func (e *Engine) checkIntegrationFallback(ctx context.Context, rq *request) (verdict, error) {
	id := rq.params.str("id", "integrationId")
	return e.integrationFallback(ctx, rq, []string{id})
}

func (e *Engine) checkListIntegrations(ctx context.Context, rq *request) (verdict, error) {
	return e.integrationFallback(ctx, rq, rq.params.stringSet("integrationIds"))
}

func (e *Engine) checkIntegrationScoped(ctx context.Context, rq *request) (verdict, error) {
	id := rq.params.str("id", "integrationId")
	return e.generalCheck(ctx, rq, scopeOf(ScopeIntegration, id))
}
