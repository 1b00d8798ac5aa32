package privilege

import "context"

// ============================================================================
// BATCH PROBE
// ============================================================================

// CheckPrivileges answers an affordance probe: for each item, every operation
// key is resolved to true or false in place and the same slice is returned.
// An item with a scope type is checked against that exact scope; an item
// without one asks "could any held role ever allow this" and skips scope
// entirely. Unknown operation keys come back as errors, matching the single
// check. All items share one catalog snapshot and one ownership memo, so a
// probe over many integrations costs at most one bulk owner lookup.
func (e *Engine) CheckPrivileges(ctx context.Context, p *Principal, items []BatchItem) ([]BatchItem, error) {
	if p == nil || len(p.Permissions) == 0 {
		for i := range items {
			for op := range items[i].Operations {
				items[i].Operations[op] = false
			}
		}
		return items, nil
	}

	snap := e.catalog.Current()
	memo := newOwnerMemo()

	for i := range items {
		item := &items[i]
		scope := ScopeQuery{Type: item.ScopeType, IDs: item.Scope}
		ignoreScope := item.ScopeType == ""
		for op := range item.Operations {
			method, category, target, err := splitOperationKey(op)
			if err != nil {
				return nil, err
			}
			ok, err := e.eval.satisfies(ctx, snap, p, method, category, target, scope, ignoreScope, memo)
			if err != nil {
				return nil, err
			}
			item.Operations[op] = ok
		}
	}
	return items, nil
}
