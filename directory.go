package privilege

import "context"

// ============================================================================
// ENTITY COLLABORATORS
// ============================================================================

// Directory answers ownership questions about platform entities. The engine
// only reads from it: which client owns a connection, an integration or a
// user, and which integrations a client owns.
//
// Implementations must treat "not found" as an empty owner with a nil error;
// only genuine I/O failures return an error, and those abort the evaluation
// rather than defaulting it to allow or deny.
type Directory interface {
	OwnerOfConnection(ctx context.Context, connectionID string) (string, error)
	OwnerOfIntegration(ctx context.Context, integrationID string) (string, error)
	OwnerOfUser(ctx context.Context, userID string) (string, error)
	OwnersOfIntegrations(ctx context.Context, integrationIDs []string) (map[string]string, error)
	IntegrationsOfClient(ctx context.Context, clientID string) ([]string, error)
}

// ChangeSignal is the "roles changed" broadcast consumed by the engine. The
// delivery contract is at-most-once per node with no cross-node ordering; a
// node receiving an event reloads its whole catalog.
type ChangeSignal interface {
	Publish(ctx context.Context) error
	Subscribe(ctx context.Context) (<-chan struct{}, error)
}

// ownerMemo caches integration->client resolutions for the duration of one
// decision (or one batch call). It is created at the start of the evaluation
// and discarded at its end; ownership may change between requests, so the map
// must never outlive the decision it was built for.
type ownerMemo struct {
	integrationOwner map[string]string
}

func newOwnerMemo() *ownerMemo {
	return &ownerMemo{integrationOwner: make(map[string]string)}
}

// ownersOf resolves the owning client of every id, hitting the directory at
// most once per batch of unresolved ids. Unknown integrations resolve to "".
func (m *ownerMemo) ownersOf(ctx context.Context, dir Directory, ids []string) (map[string]string, error) {
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.integrationOwner[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		owners, err := dir.OwnersOfIntegrations(ctx, missing)
		if err != nil {
			return nil, &LookupError{Entity: "integration", ID: missing[0], Err: err}
		}
		for _, id := range missing {
			m.integrationOwner[id] = owners[id]
		}
	}
	return m.integrationOwner, nil
}
