package privilege

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// stubSource is an in-memory RoleSource for engine tests.
type stubSource struct {
	mu   sync.Mutex
	defs []RoleDef
	err  error
}

func (s *stubSource) LoadRoles(ctx context.Context) ([]RoleDef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]RoleDef, len(s.defs))
	copy(out, s.defs)
	return out, nil
}

func (s *stubSource) SaveRoles(ctx context.Context, defs []RoleDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.defs = make([]RoleDef, len(defs))
	copy(s.defs, defs)
	return nil
}

// stubDirectory answers ownership lookups from fixed maps and counts calls so
// tests can assert lookup batching.
type stubDirectory struct {
	connectionOwners  map[string]string
	integrationOwners map[string]string
	userClients       map[string]string

	bulkCalls int
	fail      bool
}

var errDirectoryDown = errors.New("directory unavailable")

func (d *stubDirectory) OwnerOfConnection(ctx context.Context, id string) (string, error) {
	if d.fail {
		return "", errDirectoryDown
	}
	return d.connectionOwners[id], nil
}

func (d *stubDirectory) OwnerOfIntegration(ctx context.Context, id string) (string, error) {
	if d.fail {
		return "", errDirectoryDown
	}
	return d.integrationOwners[id], nil
}

func (d *stubDirectory) OwnerOfUser(ctx context.Context, id string) (string, error) {
	if d.fail {
		return "", errDirectoryDown
	}
	return d.userClients[id], nil
}

func (d *stubDirectory) OwnersOfIntegrations(ctx context.Context, ids []string) (map[string]string, error) {
	if d.fail {
		return nil, errDirectoryDown
	}
	d.bulkCalls++
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if owner, ok := d.integrationOwners[id]; ok {
			out[id] = owner
		}
	}
	return out, nil
}

func (d *stubDirectory) IntegrationsOfClient(ctx context.Context, clientID string) ([]string, error) {
	if d.fail {
		return nil, errDirectoryDown
	}
	var out []string
	for id, owner := range d.integrationOwners {
		if owner == clientID {
			out = append(out, id)
		}
	}
	return out, nil
}

func newTestDirectory() *stubDirectory {
	return &stubDirectory{
		connectionOwners:  map[string]string{},
		integrationOwners: map[string]string{},
		userClients:       map[string]string{},
	}
}

func newTestEngine(t *testing.T, defs []RoleDef, dir Directory) *Engine {
	t.Helper()
	if dir == nil {
		dir = newTestDirectory()
	}
	e, err := NewEngine(&stubSource{defs: defs}, dir)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := e.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return e
}
