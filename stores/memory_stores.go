package stores

import (
	"context"
	"sync"

	"github.com/integrahub/privilege"
)

// MemoryRoleSource keeps the role catalog in process memory. Handy for tests
// and single-node deployments.
type MemoryRoleSource struct {
	mu   sync.RWMutex
	defs []privilege.RoleDef
}

func NewMemoryRoleSource(defs ...privilege.RoleDef) *MemoryRoleSource {
	s := &MemoryRoleSource{}
	s.defs = append(s.defs, defs...)
	return s
}

func (s *MemoryRoleSource) LoadRoles(ctx context.Context) ([]privilege.RoleDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]privilege.RoleDef, len(s.defs))
	copy(out, s.defs)
	return out, nil
}

func (s *MemoryRoleSource) SaveRoles(ctx context.Context, defs []privilege.RoleDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = make([]privilege.RoleDef, len(defs))
	copy(s.defs, defs)
	return nil
}

// MemoryDirectory answers ownership lookups from in-memory maps. Unknown ids
// resolve to "", matching the Directory contract.
type MemoryDirectory struct {
	mu                sync.RWMutex
	connectionOwners  map[string]string
	integrationOwners map[string]string
	userClients       map[string]string
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		connectionOwners:  map[string]string{},
		integrationOwners: map[string]string{},
		userClients:       map[string]string{},
	}
}

func (d *MemoryDirectory) SetConnectionOwner(connectionID, clientID string) {
	d.mu.Lock()
	d.connectionOwners[connectionID] = clientID
	d.mu.Unlock()
}

func (d *MemoryDirectory) SetIntegrationOwner(integrationID, clientID string) {
	d.mu.Lock()
	d.integrationOwners[integrationID] = clientID
	d.mu.Unlock()
}

func (d *MemoryDirectory) SetUserClient(userID, clientID string) {
	d.mu.Lock()
	d.userClients[userID] = clientID
	d.mu.Unlock()
}

func (d *MemoryDirectory) OwnerOfConnection(ctx context.Context, connectionID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connectionOwners[connectionID], nil
}

func (d *MemoryDirectory) OwnerOfIntegration(ctx context.Context, integrationID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.integrationOwners[integrationID], nil
}

func (d *MemoryDirectory) OwnerOfUser(ctx context.Context, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.userClients[userID], nil
}

func (d *MemoryDirectory) OwnersOfIntegrations(ctx context.Context, integrationIDs []string) (map[string]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string, len(integrationIDs))
	for _, id := range integrationIDs {
		if owner, ok := d.integrationOwners[id]; ok {
			out[id] = owner
		}
	}
	return out, nil
}

func (d *MemoryDirectory) IntegrationsOfClient(ctx context.Context, clientID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for id, owner := range d.integrationOwners {
		if owner == clientID {
			out = append(out, id)
		}
	}
	return out, nil
}
