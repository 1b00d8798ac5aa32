package stores

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/oarkflow/squealx"
)

// SQLDirectory answers ownership lookups from SQL (squealx) with a ristretto
// read-through cache in front. Ownership rarely changes, so short TTLs keep
// the hot path off the database without letting stale answers linger. An
// unknown id resolves to "" and is cached like any other answer.
type SQLDirectory struct {
	db    *squealx.DB
	cache *ristretto.Cache
	ttl   time.Duration
}

// SQLDirectoryOptions tunes the ristretto cache. Zero values pick defaults
// sized for a few hundred thousand entities.
type SQLDirectoryOptions struct {
	CacheTTL    time.Duration
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

func NewSQLDirectory(db *squealx.DB, opts SQLDirectoryOptions) (*SQLDirectory, error) {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.NumCounters <= 0 {
		opts.NumCounters = 1e6
	}
	if opts.MaxCost <= 0 {
		opts.MaxCost = 1 << 26
	}
	if opts.BufferItems <= 0 {
		opts.BufferItems = 64
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: opts.NumCounters,
		MaxCost:     opts.MaxCost,
		BufferItems: opts.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &SQLDirectory{db: db, cache: cache, ttl: opts.CacheTTL}, nil
}

// Invalidate drops the cached answer for one entity, e.g. after an ownership
// transfer.
func (d *SQLDirectory) Invalidate(kind, id string) {
	d.cache.Del(kind + ":" + id)
}

func (d *SQLDirectory) Close() {
	d.cache.Close()
}

func (d *SQLDirectory) ownerOf(ctx context.Context, kind, query, id string) (string, error) {
	key := kind + ":" + id
	if v, ok := d.cache.Get(key); ok {
		return v.(string), nil
	}
	r, err := d.db.NamedQueryContext(ctx, query, map[string]any{"id": id})
	if err != nil {
		return "", err
	}
	defer r.Close()
	owner := ""
	if r.Next() {
		if err := r.Scan(&owner); err != nil {
			return "", err
		}
	}
	d.cache.SetWithTTL(key, owner, 1, d.ttl)
	return owner, nil
}

func (d *SQLDirectory) OwnerOfConnection(ctx context.Context, connectionID string) (string, error) {
	return d.ownerOf(ctx, "conn", `SELECT client_id FROM connections WHERE id = :id`, connectionID)
}

func (d *SQLDirectory) OwnerOfIntegration(ctx context.Context, integrationID string) (string, error) {
	return d.ownerOf(ctx, "intg", `SELECT client_id FROM integrations WHERE id = :id`, integrationID)
}

func (d *SQLDirectory) OwnerOfUser(ctx context.Context, userID string) (string, error) {
	return d.ownerOf(ctx, "user", `SELECT client_id FROM users WHERE id = :id`, userID)
}

func (d *SQLDirectory) OwnersOfIntegrations(ctx context.Context, integrationIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(integrationIDs))
	for _, id := range integrationIDs {
		owner, err := d.OwnerOfIntegration(ctx, id)
		if err != nil {
			return nil, err
		}
		if owner != "" {
			out[id] = owner
		}
	}
	return out, nil
}

func (d *SQLDirectory) IntegrationsOfClient(ctx context.Context, clientID string) ([]string, error) {
	q := `SELECT id FROM integrations WHERE client_id = :client_id ORDER BY id`
	r, err := d.db.NamedQueryContext(ctx, q, map[string]any{"client_id": clientID})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out := make([]string, 0)
	for r.Next() {
		var id string
		if err := r.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
