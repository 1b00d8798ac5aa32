package privilege

import (
	"context"
	"testing"
)

const sampleYAML = `
version: 3
roles:
  - id: viewer
    title: Read-only access
    grant:
      - "GET *"
      - "GET * *"
  - id: clientadmin
    grant:
      - "* client"
      - "* client *"
    revoke:
      - "DELETE client id"
engine:
  signal_channel: "privilege:roles-changed"
  owner_cache_ttl_ms: 15000
`

func TestLoadYAML(t *testing.T) {
	cfg, err := NewConfigLoader().LoadYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if cfg.Version != 3 {
		t.Fatalf("expected version 3, got %d", cfg.Version)
	}
	if len(cfg.Roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(cfg.Roles))
	}
	if cfg.Roles[1].Revoke[0] != "DELETE client id" {
		t.Fatalf("revoke list mismatch: %+v", cfg.Roles[1])
	}
	if cfg.Engine.SignalChannel != "privilege:roles-changed" {
		t.Fatalf("engine config mismatch: %+v", cfg.Engine)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestConfigJSONRoundtrip(t *testing.T) {
	cfg, err := NewConfigLoader().LoadYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	data, err := cfg.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	back, err := NewConfigLoader().LoadJSON(data)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if back.Version != cfg.Version || len(back.Roles) != len(cfg.Roles) {
		t.Fatalf("roundtrip mismatch: %+v", back)
	}
}

func TestConfigBinaryRoundtrip(t *testing.T) {
	cfg, err := NewConfigLoader().LoadYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	data, err := EncodeBinaryConfig(cfg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := NewConfigLoader().LoadBinary(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Version != cfg.Version {
		t.Fatalf("version mismatch: %d vs %d", back.Version, cfg.Version)
	}
	if len(back.Roles) != 2 || back.Roles[0].ID != "viewer" || back.Roles[0].Title != "Read-only access" {
		t.Fatalf("roles mismatch: %+v", back.Roles)
	}
	if len(back.Roles[1].Grant) != 2 || len(back.Roles[1].Revoke) != 1 {
		t.Fatalf("patterns mismatch: %+v", back.Roles[1])
	}
	if back.Engine.SignalChannel != cfg.Engine.SignalChannel || back.Engine.OwnerCacheTTL != cfg.Engine.OwnerCacheTTL {
		t.Fatalf("engine config mismatch: %+v", back.Engine)
	}
}

func TestConfigLoadBinaryRejectsGarbage(t *testing.T) {
	if _, err := NewConfigLoader().LoadBinary([]byte{0x00, 0x01}); err == nil {
		t.Error("truncated header must error")
	}
	if _, err := NewConfigLoader().LoadBinary([]byte{0xFF, 0xFF, 0x01, 0x00, 0x00, 0x00}); err == nil {
		t.Error("bad magic must error")
	}
}

func TestConfigValidateCatchesProblems(t *testing.T) {
	bad := &Config{Roles: []RoleDef{{ID: "x", Grant: []string{"NOPE"}}}}
	if err := bad.Validate(); err == nil {
		t.Error("unparseable pattern must fail validation")
	}
	dup := &Config{Roles: []RoleDef{{ID: "x"}, {ID: "x"}}}
	if err := dup.Validate(); err == nil {
		t.Error("duplicate role ids must fail validation")
	}
	anon := &Config{Roles: []RoleDef{{}}}
	if err := anon.Validate(); err == nil {
		t.Error("empty role id must fail validation")
	}
}

func TestApplyConfigMergesIntoSource(t *testing.T) {
	src := &stubSource{defs: []RoleDef{
		{ID: "legacy", Grant: []string{"GET transaction"}},
		{ID: "viewer", Grant: []string{"GET client"}},
	}}
	e, err := NewEngine(src, newTestDirectory())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ctx := context.Background()

	cfg, err := NewConfigLoader().LoadYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if err := e.ApplyConfig(ctx, cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Configured roles are upserted, unrelated roles survive.
	if e.Catalog().Get("legacy") == nil {
		t.Fatal("pre-existing role should survive apply")
	}
	if e.Catalog().Get("clientadmin") == nil {
		t.Fatal("configured role should be live")
	}
	viewer := e.Catalog().Get("viewer")
	if viewer == nil || !viewer.Authorizes(MethodGet, "transaction", "") {
		t.Fatal("configured viewer should replace the stored definition")
	}
}
