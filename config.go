package privilege

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config is the declarative form of an engine deployment: the role catalog
// plus tuning knobs for the stores.
type Config struct {
	Version uint16       `json:"version" yaml:"version"`
	Roles   []RoleDef    `json:"roles" yaml:"roles"`
	Engine  EngineConfig `json:"engine" yaml:"engine"`
}

type EngineConfig struct {
	SignalChannel     string `json:"signal_channel,omitempty" yaml:"signal_channel,omitempty"`
	OwnerCacheTTL     int64  `json:"owner_cache_ttl_ms,omitempty" yaml:"owner_cache_ttl_ms,omitempty"`
	OwnerCacheCounter int64  `json:"owner_cache_num_counter,omitempty" yaml:"owner_cache_num_counter,omitempty"`
	OwnerCacheMaxCost int64  `json:"owner_cache_max_cost,omitempty" yaml:"owner_cache_max_cost,omitempty"`
	OwnerCacheBuffer  int64  `json:"owner_cache_buffer,omitempty" yaml:"owner_cache_buffer,omitempty"`
}

// ConfigLoader loads configuration from various formats
type ConfigLoader struct{}

func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{}
}

func (l *ConfigLoader) LoadYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) LoadJSON(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadBinary loads from the compact binary wire format.
func (l *ConfigLoader) LoadBinary(data []byte) (*Config, error) {
	r := bytes.NewReader(data)
	return decodeBinaryConfig(r)
}

// EncodeBinaryConfig encodes config to the compact binary wire format.
func EncodeBinaryConfig(cfg *Config) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := encodeBinaryConfig(cfg, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToYAML exports config to YAML
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ToJSON exports config to JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Validate compiles every role definition, so a bad pattern is caught at
// deploy time instead of being silently dropped at reload time.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Roles))
	for _, def := range c.Roles {
		if def.ID == "" {
			return fmt.Errorf("role with empty id")
		}
		if seen[def.ID] {
			return fmt.Errorf("duplicate role id %q", def.ID)
		}
		seen[def.ID] = true
		if _, err := compileRole(def); err != nil {
			return err
		}
	}
	return nil
}

// ApplyConfig persists the configured roles through the engine's role source
// and reloads the catalog. Roles already in the source but absent from the
// config are kept.
func (e *Engine) ApplyConfig(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	defs, err := e.catalog.source.LoadRoles(ctx)
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.ID] = i
	}
	for _, def := range cfg.Roles {
		def.Grant = NormalizeExpressions(def.Grant)
		def.Revoke = NormalizeExpressions(def.Revoke)
		if i, ok := index[def.ID]; ok {
			defs[i] = def
		} else {
			defs = append(defs, def)
		}
	}
	return e.storeRoles(ctx, defs)
}

// Binary protocol encoding/decoding
const (
	binaryMagic   = 0x5056 // "PV"
	binaryVersion = 1
)

func encodeBinaryConfig(cfg *Config, w io.Writer) error {
	buf := &bytes.Buffer{}

	// Header: magic(2) + version(2) + config_version(2)
	binary.Write(buf, binary.LittleEndian, uint16(binaryMagic))
	binary.Write(buf, binary.LittleEndian, uint16(binaryVersion))
	binary.Write(buf, binary.LittleEndian, cfg.Version)

	writeSection(buf, 0x01, func(b *bytes.Buffer) { encodeRoleDefs(b, cfg.Roles) })
	writeSection(buf, 0x02, func(b *bytes.Buffer) { encodeEngineConfig(b, &cfg.Engine) })

	_, err := w.Write(buf.Bytes())
	return err
}

func decodeBinaryConfig(r io.Reader) (*Config, error) {
	cfg := &Config{}

	var magic, ver, cfgVer uint16
	binary.Read(r, binary.LittleEndian, &magic)
	binary.Read(r, binary.LittleEndian, &ver)
	if err := binary.Read(r, binary.LittleEndian, &cfgVer); err != nil {
		return nil, fmt.Errorf("truncated header")
	}

	if magic != binaryMagic {
		return nil, fmt.Errorf("invalid magic: %x", magic)
	}
	if ver != binaryVersion {
		return nil, fmt.Errorf("unsupported version: %d", ver)
	}
	cfg.Version = cfgVer

	for {
		var tag uint8
		if err := binary.Read(r, binary.LittleEndian, &tag); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		var size uint32
		binary.Read(r, binary.LittleEndian, &size)
		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("truncated section %#x: %w", tag, err)
		}

		switch tag {
		case 0x01:
			cfg.Roles = decodeRoleDefs(data)
		case 0x02:
			cfg.Engine = decodeEngineConfig(data)
		}
	}

	return cfg, nil
}

func writeSection(buf *bytes.Buffer, tag uint8, fn func(*bytes.Buffer)) {
	tmp := &bytes.Buffer{}
	fn(tmp)
	binary.Write(buf, binary.LittleEndian, tag)
	binary.Write(buf, binary.LittleEndian, uint32(tmp.Len()))
	buf.Write(tmp.Bytes())
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) string {
	var l uint16
	binary.Read(r, binary.LittleEndian, &l)
	b := make([]byte, l)
	r.Read(b)
	return string(b)
}

func writeStrings(buf *bytes.Buffer, list []string) {
	binary.Write(buf, binary.LittleEndian, uint16(len(list)))
	for _, s := range list {
		writeString(buf, s)
	}
}

func readStrings(r *bytes.Reader) []string {
	var count uint16
	binary.Read(r, binary.LittleEndian, &count)
	list := make([]string, count)
	for i := range list {
		list[i] = readString(r)
	}
	return list
}

func encodeRoleDefs(buf *bytes.Buffer, defs []RoleDef) {
	binary.Write(buf, binary.LittleEndian, uint16(len(defs)))
	for _, d := range defs {
		writeString(buf, d.ID)
		writeString(buf, d.Title)
		writeStrings(buf, d.Grant)
		writeStrings(buf, d.Revoke)
	}
}

func decodeRoleDefs(data []byte) []RoleDef {
	r := bytes.NewReader(data)
	var count uint16
	binary.Read(r, binary.LittleEndian, &count)
	defs := make([]RoleDef, count)
	for i := range defs {
		defs[i].ID = readString(r)
		defs[i].Title = readString(r)
		defs[i].Grant = readStrings(r)
		defs[i].Revoke = readStrings(r)
	}
	return defs
}

func encodeEngineConfig(buf *bytes.Buffer, cfg *EngineConfig) {
	writeString(buf, cfg.SignalChannel)
	binary.Write(buf, binary.LittleEndian, cfg.OwnerCacheTTL)
	binary.Write(buf, binary.LittleEndian, cfg.OwnerCacheCounter)
	binary.Write(buf, binary.LittleEndian, cfg.OwnerCacheMaxCost)
	binary.Write(buf, binary.LittleEndian, cfg.OwnerCacheBuffer)
}

func decodeEngineConfig(data []byte) EngineConfig {
	r := bytes.NewReader(data)
	cfg := EngineConfig{}
	cfg.SignalChannel = readString(r)
	binary.Read(r, binary.LittleEndian, &cfg.OwnerCacheTTL)
	binary.Read(r, binary.LittleEndian, &cfg.OwnerCacheCounter)
	binary.Read(r, binary.LittleEndian, &cfg.OwnerCacheMaxCost)
	binary.Read(r, binary.LittleEndian, &cfg.OwnerCacheBuffer)
	return cfg
}
