package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	goyaml "github.com/goccy/go-yaml"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
)

var configLog = logger.New("nyx:config")

// Raw is an untyped configuration tree, used as the merge unit before the
// layered stack is decoded into a Configuration. Its shape is whatever a
// YAML/JSON/TOML document decodes to: nested map[string]interface{}, with
// scalars and []interface{} at the leaves.
type Raw map[string]interface{}

// decodeFile reads path and decodes it as JSON, YAML, or TOML by extension.
func decodeFile(path string) (Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nyxerr.NewConfigurationError(fmt.Sprintf("cannot read configuration file %q", path), err, "configurationFile")
	}

	ext := strings.ToLower(filepath.Ext(path))
	var raw Raw
	switch ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, nyxerr.NewConfigurationError(fmt.Sprintf("invalid TOML in %q", path), err, "configurationFile")
		}
	default:
		// .yml, .yaml, .json (JSON is valid YAML) and any unrecognized
		// extension fall back to the YAML decoder.
		if err := goyaml.Unmarshal(data, &raw); err != nil {
			return nil, nyxerr.NewConfigurationError(fmt.Sprintf("invalid configuration in %q", path), err, "configurationFile")
		}
	}
	configLog.Printf("decoded configuration file %s (%d top-level keys)", path, len(raw))
	return raw, nil
}

// deepMerge overlays override on top of base: maps are merged recursively
// key-by-key, while scalars and lists are replaced wholesale by override's
// value when present.
func deepMerge(base, override Raw) Raw {
	if base == nil {
		base = Raw{}
	}
	out := make(Raw, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		existing, ok := out[k]
		if !ok {
			out[k] = v
			continue
		}
		existingMap, existingIsMap := asRawMap(existing)
		overrideMap, overrideIsMap := asRawMap(v)
		if existingIsMap && overrideIsMap {
			out[k] = deepMerge(existingMap, overrideMap)
			continue
		}
		out[k] = v
	}
	return out
}

func asRawMap(v interface{}) (Raw, bool) {
	switch m := v.(type) {
	case Raw:
		return m, true
	case map[string]interface{}:
		return Raw(m), true
	default:
		return nil, false
	}
}

// decode converts a merged Raw tree into a Configuration by round-tripping
// through YAML, so OrderedMap fields' custom UnmarshalYAML runs the same
// way it would for a configuration file decoded directly.
func decode(raw Raw) (*Configuration, error) {
	encoded, err := goyaml.Marshal(map[string]interface{}(raw))
	if err != nil {
		return nil, nyxerr.NewConfigurationError("failed to re-encode merged configuration", err)
	}
	var cfg Configuration
	if err := goyaml.Unmarshal(encoded, &cfg); err != nil {
		return nil, nyxerr.NewConfigurationError("failed to decode merged configuration", err)
	}
	return &cfg, nil
}
