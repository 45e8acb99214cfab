package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/config.schema.json
var configSchemaJSON string

var (
	compileOnce     sync.Once
	compiledSchema  *jsonschema.Schema
	compileErr      error
)

const configSchemaURL = "https://nyx.release/schemas/config.schema.json"

func getCompiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		var doc any
		if err := json.Unmarshal([]byte(configSchemaJSON), &doc); err != nil {
			compileErr = fmt.Errorf("failed to parse embedded config schema: %w", err)
			return
		}
		if err := compiler.AddResource(configSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("failed to add config schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(configSchemaURL)
	})
	return compiledSchema, compileErr
}

// ValidateSchema validates the merged raw configuration tree against the
// embedded JSON Schema. Unknown top-level keys warn (logged) but never
// fail validation.
func ValidateSchema(raw Raw) error {
	schema, err := getCompiledSchema()
	if err != nil {
		return nyxerr.NewConfigurationError("could not compile configuration schema", err)
	}

	asJSON, err := toJSONCompatible(raw)
	if err != nil {
		return nyxerr.NewConfigurationError("could not normalize configuration for validation", err)
	}

	if err := schema.Validate(asJSON); err != nil {
		return nyxerr.NewConfigurationError("configuration failed schema validation", err)
	}

	warnUnknownKeys(raw)
	return nil
}

var knownTopLevelKeys = map[string]bool{
	"changelog": true, "commitMessageConventions": true, "git": true,
	"initialVersion": true, "preset": true, "releaseLenient": true,
	"releasePrefix": true, "releaseTypes": true, "resume": true,
	"scheme": true, "services": true, "sharedConfigurationFile": true,
	"configurationFile": true, "stateFile": true, "verbosity": true,
	"version": true, "dryRun": true, "bump": true,
}

func warnUnknownKeys(raw Raw) {
	for k := range raw {
		if !knownTopLevelKeys[k] {
			configLog.Printf("unknown configuration key %q (preserved, not an error)", k)
		}
	}
}

// toJSONCompatible round-trips raw through encoding/json so that
// map[string]interface{}/Raw/[]interface{} values decoded by the YAML
// layer satisfy jsonschema's expected Go representation of a JSON document.
func toJSONCompatible(raw Raw) (any, error) {
	data, err := json.Marshal(rawToPlain(raw))
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func rawToPlain(v interface{}) interface{} {
	switch t := v.(type) {
	case Raw:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = rawToPlain(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = rawToPlain(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = rawToPlain(val)
		}
		return out
	default:
		return t
	}
}
