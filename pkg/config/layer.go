package config

import (
	"os"

	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
)

// CLIOptions carries the command-line flags that form the highest-priority
// configuration layer. Only fields the user actually set should
// be treated as non-zero; cmd/nyx tracks "was this flag passed" with
// cobra's Changed() before populating this struct.
type CLIOptions struct {
	ConfigurationFile       string
	SharedConfigurationFile string
	Preset                  string
	StateFile               string
	Scheme                  string
	Bump                    string
	Version                 string
	Verbosity               string
	Resume                  *bool
	DryRun                  *bool
}

func (o CLIOptions) toRaw() Raw {
	raw := Raw{}
	if o.ConfigurationFile != "" {
		raw["configurationFile"] = o.ConfigurationFile
	}
	if o.SharedConfigurationFile != "" {
		raw["sharedConfigurationFile"] = o.SharedConfigurationFile
	}
	if o.Preset != "" {
		raw["preset"] = o.Preset
	}
	if o.StateFile != "" {
		raw["stateFile"] = o.StateFile
	}
	if o.Scheme != "" {
		raw["scheme"] = o.Scheme
	}
	if o.Bump != "" {
		raw["bump"] = o.Bump
	}
	if o.Version != "" {
		raw["version"] = o.Version
	}
	if o.Verbosity != "" {
		raw["verbosity"] = o.Verbosity
	}
	if o.Resume != nil {
		raw["resume"] = *o.Resume
	}
	if o.DryRun != nil {
		raw["dryRun"] = *o.DryRun
	}
	return raw
}

// envOverrides reads the NYX_* environment variables that map 1:1 onto
// top-level configuration keys, forming part of the highest-priority layer
// alongside CLIOptions.
func envOverrides() Raw {
	raw := Raw{}
	assignString(raw, "configurationFile", "NYX_CONFIGURATION_FILE")
	assignString(raw, "sharedConfigurationFile", "NYX_SHARED_CONFIGURATION_FILE")
	assignString(raw, "preset", "NYX_PRESET")
	assignString(raw, "stateFile", "NYX_STATE_FILE")
	assignString(raw, "scheme", "NYX_SCHEME")
	assignString(raw, "bump", "NYX_BUMP")
	assignString(raw, "version", "NYX_VERSION")
	assignString(raw, "verbosity", "NYX_VERBOSITY")
	assignBool(raw, "resume", "NYX_RESUME")
	assignBool(raw, "dryRun", "NYX_DRY_RUN")
	return raw
}

func assignString(raw Raw, key, env string) {
	if v, ok := os.LookupEnv(env); ok {
		raw[key] = v
	}
}

func assignBool(raw Raw, key, env string) {
	if v, ok := os.LookupEnv(env); ok {
		raw[key] = v == "1" || v == "true" || v == "TRUE" || v == "True"
	}
}

// Load assembles the full layer stack and returns a decoded, validated
// Configuration. Priority highest-first: CLI options, environment
// variables, the explicit configuration file, the shared configuration
// file, the named preset, built-in defaults.
func Load(opts CLIOptions) (*Configuration, error) {
	cliLayer := opts.toRaw()
	envLayer := envOverrides()
	topLayer := deepMerge(envLayer, cliLayer)

	merged := defaults()

	presetName := opts.Preset
	if presetName == "" {
		if v, ok := topLayer["preset"].(string); ok {
			presetName = v
		}
	}
	if presetName != "" {
		preset, ok := LookupPreset(presetName)
		if !ok {
			return nil, nyxerr.NewConfigurationError("unknown preset \""+presetName+"\"", nil, "preset")
		}
		merged = deepMerge(merged, preset)
	}

	sharedPath := opts.SharedConfigurationFile
	if sharedPath == "" {
		if v, ok := topLayer["sharedConfigurationFile"].(string); ok {
			sharedPath = v
		}
	}
	if sharedPath != "" {
		shared, err := decodeFile(sharedPath)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, shared)
	}

	explicitPath := opts.ConfigurationFile
	if explicitPath == "" {
		if v, ok := topLayer["configurationFile"].(string); ok {
			explicitPath = v
		}
	}
	if explicitPath != "" {
		explicit, err := decodeFile(explicitPath)
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, explicit)
	}

	merged = deepMerge(merged, topLayer)

	if err := ValidateSchema(merged); err != nil {
		return nil, err
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}

	configLog.Printf("configuration loaded: preset=%q scheme=%q releaseTypes=%d", presetName, cfg.Scheme, cfg.ReleaseTypes.enabledCount())
	return cfg, nil
}

func (rt ReleaseTypes) enabledCount() int {
	return len(rt.Enabled)
}
