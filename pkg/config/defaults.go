package config

// defaults are the built-in, lowest-priority configuration values: the
// last layer in the layered configuration stack.
func defaults() Raw {
	return Raw{
		"scheme":         "semver",
		"releaseLenient": true,
		"initialVersion": "0.1.0",
		"resume":         false,
		"dryRun":         false,
		"verbosity":      "info",
		"stateFile":      ".nyx-state.yml",
		"releaseTypes": Raw{
			"enabled": []interface{}{"internal"},
			"items": Raw{
				"internal": internalType(),
			},
		},
	}
}
