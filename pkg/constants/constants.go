// Package constants holds the small set of fixed names the rest of the
// module and cmd/nyx agree on: the CLI's own name, its default file and
// environment variable naming conventions, and the changelog sections the
// compiled-in presets declare.
package constants

// CLIName is the executable name used in user-facing output and the root
// cobra command's Use field.
const CLIName = "nyx"

// EnvPrefix is the prefix every configuration-overriding environment
// variable carries, e.g. NYX_DRY_RUN.
const EnvPrefix = "NYX_"

// DefaultConfigurationFileBasenames are the conventional configuration file
// names. config.Load does not search a directory for them; it reads a
// configuration file only when one is named explicitly.
var DefaultConfigurationFileBasenames = []string{
	".nyx.yml",
	".nyx.yaml",
	".nyx.json",
}

// DefaultStateFileName is the state file basename written alongside the
// repository root when none is configured.
const DefaultStateFileName = ".nyx-state.yml"

// DefaultChangelogFileName is the changelog path used by presets that
// enable changelog generation without naming an explicit path.
const DefaultChangelogFileName = "CHANGELOG.md"

// DefaultChangelogSections are the conventional-commit-type section
// headings the presets' changelog block is built from. A configuration
// that defines no sections gets none; the changelog builder adds no
// default sections of its own.
var DefaultChangelogSections = []string{"Features", "Fixes"}

// ReleaseScopeDirectoryName names a directory relative to the repository
// root. No code in this module creates, reads or writes it.
const ReleaseScopeDirectoryName = ".nyx"

// GitTokenEnvVar names the environment variable Push reads a Git hosting
// token from. When unset, Push relies on whatever credential helper or
// .netrc the ambient git configuration already provides.
const GitTokenEnvVar = "NYX_GIT_TOKEN"
