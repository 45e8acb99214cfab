// Package config implements the layered configuration stack:
// command-line/environment overrides, an explicit file, a shared file, a
// named preset, and compiled-in defaults, merged highest-priority-first.
// String fields are stored as raw templates; resolution against live State
// happens lazily, by the caller, through pkg/template.
package config

// WorkspaceStatus constrains a release type to a clean or dirty working
// tree, or either.
type WorkspaceStatus string

const (
	WorkspaceAny   WorkspaceStatus = "ANY"
	WorkspaceClean WorkspaceStatus = "CLEAN"
	WorkspaceDirty WorkspaceStatus = "DIRTY"
)

// Position names where an Identifier is inserted in a version.
type Position string

const (
	PositionPreRelease Position = "PRE_RELEASE"
	PositionBuild      Position = "BUILD"
)

// Identifier is one entry of a ReleaseType's ordered identifiers list.
// Qualifier and Value are templates resolved against live State.
type Identifier struct {
	Position  Position `json:"position" yaml:"position"`
	Qualifier string   `json:"qualifier" yaml:"qualifier"`
	Value     string   `json:"value" yaml:"value"`
}

// ReleaseType is a named rule matching a branch/environment and specifying
// how to compute, tag, and publish a release. Every string field not
// declared as bool/regex-name is a template.
type ReleaseType struct {
	MatchBranches              string            `json:"matchBranches,omitempty" yaml:"matchBranches,omitempty"`
	MatchEnvironmentVariables  map[string]string `json:"matchEnvironmentVariables,omitempty" yaml:"matchEnvironmentVariables,omitempty"`
	MatchWorkspaceStatus       WorkspaceStatus   `json:"matchWorkspaceStatus,omitempty" yaml:"matchWorkspaceStatus,omitempty"`

	FilterTags string `json:"filterTags,omitempty" yaml:"filterTags,omitempty"`

	CollapseVersions          bool   `json:"collapseVersions,omitempty" yaml:"collapseVersions,omitempty"`
	CollapsedVersionQualifier string `json:"collapsedVersionQualifier,omitempty" yaml:"collapsedVersionQualifier,omitempty"`

	VersionRange               string `json:"versionRange,omitempty" yaml:"versionRange,omitempty"`
	VersionRangeFromBranchName bool   `json:"versionRangeFromBranchName,omitempty" yaml:"versionRangeFromBranchName,omitempty"`

	Identifiers []Identifier `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`

	GitCommit        string `json:"gitCommit,omitempty" yaml:"gitCommit,omitempty"`
	GitCommitMessage string `json:"gitCommitMessage,omitempty" yaml:"gitCommitMessage,omitempty"`
	GitPush          string `json:"gitPush,omitempty" yaml:"gitPush,omitempty"`
	GitTag           string `json:"gitTag,omitempty" yaml:"gitTag,omitempty"`
	GitTagMessage    string `json:"gitTagMessage,omitempty" yaml:"gitTagMessage,omitempty"`
	Publish          string `json:"publish,omitempty" yaml:"publish,omitempty"`

	// Assets are glob patterns, relative to the repository root, of files
	// Publish uploads to the created release via publishReleaseAssets.
	Assets []string `json:"assets,omitempty" yaml:"assets,omitempty"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Convention is one entry of commitMessageConventions.items: a regex with
// named groups classifying a commit message, plus the bump component it
// implies.
type Convention struct {
	Expression      string            `json:"expression" yaml:"expression"`
	BumpExpressions map[string]string `json:"bumpExpressions,omitempty" yaml:"bumpExpressions,omitempty"`
}

// CommitMessageConventions names which convention set is active and holds
// the compiled-in/configured convention bundles.
type CommitMessageConventions struct {
	Enabled []string                     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Items   *OrderedMap[Convention]      `json:"items,omitempty" yaml:"items,omitempty"`
}

// Substitution is one changelog.substitutions entry: a regex applied to a
// rendered changelog line and its replacement.
type Substitution struct {
	Match   string `json:"match" yaml:"match"`
	Replace string `json:"replace" yaml:"replace"`
}

// Changelog configures the Changelog Builder.
type Changelog struct {
	Path          string                  `json:"path,omitempty" yaml:"path,omitempty"`
	Title         string                  `json:"title,omitempty" yaml:"title,omitempty"`
	Sections      *OrderedMap[string]     `json:"sections,omitempty" yaml:"sections,omitempty"`
	Substitutions []Substitution          `json:"substitutions,omitempty" yaml:"substitutions,omitempty"`
	Template      string                  `json:"template,omitempty" yaml:"template,omitempty"`
}

// Service describes one hosting-service configuration entry under
// `services`, keyed by name in the parent OrderedMap.
type Service struct {
	Type    string            `json:"type" yaml:"type"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// ReleaseTypes is the releaseTypes top-level configuration block: the
// ordered rule set plus the global remotes/services lists Mark and Publish
// iterate in declared order.
type ReleaseTypes struct {
	Enabled             []string                  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Items               *OrderedMap[ReleaseType]  `json:"items,omitempty" yaml:"items,omitempty"`
	RemoteRepositories  []string                  `json:"remoteRepositories,omitempty" yaml:"remoteRepositories,omitempty"`
	PublicationServices []string                  `json:"publicationServices,omitempty" yaml:"publicationServices,omitempty"`
}

// Configuration is the fully layered, still-template-raw configuration
// tree, matching the top-level keys of a configuration file.
type Configuration struct {
	Changelog                 Changelog                 `json:"changelog,omitempty" yaml:"changelog,omitempty"`
	CommitMessageConventions  CommitMessageConventions  `json:"commitMessageConventions,omitempty" yaml:"commitMessageConventions,omitempty"`
	Git                       map[string]string         `json:"git,omitempty" yaml:"git,omitempty"`
	InitialVersion            string                    `json:"initialVersion,omitempty" yaml:"initialVersion,omitempty"`
	Preset                    string                    `json:"preset,omitempty" yaml:"preset,omitempty"`
	ReleaseLenient            bool                      `json:"releaseLenient,omitempty" yaml:"releaseLenient,omitempty"`
	ReleasePrefix             string                    `json:"releasePrefix,omitempty" yaml:"releasePrefix,omitempty"`
	ReleaseTypes              ReleaseTypes              `json:"releaseTypes,omitempty" yaml:"releaseTypes,omitempty"`
	Resume                    bool                      `json:"resume,omitempty" yaml:"resume,omitempty"`
	Scheme                    string                    `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Services                  *OrderedMap[Service]      `json:"services,omitempty" yaml:"services,omitempty"`
	SharedConfigurationFile   string                    `json:"sharedConfigurationFile,omitempty" yaml:"sharedConfigurationFile,omitempty"`
	StateFile                 string                    `json:"stateFile,omitempty" yaml:"stateFile,omitempty"`
	Verbosity                 string                    `json:"verbosity,omitempty" yaml:"verbosity,omitempty"`
	Version                   string                    `json:"version,omitempty" yaml:"version,omitempty"`
	DryRun                    bool                      `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`

	// Bump is the explicit configuration-level bump override if set; empty
	// means "infer from commits".
	Bump string `json:"bump,omitempty" yaml:"bump,omitempty"`
}
