// Package state implements the State I/O and resume model: a
// root record the Pipeline Orchestrator owns exclusively during a run,
// serialized atomically between phases and reloaded (with staleness
// checks) when resuming a prior run.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	goyaml "github.com/goccy/go-yaml"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
)

var stateLog = logger.New("nyx:state")

// PhaseResult records whether a phase ran, and against which version, so a
// resumed run can tell whether Mark/Make/Publish's recorded success still
// matches the current inferred version.
type PhaseResult struct {
	Ran     bool   `json:"ran" yaml:"ran"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// State is the root record persisted to the state file and passed between
// phases. Extra holds any key present in a previously-serialized file that
// this build doesn't recognize, so round-tripping never silently drops
// forward-compatible data.
type State struct {
	ConfigurationHash string `json:"configurationHash,omitempty" yaml:"configurationHash,omitempty"`
	Scheme            string `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Branch            string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Bump              string `json:"bump,omitempty" yaml:"bump,omitempty"`
	Directory         string `json:"directory,omitempty" yaml:"directory,omitempty"`
	HeadSHA           string `json:"headSHA,omitempty" yaml:"headSHA,omitempty"`
	Timestamp         string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`

	PreviousVersion       string `json:"previousVersion,omitempty" yaml:"previousVersion,omitempty"`
	PreviousVersionCommit string `json:"previousVersionCommit,omitempty" yaml:"previousVersionCommit,omitempty"`
	PrimeVersion          string `json:"primeVersion,omitempty" yaml:"primeVersion,omitempty"`
	InitialCommit         string `json:"initialCommit,omitempty" yaml:"initialCommit,omitempty"`
	FinalCommit           string `json:"finalCommit,omitempty" yaml:"finalCommit,omitempty"`

	Version      string `json:"version,omitempty" yaml:"version,omitempty"`
	VersionRange string `json:"versionRange,omitempty" yaml:"versionRange,omitempty"`
	NewVersion   bool   `json:"newVersion,omitempty" yaml:"newVersion,omitempty"`
	NewRelease   bool   `json:"newRelease,omitempty" yaml:"newRelease,omitempty"`
	ReleaseType  string `json:"releaseType,omitempty" yaml:"releaseType,omitempty"`

	ChangelogPath string `json:"changelogPath,omitempty" yaml:"changelogPath,omitempty"`

	Mark    PhaseResult `json:"mark,omitempty" yaml:"mark,omitempty"`
	Make    PhaseResult `json:"make,omitempty" yaml:"make,omitempty"`
	Publish PhaseResult `json:"publish,omitempty" yaml:"publish,omitempty"`

	Extra map[string]interface{} `json:"-" yaml:"-"`
}

// New returns an empty State stamped with the given instant and directory.
func New(directory string, at time.Time) *State {
	return &State{Directory: directory, Timestamp: at.UTC().Format(time.RFC3339)}
}

// HashConfiguration returns a stable content hash of a configuration
// snapshot, used to detect configuration drift on resume.
func HashConfiguration(raw map[string]interface{}) (string, error) {
	canonical, err := goyaml.Marshal(raw)
	if err != nil {
		return "", nyxerr.NewIOError("could not hash configuration", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Stale reports whether resumed State's computed fields must be
// invalidated: HEAD has moved, the configuration hash no longer matches,
// or the working directory differs.
func (s *State) Stale(headSHA, configHash, directory string) bool {
	return s.HeadSHA != headSHA || s.ConfigurationHash != configHash || s.Directory != directory
}

// InvalidateComputed clears the fields Infer recomputes from scratch,
// leaving phase bookkeeping and identity fields intact.
func (s *State) InvalidateComputed() {
	s.PreviousVersion = ""
	s.PreviousVersionCommit = ""
	s.PrimeVersion = ""
	s.InitialCommit = ""
	s.FinalCommit = ""
	s.Version = ""
	s.VersionRange = ""
	s.NewVersion = false
	s.NewRelease = false
	s.ReleaseType = ""
	s.ChangelogPath = ""
}

// Load reads a State from path if resume is true and the file exists and is
// readable; otherwise it returns a fresh, empty State. Extra preserves any
// key this build doesn't recognize so a later Save round-trips it.
func Load(path string, resume bool, directory string, at time.Time) (*State, error) {
	if !resume || path == "" {
		return New(directory, at), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			stateLog.Printf("no state file at %q, starting fresh", path)
			return New(directory, at), nil
		}
		return nil, nyxerr.NewIOError("could not read state file", err, "stateFile")
	}

	var raw map[string]interface{}
	if err := decodeByExtension(path, data, &raw); err != nil {
		return nil, nyxerr.NewIOError("could not parse state file", err, "stateFile")
	}

	var s State
	if err := decodeByExtension(path, data, &s); err != nil {
		return nil, nyxerr.NewIOError("could not decode state file", err, "stateFile")
	}
	s.Extra = extraKeys(raw)

	stateLog.Printf("resumed state from %q (previousVersion=%q version=%q)", path, s.PreviousVersion, s.Version)
	return &s, nil
}

// Save serializes s to path atomically (write-temp + rename). Format is
// YAML for a .yml/.yaml path, JSON otherwise. Extra's keys are
// merged back in underneath the typed fields so unrecognized data from a
// prior version of this tool survives.
func Save(path string, s *State) error {
	if path == "" {
		return nil
	}

	merged, err := mergeWithExtra(s)
	if err != nil {
		return nyxerr.NewIOError("could not prepare state for writing", err, "stateFile")
	}

	var encoded []byte
	if isYAMLPath(path) {
		encoded, err = goyaml.Marshal(merged)
	} else {
		encoded, err = json.MarshalIndent(merged, "", "  ")
	}
	if err != nil {
		return nyxerr.NewIOError("could not encode state", err, "stateFile")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".nyx-state-*.tmp")
	if err != nil {
		return nyxerr.NewIOError("could not create temporary state file", err, "stateFile")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return nyxerr.NewIOError("could not write temporary state file", err, "stateFile")
	}
	if err := tmp.Close(); err != nil {
		return nyxerr.NewIOError("could not close temporary state file", err, "stateFile")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nyxerr.NewIOError("could not install state file", err, "stateFile")
	}

	stateLog.Printf("wrote state to %q", path)
	return nil
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

func decodeByExtension(path string, data []byte, out interface{}) error {
	if isYAMLPath(path) {
		return goyaml.Unmarshal(data, out)
	}
	return json.Unmarshal(data, out)
}

// knownStateKeys mirrors State's json tags, used to split a decoded raw map
// into "recognized" (dropped, since the typed struct already has it) and
// "extra" (preserved verbatim).
var knownStateKeys = map[string]bool{
	"configurationHash": true, "scheme": true, "branch": true, "bump": true,
	"directory": true, "headSHA": true, "timestamp": true,
	"previousVersion": true, "previousVersionCommit": true, "primeVersion": true,
	"initialCommit": true, "finalCommit": true,
	"version": true, "versionRange": true, "newVersion": true, "newRelease": true,
	"releaseType": true, "changelogPath": true,
	"mark": true, "make": true, "publish": true,
}

func extraKeys(raw map[string]interface{}) map[string]interface{} {
	extra := make(map[string]interface{})
	for k, v := range raw {
		if !knownStateKeys[k] {
			extra[k] = v
		}
	}
	return extra
}

// mergeWithExtra round-trips s's typed fields through JSON into a map, then
// lays Extra underneath so typed fields always win on key collision.
func mergeWithExtra(s *State) (map[string]interface{}, error) {
	typedJSON, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var typed map[string]interface{}
	if err := json.Unmarshal(typedJSON, &typed); err != nil {
		return nil, err
	}
	merged := make(map[string]interface{}, len(typed)+len(s.Extra))
	for k, v := range s.Extra {
		merged[k] = v
	}
	for k, v := range typed {
		merged[k] = v
	}
	return merged, nil
}
