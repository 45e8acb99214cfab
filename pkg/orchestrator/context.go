package orchestrator

import (
	"os"
	"time"

	"github.com/nyxreleaseng/nyx/pkg/state"
	"github.com/nyxreleaseng/nyx/pkg/template"
)

// stateContext adapts a state.State (plus a couple of values not yet
// written into it at the point a template is resolved, e.g. branch before
// Infer has run) into a template.Context, backing every `{{name}}` lookup
// release-type templates make.
type stateContext struct {
	s               *state.State
	branch          string
	repositoryName  string
	repositoryOwner string
	at              time.Time
}

func newStateContext(s *state.State, branch, repositoryName, repositoryOwner string, at time.Time) template.Context {
	return stateContext{s: s, branch: branch, repositoryName: repositoryName, repositoryOwner: repositoryOwner, at: at}
}

func (c stateContext) Lookup(path string) (string, bool) {
	switch path {
	case "version":
		return c.s.Version, c.s.Version != ""
	case "previousVersion":
		return c.s.PreviousVersion, c.s.PreviousVersion != ""
	case "previousVersionCommit":
		return c.s.PreviousVersionCommit, c.s.PreviousVersionCommit != ""
	case "primeVersion":
		return c.s.PrimeVersion, c.s.PrimeVersion != ""
	case "initialCommit":
		return c.s.InitialCommit, c.s.InitialCommit != ""
	case "finalCommit":
		return c.s.FinalCommit, c.s.FinalCommit != ""
	case "branch":
		return c.branch, c.branch != ""
	case "scheme":
		return c.s.Scheme, c.s.Scheme != ""
	case "bump":
		return c.s.Bump, c.s.Bump != ""
	case "releaseType":
		return c.s.ReleaseType, c.s.ReleaseType != ""
	case "repositoryName":
		return c.repositoryName, c.repositoryName != ""
	case "repositoryOwner":
		return c.repositoryOwner, c.repositoryOwner != ""
	case "directory":
		return c.s.Directory, c.s.Directory != ""
	default:
		return "", false
	}
}

func (c stateContext) Timestamp() time.Time {
	return c.at
}

func (c stateContext) Environment(name string) (string, bool) {
	return os.LookupEnv(name)
}
