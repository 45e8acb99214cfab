// Package releasetype implements the Release-Type Selector:
// matching the current branch, environment, and workspace status against
// an ordered set of configured release-type rules.
package releasetype

import (
	"os"
	"regexp"

	"github.com/nyxreleaseng/nyx/pkg/config"
	"github.com/nyxreleaseng/nyx/pkg/gitrepo"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
	"github.com/nyxreleaseng/nyx/pkg/template"
)

var rtLog = logger.New("nyx:releasetype")

// Default is the built-in fallback type activated when no configured rule
// matches: it disables every side effect.
var Default = config.ReleaseType{
	MatchBranches:        ".*",
	MatchWorkspaceStatus: config.WorkspaceAny,
	GitCommit:            "false",
	GitTag:               "false",
	GitPush:              "false",
	Publish:              "false",
	Description:          "default",
}

// Active is the selected release type, along with the name it was declared
// under (or "default" for the built-in fallback).
type Active struct {
	Name string
	Type config.ReleaseType
}

// Select evaluates cfg.ReleaseTypes.Enabled in order against repo and the
// process environment, resolving each type's predicate templates against
// ctx before testing them. The first type that satisfies every predicate
// wins; if none matches, Default is returned.
func Select(cfg config.ReleaseTypes, repo gitrepo.Repository, ctx template.Context) (*Active, error) {
	branch, err := repo.GetCurrentBranch()
	if err != nil {
		return nil, nyxerr.NewGitError("detached HEAD", err, "branch")
	}
	clean, err := repo.IsClean()
	if err != nil {
		return nil, nyxerr.NewGitError("could not determine working tree status", err)
	}

	for _, name := range cfg.Enabled {
		rt, ok := cfg.Items.Get(name)
		if !ok {
			return nil, nyxerr.NewConfigurationError("enabled release type \""+name+"\" is not defined", nil, "releaseTypes.enabled")
		}
		matches, err := evaluate(rt, name, branch, clean, ctx)
		if err != nil {
			return nil, err
		}
		if matches {
			rtLog.Printf("release type %q matched branch=%q clean=%v", name, branch, clean)
			return &Active{Name: name, Type: rt}, nil
		}
	}

	rtLog.Printf("no release type matched branch=%q; falling back to default", branch)
	return &Active{Name: "default", Type: Default}, nil
}

func evaluate(rt config.ReleaseType, name, branch string, clean bool, ctx template.Context) (bool, error) {
	if rt.MatchBranches != "" {
		pattern, err := template.Render(rt.MatchBranches, ctx)
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, nyxerr.NewConfigurationError("invalid matchBranches for \""+name+"\"", err, "releaseTypes.items."+name+".matchBranches")
		}
		if !re.MatchString(branch) {
			return false, nil
		}
	}

	for envName, pattern := range rt.MatchEnvironmentVariables {
		resolvedPattern, err := template.Render(pattern, ctx)
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(resolvedPattern)
		if err != nil {
			return false, nyxerr.NewConfigurationError("invalid matchEnvironmentVariables pattern for \""+name+"\"", err, "releaseTypes.items."+name+".matchEnvironmentVariables")
		}
		if !re.MatchString(os.Getenv(envName)) {
			return false, nil
		}
	}

	switch rt.MatchWorkspaceStatus {
	case config.WorkspaceClean:
		if !clean {
			return false, nil
		}
	case config.WorkspaceDirty:
		if clean {
			return false, nil
		}
	}

	return true, nil
}

// ResolveBool renders a boolean-valued template field ("true"/"false")
// against ctx. Empty templates default to false, matching the engine-wide
// convention that unset side-effect fields are no-ops.
func ResolveBool(field string, ctx template.Context) (bool, error) {
	if field == "" {
		return false, nil
	}
	rendered, err := template.Render(field, ctx)
	if err != nil {
		return false, err
	}
	return rendered == "true", nil
}
