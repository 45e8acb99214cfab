// Package scope implements the Scope Resolver: walking history
// from HEAD to the most recent matching tag, building the significant
// commit list, and deriving previousVersion/primeVersion/initialCommit/
// finalCommit.
package scope

import (
	"regexp"

	"github.com/nyxreleaseng/nyx/pkg/conventions"
	"github.com/nyxreleaseng/nyx/pkg/gitrepo"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
	"github.com/nyxreleaseng/nyx/pkg/version"
)

var scopeLog = logger.New("nyx:scope")

// Scope is the computed, read-only-after-Infer result.
type Scope struct {
	PreviousVersion       *version.Version
	PreviousVersionCommit string
	PrimeVersion          *version.Version
	InitialCommit         string
	FinalCommit           string
	SignificantCommits    []*gitrepo.Commit
}

// Resolve walks repo from HEAD to the most recent matching tag, building
// the significant commit list and deriving previousVersion, primeVersion,
// initialCommit, and finalCommit.
//
// filterTags and collapsedQualifierPattern are already template-resolved
// by the caller (the pipeline orchestrator renders the active release
// type's templates against live State before Scope ever sees them). collapsedQualifierPattern matches
// the pre-release qualifier of a "collapsed" tag; it may be empty if no
// release type in the configuration collapses versions.
func Resolve(
	repo gitrepo.Repository,
	scheme version.Scheme,
	lenient bool,
	initialVersion string,
	filterTags string,
	collapsedQualifierPattern string,
	matcher *conventions.Matcher,
) (*Scope, error) {
	if _, err := repo.GetCurrentBranch(); err != nil {
		return nil, nyxerr.NewGitError("detached HEAD", err, "branch")
	}

	head, err := repo.GetLatestCommit()
	if err != nil {
		return nil, nyxerr.NewGitError("repository has no commits", err)
	}

	filterRe, err := compileOrEmpty(filterTags)
	if err != nil {
		return nil, nyxerr.NewConfigurationError("invalid filterTags expression", err, "releaseTypes.items.filterTags")
	}
	collapsedRe, err := compileOrEmpty(collapsedQualifierPattern)
	if err != nil {
		return nil, nyxerr.NewConfigurationError("invalid collapsedVersionQualifier pattern", err, "releaseTypes.items.collapsedVersionQualifier")
	}

	previousVersion, previousCommit, err := findPrevious(repo, scheme, lenient, initialVersion, filterRe, nil)
	if err != nil {
		return nil, err
	}
	primeVersion, _, err := findPrevious(repo, scheme, lenient, initialVersion, filterRe, collapsedRe)
	if err != nil {
		return nil, err
	}

	significant, initialCommit, err := walkSignificant(repo, previousCommit, head.SHA, matcher)
	if err != nil {
		return nil, err
	}

	scopeLog.Printf("resolved scope: previous=%s prime=%s significant=%d", previousVersion, primeVersion, len(significant))

	return &Scope{
		PreviousVersion:       previousVersion,
		PreviousVersionCommit: previousCommit,
		PrimeVersion:          primeVersion,
		InitialCommit:         initialCommit,
		FinalCommit:           head.SHA,
		SignificantCommits:    significant,
	}, nil
}

func compileOrEmpty(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

// findPrevious walks from HEAD in reverse-chronological first-parent order
// looking for the first commit with a tag matching filterRe. If
// excludeCollapsed is non-nil, tags whose pre-release qualifier matches it
// are skipped (used for primeVersion). Ties at the same commit prefer a
// non-collapsed tag for primeVersion and a collapsed tag for
// previousVersion — callers achieve this by calling findPrevious twice
// with different excludeCollapsed values rather than sharing one walk.
func findPrevious(
	repo gitrepo.Repository,
	scheme version.Scheme,
	lenient bool,
	initialVersion string,
	filterRe *regexp.Regexp,
	excludeCollapsed *regexp.Regexp,
) (*version.Version, string, error) {
	var found *version.Version
	var foundSHA string

	err := repo.WalkHistory(func(c *gitrepo.Commit) (bool, error) {
		tags, err := repo.GetCommitTags(c.SHA)
		if err != nil {
			return false, nyxerr.NewGitError("could not read tags at commit", err)
		}
		var best *version.Version
		for _, t := range tags {
			if filterRe != nil && !filterRe.MatchString(t.Name) {
				continue
			}
			v, err := version.Parse(scheme, t.Name, lenient)
			if err != nil {
				continue
			}
			if excludeCollapsed != nil && isCollapsed(v, excludeCollapsed) {
				continue
			}
			if best == nil || version.Compare(v, best) > 0 {
				best = v
			}
		}
		if best != nil {
			found = best
			foundSHA = c.SHA
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, "", err
	}

	if found == nil {
		v, err := version.Parse(scheme, initialVersion, true)
		if err != nil {
			return nil, "", nyxerr.NewConfigurationError("invalid initialVersion", err, "initialVersion")
		}
		return v, "", nil
	}
	return found, foundSHA, nil
}

func isCollapsed(v *version.Version, pattern *regexp.Regexp) bool {
	for _, id := range v.PreRel {
		if pattern.MatchString(id) {
			return true
		}
	}
	return false
}

// walkSignificant collects commits strictly after previousCommit (exclusive)
// through HEAD (inclusive), in chronological order, keeping only those
// whose matcher significance is at least patch.
func walkSignificant(repo gitrepo.Repository, previousCommit, headSHA string, matcher *conventions.Matcher) ([]*gitrepo.Commit, string, error) {
	var window []*gitrepo.Commit

	err := repo.WalkHistory(func(c *gitrepo.Commit) (bool, error) {
		if c.SHA == previousCommit {
			return false, nil
		}
		window = append(window, c)
		return true, nil
	})
	if err != nil {
		return nil, "", err
	}

	// window is HEAD-first; reverse to chronological order.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}

	var significant []*gitrepo.Commit
	var initialCommit string
	if len(window) > 0 {
		initialCommit = window[0].SHA
	}
	for _, c := range window {
		component, ok := matcher.Classify(c.Message)
		if ok && conventions.Rank(component) >= conventions.Rank(conventions.ComponentPatch) {
			significant = append(significant, c)
		}
	}
	return significant, initialCommit, nil
}
