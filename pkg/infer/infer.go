// Package infer implements the version inferrer: combining scope, the
// matcher's aggregate bump, the active release type, and the version
// scheme into the next version.
package infer

import (
	"strings"

	"github.com/nyxreleaseng/nyx/pkg/config"
	"github.com/nyxreleaseng/nyx/pkg/conventions"
	"github.com/nyxreleaseng/nyx/pkg/gitrepo"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
	"github.com/nyxreleaseng/nyx/pkg/scope"
	"github.com/nyxreleaseng/nyx/pkg/template"
	"github.com/nyxreleaseng/nyx/pkg/version"
)

var inferLog = logger.New("nyx:infer")

// Result is the inferred next version plus the flags the pipeline
// orchestrator gates mark/make/publish on.
type Result struct {
	Version    *version.Version
	NewVersion bool
	NewRelease bool
}

// Infer computes the release type's candidate version from the commit
// history and Git state, then compares it against the previous version to
// decide whether this run represents a new version and a new release.
//
// aggregateBump is the highest-ranked bump component across
// s.SignificantCommits (conventions.ComponentNone if there were none);
// branch is the current branch name, used when rt.VersionRangeFromBranchName
// is set. ctx resolves every template field of rt against live State. scheme
// and lenient parse overrideVersion when one is given. When
// rt.CollapseVersions is set, repo, scheme, and lenient are also used to
// find the highest existing tag sharing the candidate's core and qualifier
// so its numeric tail can be incremented rather than restarted at 1.
//
// When s.PreviousVersionCommit is empty, no tag was ever found walking
// history to the root and this is the project's first release: any bump
// that would otherwise apply is forced to major, so the first release
// baselines cleanly rather than bumping minor/patch off initialVersion.
//
// overrideVersion, when non-empty, is the configuration's global `version`
// setting: it replaces the inferred candidate outright, bypassing bump,
// collapsing, and identifier computation entirely. previousVersion is still
// computed by the caller from scope.Resolve, and range enforcement plus the
// NewVersion/NewRelease comparison against it still apply to the override.
func Infer(
	rt config.ReleaseType,
	rtName string,
	s *scope.Scope,
	aggregateBump conventions.Component,
	explicitBump string,
	branch string,
	ctx template.Context,
	repo gitrepo.Repository,
	scheme version.Scheme,
	lenient bool,
	overrideVersion string,
) (*Result, error) {
	var candidate *version.Version
	var component version.Component

	if overrideVersion != "" {
		parsed, err := version.Parse(scheme, overrideVersion, lenient)
		if err != nil {
			return nil, nyxerr.NewConfigurationError("invalid override version \""+overrideVersion+"\"", err, "version")
		}
		candidate = parsed
		inferLog.Printf("using configured override version %s, skipping bump/collapse/identifiers", candidate)
	} else {
		component = resolveComponent(aggregateBump, explicitBump)

		// No prior tag was ever found walking history to the root: this is the
		// project's first release, which always baselines at a major version
		// regardless of what the commits since the root imply, rather than
		// bumping off the configured initialVersion.
		if component != "" && s.PreviousVersionCommit == "" {
			component = version.ComponentMajor
		}

		baseVersion := s.PreviousVersion
		if rt.CollapseVersions {
			baseVersion = s.PrimeVersion
		}

		if component == "" {
			candidate = s.PreviousVersion
		} else {
			candidate = version.Bump(baseVersion, component)
		}

		if rt.CollapseVersions {
			qualifier, err := template.Render(rt.CollapsedVersionQualifier, ctx)
			if err != nil {
				return nil, err
			}
			candidate = version.WithPreReleaseQualifier(candidate, qualifier)

			if existing, err := highestCollapsedTag(repo, scheme, lenient, candidate, qualifier); err != nil {
				return nil, err
			} else if existing != nil {
				candidate.PreRel = append([]string(nil), existing.PreRel...)
			}
			candidate = version.Bump(candidate, version.Component(qualifier))
		}

		for _, id := range rt.Identifiers {
			qualifier, err := template.Render(id.Qualifier, ctx)
			if err != nil {
				return nil, err
			}
			value, err := template.Render(id.Value, ctx)
			if err != nil {
				return nil, err
			}
			pos := version.PositionPreRelease
			if id.Position == config.PositionBuild {
				pos = version.PositionBuild
			}
			candidate = version.WithIdentifier(candidate, pos, qualifier, value)
		}
	}

	rangePattern := rt.VersionRange
	if rt.VersionRangeFromBranchName {
		rangePattern = version.RangeFromBranchName(branch)
	}
	if rangePattern != "" {
		resolvedPattern, err := template.Render(rangePattern, ctx)
		if err != nil {
			return nil, err
		}
		if !version.InRange(candidate, resolvedPattern) {
			return nil, nyxerr.NewVersionRangeError(
				"inferred version \""+candidate.String()+"\" does not match range \""+resolvedPattern+"\"",
				"version", "releaseTypes.items."+rtName+".versionRange",
			)
		}
	}

	result := &Result{Version: candidate}
	if version.Equal(candidate, s.PreviousVersion) {
		result.NewVersion = false
		result.NewRelease = false
		inferLog.Printf("no new version: candidate equals previous (%s)", candidate)
		return result, nil
	}

	result.NewVersion = true
	publish, err := template.Render(rt.Publish, ctx)
	if err != nil {
		return nil, err
	}
	result.NewRelease = strings.EqualFold(publish, "true")

	inferLog.Printf("inferred version %s (component=%q newRelease=%v)", candidate, component, result.NewRelease)
	return result, nil
}

// highestCollapsedTag walks the repository's tags looking for the highest
// version sharing candidate's major.minor.patch core and whose pre-release
// qualifier is the given one, returning nil if none exists (the fresh
// collapsed identifier then starts its numeric tail at 1, per
// version.Bump's named-identifier behavior).
func highestCollapsedTag(repo gitrepo.Repository, scheme version.Scheme, lenient bool, candidate *version.Version, qualifier string) (*version.Version, error) {
	if repo == nil {
		return nil, nil
	}
	var best *version.Version
	err := repo.WalkHistory(func(c *gitrepo.Commit) (bool, error) {
		tags, err := repo.GetCommitTags(c.SHA)
		if err != nil {
			return false, nyxerr.NewGitError("could not read tags at commit", err)
		}
		for _, t := range tags {
			v, err := version.Parse(scheme, t.Name, lenient)
			if err != nil {
				continue
			}
			if v.Major != candidate.Major || v.Minor != candidate.Minor || v.Patch != candidate.Patch {
				continue
			}
			if len(v.PreRel) == 0 || v.PreRel[0] != qualifier {
				continue
			}
			if best == nil || version.Compare(v, best) > 0 {
				best = v
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}

// resolveComponent applies the explicit configuration bump override, if
// set, ahead of the matcher's aggregate.
func resolveComponent(aggregate conventions.Component, explicit string) version.Component {
	if explicit != "" {
		return version.Component(explicit)
	}
	switch aggregate {
	case conventions.ComponentNone, "":
		return ""
	case conventions.ComponentMajor:
		return version.ComponentMajor
	case conventions.ComponentMinor:
		return version.ComponentMinor
	case conventions.ComponentPatch:
		return version.ComponentPatch
	default:
		return version.Component(aggregate)
	}
}

// AggregateBump returns the highest-ranked bump component across commits,
// or conventions.ComponentNone if none contributes a bump.
func AggregateBump(commits []string, matcher *conventions.Matcher) conventions.Component {
	best := conventions.ComponentNone
	for _, msg := range commits {
		if c, ok := matcher.Classify(msg); ok {
			best = conventions.Max(best, c)
		}
	}
	return best
}
