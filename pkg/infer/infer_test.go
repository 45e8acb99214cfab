package infer

import (
	"testing"
	"time"

	"github.com/nyxreleaseng/nyx/pkg/config"
	"github.com/nyxreleaseng/nyx/pkg/conventions"
	"github.com/nyxreleaseng/nyx/pkg/gitrepo"
	"github.com/nyxreleaseng/nyx/pkg/scope"
	"github.com/nyxreleaseng/nyx/pkg/template"
	"github.com/nyxreleaseng/nyx/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctx() template.Context {
	return template.MapContext{At: time.Time{}}
}

func TestInferFirstReleaseBumpsFromInitialVersion(t *testing.T) {
	s := &scope.Scope{PreviousVersion: version.MustParse(version.SchemeSemVer, "0.1.0")}
	rt := config.ReleaseType{Publish: "true"}

	result, err := Infer(rt, "mainline", s, conventions.ComponentMinor, "", "main", ctx(), nil, version.SchemeSemVer, true, "")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", result.Version.String(), "a first release always baselines at major, regardless of the commits' own bump")
	assert.True(t, result.NewVersion)
	assert.True(t, result.NewRelease)
}

func TestInferFirstReleaseWithNoSignificantCommitsKeepsInitialVersion(t *testing.T) {
	s := &scope.Scope{PreviousVersion: version.MustParse(version.SchemeSemVer, "0.1.0")}
	rt := config.ReleaseType{Publish: "true"}

	result, err := Infer(rt, "mainline", s, conventions.ComponentNone, "", "main", ctx(), nil, version.SchemeSemVer, true, "")
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", result.Version.String(), "no bump applies, so the first-release override has nothing to force to major")
	assert.False(t, result.NewVersion)
}

func TestInferNoSignificantCommitsKeepsPreviousVersion(t *testing.T) {
	s := &scope.Scope{PreviousVersion: version.MustParse(version.SchemeSemVer, "1.2.3"), PreviousVersionCommit: "c0"}
	rt := config.ReleaseType{Publish: "true"}

	result, err := Infer(rt, "mainline", s, conventions.ComponentNone, "", "main", ctx(), nil, version.SchemeSemVer, true, "")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", result.Version.String())
	assert.False(t, result.NewVersion)
	assert.False(t, result.NewRelease)
}

func TestInferExplicitBumpOverridesAggregate(t *testing.T) {
	s := &scope.Scope{PreviousVersion: version.MustParse(version.SchemeSemVer, "1.2.3"), PreviousVersionCommit: "c0"}
	rt := config.ReleaseType{Publish: "true"}

	result, err := Infer(rt, "mainline", s, conventions.ComponentPatch, "major", "main", ctx(), nil, version.SchemeSemVer, true, "")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", result.Version.String())
}

func TestInferCollapsedVersionsStartsOrdinalAtOneWhenNoPriorTag(t *testing.T) {
	s := &scope.Scope{
		PreviousVersion:       version.MustParse(version.SchemeSemVer, "1.2.0"),
		PreviousVersionCommit: "c0",
		PrimeVersion:          version.MustParse(version.SchemeSemVer, "1.2.0"),
	}
	rt := config.ReleaseType{
		CollapseVersions:          true,
		CollapsedVersionQualifier: "alpha",
		Publish:                   "true",
	}
	repo := &gitrepo.Fake{Branch: "alpha", Clean: true}

	result, err := Infer(rt, "maturity", s, conventions.ComponentMinor, "", "alpha", ctx(), repo, version.SchemeSemVer, true, "")
	require.NoError(t, err)
	assert.Equal(t, "1.3.0-alpha.1", result.Version.String())
}

func TestInferCollapsedVersionsIncrementsExistingOrdinal(t *testing.T) {
	s := &scope.Scope{
		PreviousVersion:       version.MustParse(version.SchemeSemVer, "1.3.0-alpha.2"),
		PreviousVersionCommit: "c1",
		PrimeVersion:          version.MustParse(version.SchemeSemVer, "1.2.0"),
	}
	rt := config.ReleaseType{
		CollapseVersions:          true,
		CollapsedVersionQualifier: "alpha",
		Publish:                   "true",
	}
	repo := &gitrepo.Fake{
		Branch: "alpha",
		Clean:  true,
		Commits: []*gitrepo.Commit{
			{SHA: "c1"},
		},
		TagsByCommit: map[string][]gitrepo.Tag{
			"c1": {
				{Name: "v1.3.0-alpha.1", Target: "c1"},
				{Name: "v1.3.0-alpha.2", Target: "c1"},
			},
		},
	}

	result, err := Infer(rt, "maturity", s, conventions.ComponentMinor, "", "alpha", ctx(), repo, version.SchemeSemVer, true, "")
	require.NoError(t, err)
	assert.Equal(t, "1.3.0-alpha.3", result.Version.String())
}

func TestInferAppliesIdentifiersInOrder(t *testing.T) {
	s := &scope.Scope{PreviousVersion: version.MustParse(version.SchemeSemVer, "1.0.0"), PreviousVersionCommit: "c0"}
	rt := config.ReleaseType{
		Publish: "true",
		Identifiers: []config.Identifier{
			{Position: config.PositionBuild, Qualifier: "sha", Value: "abc1234"},
		},
	}

	result, err := Infer(rt, "mainline", s, conventions.ComponentPatch, "", "main", ctx(), nil, version.SchemeSemVer, true, "")
	require.NoError(t, err)
	assert.Equal(t, "1.0.1+sha.abc1234", result.Version.String())
}

func TestInferVersionRangeFromBranchNameRejectsMismatch(t *testing.T) {
	s := &scope.Scope{PreviousVersion: version.MustParse(version.SchemeSemVer, "2.4.0"), PreviousVersionCommit: "c0"}
	rt := config.ReleaseType{
		Publish:                    "true",
		VersionRangeFromBranchName: true,
	}

	_, err := Infer(rt, "maintenance", s, conventions.ComponentMinor, "", "rel/1.2.x", ctx(), nil, version.SchemeSemVer, true, "")
	assert.Error(t, err)
}

func TestInferVersionRangeFromBranchNameAcceptsMatch(t *testing.T) {
	s := &scope.Scope{PreviousVersion: version.MustParse(version.SchemeSemVer, "1.2.0"), PreviousVersionCommit: "c0"}
	rt := config.ReleaseType{
		Publish:                    "true",
		VersionRangeFromBranchName: true,
	}

	result, err := Infer(rt, "maintenance", s, conventions.ComponentPatch, "", "rel/1.2.x", ctx(), nil, version.SchemeSemVer, true, "")
	require.NoError(t, err)
	assert.Equal(t, "1.2.1", result.Version.String())
}

func TestInferNoReleaseWhenPublishResolvesFalse(t *testing.T) {
	s := &scope.Scope{PreviousVersion: version.MustParse(version.SchemeSemVer, "1.0.0"), PreviousVersionCommit: "c0"}
	rt := config.ReleaseType{Publish: "false"}

	result, err := Infer(rt, "internal", s, conventions.ComponentPatch, "", "main", ctx(), nil, version.SchemeSemVer, true, "")
	require.NoError(t, err)
	assert.True(t, result.NewVersion)
	assert.False(t, result.NewRelease)
}

func TestInferOverrideVersionReplacesCandidateIgnoringBump(t *testing.T) {
	s := &scope.Scope{PreviousVersion: version.MustParse(version.SchemeSemVer, "1.0.0")}
	rt := config.ReleaseType{Publish: "true"}

	result, err := Infer(rt, "mainline", s, conventions.ComponentPatch, "", "main", ctx(), nil, version.SchemeSemVer, true, "2.5.0")
	require.NoError(t, err)
	assert.Equal(t, "2.5.0", result.Version.String())
	assert.True(t, result.NewVersion)
	assert.True(t, result.NewRelease)
}

func TestInferOverrideVersionEqualToPreviousYieldsNoNewVersion(t *testing.T) {
	s := &scope.Scope{PreviousVersion: version.MustParse(version.SchemeSemVer, "1.0.0")}
	rt := config.ReleaseType{Publish: "true"}

	result, err := Infer(rt, "mainline", s, conventions.ComponentMajor, "", "main", ctx(), nil, version.SchemeSemVer, true, "1.0.0")
	require.NoError(t, err)
	assert.False(t, result.NewVersion)
	assert.False(t, result.NewRelease)
}

func TestAggregateBumpPicksHighestAcrossCommits(t *testing.T) {
	items := config.NewOrderedMap[config.Convention]()
	items.Set("cc", config.Convention{
		Expression: `^(?P<type>\w+)(?:\(.+\))?(?P<breaking>!)?:\s*(?P<title>.+)$`,
		BumpExpressions: map[string]string{
			"major": `^.*!:.*$`,
			"minor": `^feat(?:\(.+\))?:.*$`,
			"patch": `^fix(?:\(.+\))?:.*$`,
		},
	})
	matcher, err := conventions.Compile(config.CommitMessageConventions{Enabled: []string{"cc"}, Items: items})
	require.NoError(t, err)

	best := AggregateBump([]string{"fix: a", "feat: b", "chore: c"}, matcher)
	assert.Equal(t, conventions.ComponentMinor, best)
}
