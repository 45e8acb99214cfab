package scope

import (
	"testing"

	"github.com/nyxreleaseng/nyx/pkg/config"
	"github.com/nyxreleaseng/nyx/pkg/conventions"
	"github.com/nyxreleaseng/nyx/pkg/gitrepo"
	"github.com/nyxreleaseng/nyx/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatcher(t *testing.T) *conventions.Matcher {
	items := config.NewOrderedMap[config.Convention]()
	items.Set("cc", config.Convention{
		Expression: `^(?P<type>\w+)(?:\(.+\))?(?P<breaking>!)?:\s*(?P<title>.+)$`,
		BumpExpressions: map[string]string{
			"major": `^.*!:.*$`,
			"minor": `^feat(?:\(.+\))?:.*$`,
			"patch": `^fix(?:\(.+\))?:.*$`,
		},
	})
	m, err := conventions.Compile(config.CommitMessageConventions{Enabled: []string{"cc"}, Items: items})
	require.NoError(t, err)
	return m
}

func TestResolveFirstReleaseHasNoPreviousVersion(t *testing.T) {
	repo := &gitrepo.Fake{
		Branch: "main",
		Clean:  true,
		Commits: []*gitrepo.Commit{
			{SHA: "c1", Message: "feat: initial"},
		},
	}

	s, err := Resolve(repo, version.SchemeSemVer, true, "0.1.0", `^\d+\.\d+\.\d+$`, "", testMatcher(t))
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", s.PreviousVersion.String())
	assert.Equal(t, "", s.PreviousVersionCommit)
	assert.Equal(t, "c1", s.FinalCommit)
	require.Len(t, s.SignificantCommits, 1)
	assert.Equal(t, "c1", s.SignificantCommits[0].SHA)
}

func TestResolvePatchBumpFindsTaggedParent(t *testing.T) {
	repo := &gitrepo.Fake{
		Branch: "main",
		Clean:  true,
		Commits: []*gitrepo.Commit{
			{SHA: "c2", Message: "fix: npe"},
			{SHA: "c1", Message: "feat: initial"},
		},
		TagsByCommit: map[string][]gitrepo.Tag{
			"c1": {{Name: "v1.2.3", Target: "c1"}},
		},
	}

	s, err := Resolve(repo, version.SchemeSemVer, true, "0.1.0", `^v\d+\.\d+\.\d+$`, "", testMatcher(t))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", s.PreviousVersion.String())
	assert.Equal(t, "c1", s.PreviousVersionCommit)
	require.Len(t, s.SignificantCommits, 1)
	assert.Equal(t, "c2", s.SignificantCommits[0].SHA)
}

func TestResolveDetachedHeadErrors(t *testing.T) {
	repo := &gitrepo.Fake{Detached: true}
	_, err := Resolve(repo, version.SchemeSemVer, true, "0.1.0", "", "", testMatcher(t))
	assert.Error(t, err)
}

func TestResolvePrimeVersionIgnoresCollapsedTags(t *testing.T) {
	repo := &gitrepo.Fake{
		Branch: "alpha",
		Clean:  true,
		Commits: []*gitrepo.Commit{
			{SHA: "c2", Message: "feat: x"},
			{SHA: "c1", Message: "feat: base"},
		},
		TagsByCommit: map[string][]gitrepo.Tag{
			"c1": {{Name: "v1.2.0-alpha.1", Target: "c1"}, {Name: "v1.1.0", Target: "c1"}},
		},
	}

	s, err := Resolve(repo, version.SchemeSemVer, true, "0.1.0", `^v\d+\.\d+\.\d+(-alpha\.\d+)?$`, "alpha", testMatcher(t))
	require.NoError(t, err)
	assert.Equal(t, "1.2.0-alpha.1", s.PreviousVersion.String())
	assert.Equal(t, "1.1.0", s.PrimeVersion.String())
}
