package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLenientAcceptsPrefixAndWhitespace(t *testing.T) {
	v, err := Parse(SchemeSemVer, "  v1.2.3-alpha.1+build.7  ", true)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Major)
	assert.Equal(t, 2, v.Minor)
	assert.Equal(t, 3, v.Patch)
	assert.Equal(t, []string{"alpha", "1"}, v.PreRel)
	assert.Equal(t, []string{"build", "7"}, v.Build)
}

func TestParseStrictRejectsPrefix(t *testing.T) {
	_, err := Parse(SchemeSemVer, "v1.2.3", false)
	require.Error(t, err)
}

func TestParseStrictAcceptsCanonical(t *testing.T) {
	v, err := Parse(SchemeSemVer, "1.2.3", false)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v.String())
}

func TestCompareOrdering(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.0.0", "1.0.0", 0},
		{"1.0.0-alpha", "1.0.0", -1},
		{"1.0.0", "1.0.0-alpha", 1},
		{"1.0.0-alpha", "1.0.0-alpha.1", -1},
		{"1.0.0-alpha.1", "1.0.0-alpha.beta", -1},
		{"1.0.0-alpha.beta", "1.0.0-beta", -1},
		{"1.0.0-beta.2", "1.0.0-beta.11", -1},
		{"1.0.0-rc.1", "1.0.0", -1},
	}
	for _, c := range cases {
		a, err := Parse(SchemeSemVer, c.a, true)
		require.NoError(t, err)
		b, err := Parse(SchemeSemVer, c.b, true)
		require.NoError(t, err)
		assert.Equal(t, c.want, Compare(a, b), "compare(%s,%s)", c.a, c.b)
	}
}

func TestEqualIgnoresBuildMetadata(t *testing.T) {
	a, err := Parse(SchemeSemVer, "1.2.3+build.1", true)
	require.NoError(t, err)
	b, err := Parse(SchemeSemVer, "1.2.3+build.2", true)
	require.NoError(t, err)
	assert.True(t, Equal(a, b))
}

func TestBumpCoreComponents(t *testing.T) {
	v := MustParse(SchemeSemVer, "1.2.3-alpha.1+build.9")

	assert.Equal(t, "2.0.0", Bump(v, ComponentMajor).String())
	assert.Equal(t, "1.3.0", Bump(v, ComponentMinor).String())
	assert.Equal(t, "1.2.4", Bump(v, ComponentPatch).String())
}

func TestBumpNamedIdentifierAppendsOrIncrements(t *testing.T) {
	v := MustParse(SchemeSemVer, "1.3.0")

	first := Bump(v, Component("alpha"))
	assert.Equal(t, "1.3.0-alpha.1", first.String())

	second := Bump(first, Component("alpha"))
	assert.Equal(t, "1.3.0-alpha.2", second.String())
}

func TestWithIdentifierAppendsAndDedups(t *testing.T) {
	v := MustParse(SchemeSemVer, "1.0.0")

	withSHA := WithIdentifier(v, PositionBuild, "sha", "abc1234")
	assert.Equal(t, "1.0.0+sha.abc1234", withSHA.String())

	replaced := WithIdentifier(withSHA, PositionBuild, "sha", "def5678")
	assert.Equal(t, "1.0.0+sha.def5678", replaced.String())
}

func TestWithPreReleaseQualifierThenBump(t *testing.T) {
	v := MustParse(SchemeSemVer, "1.3.0")
	candidate := WithPreReleaseQualifier(v, "alpha")
	candidate = Bump(candidate, Component("alpha"))
	assert.Equal(t, "1.3.0-alpha.1", candidate.String())
}

func TestInRange(t *testing.T) {
	v := MustParse(SchemeSemVer, "1.4.1-rel")
	assert.True(t, InRange(v, `^1\.4\.`))

	v2 := MustParse(SchemeSemVer, "1.5.0")
	assert.False(t, InRange(v2, `^1\.4\.`))
}

func TestRangeFromBranchName(t *testing.T) {
	assert.Equal(t, `^1\.4\.`, RangeFromBranchName("rel/1.4.x"))
	assert.Equal(t, `^2\.0\.`, RangeFromBranchName("release-2.0.x"))
}
