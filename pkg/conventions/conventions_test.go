package conventions

import (
	"testing"

	"github.com/nyxreleaseng/nyx/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.CommitMessageConventions {
	items := config.NewOrderedMap[config.Convention]()
	items.Set("conventionalCommits", config.Convention{
		Expression: `^(?P<type>\w+)(?:\((?P<scope>[^)]+)\))?(?P<breaking>!)?:\s*(?P<title>.+)$`,
		BumpExpressions: map[string]string{
			"major": `^.*!:.*$`,
			"minor": `^feat(?:\(.+\))?:.*$`,
			"patch": `^fix(?:\(.+\))?:.*$`,
		},
	})
	return config.CommitMessageConventions{
		Enabled: []string{"conventionalCommits"},
		Items:   items,
	}
}

func TestClassifyFeatIsMinor(t *testing.T) {
	m, err := Compile(testConfig())
	require.NoError(t, err)

	c, ok := m.Classify("feat(scope): add thing")
	require.True(t, ok)
	assert.Equal(t, ComponentMinor, c)
}

func TestClassifyFixIsPatch(t *testing.T) {
	m, err := Compile(testConfig())
	require.NoError(t, err)

	c, ok := m.Classify("fix: npe")
	require.True(t, ok)
	assert.Equal(t, ComponentPatch, c)
}

func TestClassifyBreakingIsMajor(t *testing.T) {
	m, err := Compile(testConfig())
	require.NoError(t, err)

	c, ok := m.Classify("feat!: breaking change")
	require.True(t, ok)
	assert.Equal(t, ComponentMajor, c)
}

func TestClassifyNoMatchReturnsFalse(t *testing.T) {
	m, err := Compile(testConfig())
	require.NoError(t, err)

	_, ok := m.Classify("this is not a conventional commit")
	assert.False(t, ok)
}

func TestClassifyMatchedButNoBump(t *testing.T) {
	m, err := Compile(testConfig())
	require.NoError(t, err)

	c, ok := m.Classify("chore: update deps")
	require.True(t, ok)
	assert.Equal(t, ComponentNone, c)
}

func TestCompileUnknownEnabledConventionFails(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = []string{"doesNotExist"}
	_, err := Compile(cfg)
	assert.Error(t, err)
}

func TestMaxPicksHigherRank(t *testing.T) {
	assert.Equal(t, ComponentMajor, Max(ComponentMinor, ComponentMajor))
	assert.Equal(t, ComponentPatch, Max(ComponentNone, ComponentPatch))
}
