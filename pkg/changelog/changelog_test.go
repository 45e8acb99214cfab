package changelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nyxreleaseng/nyx/pkg/config"
	"github.com/nyxreleaseng/nyx/pkg/gitrepo"
	"github.com/nyxreleaseng/nyx/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSections() *config.OrderedMap[string] {
	m := config.NewOrderedMap[string]()
	m.Set("Features", `^feat$`)
	m.Set("Fixes", `^fix$`)
	return m
}

func testCommits() []*gitrepo.Commit {
	return []*gitrepo.Commit{
		{SHA: "aaa111", ShortSHA: "aaa111", Message: "feat(api): add search endpoint"},
		{SHA: "bbb222", ShortSHA: "bbb222", Message: "fix: correct off-by-one"},
		{SHA: "ccc333", ShortSHA: "ccc333", Message: "chore: bump deps"},
	}
}

func TestBuildGroupsCommitsBySectionRegex(t *testing.T) {
	cfg := config.Changelog{Title: "Nyx", Sections: testSections()}
	doc, err := Build(cfg, testCommits(), "1.2.0", "2026-08-01", template.MapContext{})
	require.NoError(t, err)

	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Features", doc.Sections[0].Name)
	require.Len(t, doc.Sections[0].Entries, 1)
	assert.Equal(t, "add search endpoint", doc.Sections[0].Entries[0].Title)
	assert.Equal(t, "aaa111", doc.Sections[0].Entries[0].SHA)

	assert.Equal(t, "Fixes", doc.Sections[1].Name)
	require.Len(t, doc.Sections[1].Entries, 1)
	assert.Equal(t, "correct off-by-one", doc.Sections[1].Entries[0].Title)
}

func TestBuildDefaultMarkdownIncludesHeaderAndSections(t *testing.T) {
	cfg := config.Changelog{Title: "Nyx", Sections: testSections()}
	doc, err := Build(cfg, testCommits(), "1.2.0", "2026-08-01", template.MapContext{})
	require.NoError(t, err)

	assert.Contains(t, doc.Markdown, "# Nyx")
	assert.Contains(t, doc.Markdown, "## 1.2.0 (2026-08-01)")
	assert.Contains(t, doc.Markdown, "### Features")
	assert.Contains(t, doc.Markdown, "- add search endpoint (aaa111)")
	assert.Contains(t, doc.Markdown, "### Fixes")
}

func TestBuildOmitsEmptySections(t *testing.T) {
	sections := config.NewOrderedMap[string]()
	sections.Set("Features", `^feat$`)
	sections.Set("Docs", `^docs$`)
	cfg := config.Changelog{Sections: sections}

	doc, err := Build(cfg, testCommits(), "1.0.0", "2026-08-01", template.MapContext{})
	require.NoError(t, err)
	assert.NotContains(t, doc.Markdown, "### Docs")
}

func TestBuildAppliesSubstitutions(t *testing.T) {
	cfg := config.Changelog{
		Title:    "Nyx",
		Sections: testSections(),
		Substitutions: []config.Substitution{
			{Match: `off-by-one`, Replace: "boundary bug"},
		},
	}
	doc, err := Build(cfg, testCommits(), "1.2.0", "2026-08-01", template.MapContext{})
	require.NoError(t, err)
	assert.Contains(t, doc.Markdown, "boundary bug")
	assert.NotContains(t, doc.Markdown, "off-by-one")
}

func TestBuildCustomTemplateOverridesLayout(t *testing.T) {
	cfg := config.Changelog{
		Sections: testSections(),
		Template: "Release {{changelog.version}} on {{changelog.releaseDate}}:\n{{changelog.sections.Features}}",
	}
	doc, err := Build(cfg, testCommits(), "1.2.0", "2026-08-01", template.MapContext{})
	require.NoError(t, err)
	assert.Contains(t, doc.Markdown, "Release 1.2.0 on 2026-08-01:")
	assert.Contains(t, doc.Markdown, "add search endpoint")
}

func TestBuildWritesFileAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CHANGELOG.md")
	cfg := config.Changelog{Title: "Nyx", Sections: testSections(), Path: path}

	_, err := Build(cfg, testCommits(), "1.2.0", "2026-08-01", template.MapContext{})
	require.NoError(t, err)

	info1, err := os.Stat(path)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = Build(cfg, testCommits(), "1.2.0", "2026-08-01", template.MapContext{})
	require.NoError(t, err)

	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime(), "identical content must not be rewritten")
}

func TestBuildRewritesWhenContentChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CHANGELOG.md")
	cfg := config.Changelog{Title: "Nyx", Sections: testSections(), Path: path}

	_, err := Build(cfg, testCommits(), "1.2.0", "2026-08-01", template.MapContext{})
	require.NoError(t, err)

	_, err = Build(cfg, testCommits(), "1.3.0", "2026-08-02", template.MapContext{})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "1.3.0")
}
