package gitrepo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeWalkHistoryStopsOnFalse(t *testing.T) {
	f := &Fake{
		Branch: "main",
		Clean:  true,
		Commits: []*Commit{
			{SHA: "c3", Message: "feat: c3"},
			{SHA: "c2", Message: "fix: c2"},
			{SHA: "c1", Message: "chore: c1"},
		},
	}

	var seen []string
	err := f.WalkHistory(func(c *Commit) (bool, error) {
		seen = append(seen, c.SHA)
		return c.SHA != "c2", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c2"}, seen)
}

func TestFakeDetachedHeadErrors(t *testing.T) {
	f := &Fake{Detached: true}
	_, err := f.GetCurrentBranch()
	assert.Error(t, err)
}

func TestFakeCommitPrependsAndTracksParent(t *testing.T) {
	f := &Fake{
		Commits: []*Commit{{SHA: "c1"}},
	}

	newCommit, err := f.Commit("feat: new thing")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, newCommit.Parents)
	assert.Equal(t, newCommit.SHA, f.Commits[0].SHA)
	assert.Len(t, f.Commits, 2)
}

func TestFakeTagRecordsAgainstHEADByDefault(t *testing.T) {
	f := &Fake{Commits: []*Commit{{SHA: "c1"}}}

	tag, err := f.Tag("v1.0.0", "", "Release 1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "c1", tag.Target)
	assert.True(t, tag.Annotated)

	tags, err := f.GetCommitTags("c1")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "v1.0.0", tags[0].Name)
}

func TestFakePushRecordsRemoteName(t *testing.T) {
	f := &Fake{}
	require.NoError(t, f.Push("origin"))
	assert.Equal(t, []string{"origin"}, f.Pushed)
}

func TestParseLogEntries(t *testing.T) {
	out := "sha1full\x1fsha1\x1fAlice <a@x.com>\x1fAlice <a@x.com>\x1f2024-01-02T03:04:05Z\x1f\x1ffeat: add thing\n\x1e"
	noTags := func(string) ([]Tag, error) { return nil, nil }

	commits, err := parseLogEntries(out, noTags)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "sha1full", commits[0].SHA)
	assert.Equal(t, "feat: add thing", commits[0].Message)
	assert.Empty(t, commits[0].Parents)
}

func TestParseLogEntriesAttachesTags(t *testing.T) {
	out := "sha1full\x1fsha1\x1fAlice <a@x.com>\x1fAlice <a@x.com>\x1f2024-01-02T03:04:05Z\x1fparentsha\x1ffix: bug\n\x1e"
	withTags := func(sha string) ([]Tag, error) { return []Tag{{Name: "v1.0.0", Target: sha}}, nil }

	commits, err := parseLogEntries(out, withTags)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, []string{"parentsha"}, commits[0].Parents)
	assert.Equal(t, []string{"v1.0.0"}, commits[0].Tags)
}
