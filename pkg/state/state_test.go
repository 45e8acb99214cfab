package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutResumeReturnsFreshState(t *testing.T) {
	s, err := Load("/nonexistent/state.yml", false, "/repo", time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, "/repo", s.Directory)
	assert.Equal(t, "", s.Version)
}

func TestLoadMissingFileWithResumeReturnsFreshState(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "missing.yml"), true, dir, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, dir, s.Directory)
}

func TestSaveThenLoadRoundTripsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nyx-state.yml")

	s := New(dir, time.Unix(100, 0))
	s.Version = "1.2.3"
	s.Branch = "main"
	s.HeadSHA = "abc123"
	s.Mark = PhaseResult{Ran: true, Version: "1.2.3"}

	require.NoError(t, Save(path, s))

	loaded, err := Load(path, true, dir, time.Unix(200, 0))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", loaded.Version)
	assert.Equal(t, "main", loaded.Branch)
	assert.Equal(t, "abc123", loaded.HeadSHA)
	assert.True(t, loaded.Mark.Ran)
}

func TestSaveThenLoadRoundTripsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nyx-state.json")

	s := New(dir, time.Unix(100, 0))
	s.Version = "2.0.0"

	require.NoError(t, Save(path, s))

	loaded, err := Load(path, true, dir, time.Unix(200, 0))
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", loaded.Version)
}

func TestSaveIsAtomicNoStaleTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nyx-state.yml")

	require.NoError(t, Save(path, New(dir, time.Unix(0, 0))))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "nyx-state.yml", entries[0].Name())
}

func TestLoadPreservesUnknownFieldsOnRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nyx-state.yml")

	require.NoError(t, os.WriteFile(path, []byte("version: 1.0.0\nfutureField: keep-me\n"), 0o644))

	s, err := Load(path, true, dir, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", s.Version)
	assert.Equal(t, "keep-me", s.Extra["futureField"])

	require.NoError(t, Save(path, s))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "keep-me")
}

func TestStaleDetectsHeadConfigAndDirectoryDrift(t *testing.T) {
	s := &State{HeadSHA: "sha1", ConfigurationHash: "hash1", Directory: "/repo"}
	assert.False(t, s.Stale("sha1", "hash1", "/repo"))
	assert.True(t, s.Stale("sha2", "hash1", "/repo"))
	assert.True(t, s.Stale("sha1", "hash2", "/repo"))
	assert.True(t, s.Stale("sha1", "hash1", "/other"))
}

func TestInvalidateComputedClearsOnlyComputedFields(t *testing.T) {
	s := &State{
		Version:     "1.2.3",
		ReleaseType: "mainline",
		Branch:      "main",
		Mark:        PhaseResult{Ran: true, Version: "1.2.3"},
	}
	s.InvalidateComputed()
	assert.Equal(t, "", s.Version)
	assert.Equal(t, "", s.ReleaseType)
	assert.Equal(t, "main", s.Branch, "non-computed fields survive invalidation")
	assert.True(t, s.Mark.Ran, "phase bookkeeping survives invalidation")
}

func TestHashConfigurationIsDeterministic(t *testing.T) {
	raw := map[string]interface{}{"scheme": "semver", "initialVersion": "0.1.0"}
	h1, err := HashConfiguration(raw)
	require.NoError(t, err)
	h2, err := HashConfiguration(raw)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	raw["initialVersion"] = "0.2.0"
	h3, err := HashConfiguration(raw)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
