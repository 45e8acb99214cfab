package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/nyxreleaseng/nyx/pkg/orchestrator"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersEveryPhaseCommand(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"infer", "mark", "make", "publish", "clean"} {
		assert.True(t, names[want], "root command missing %q", want)
	}
}

func TestPublishCommandAliasesRelease(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() == "publish" {
			assert.Contains(t, c.Aliases, "release")
			return
		}
	}
	t.Fatal("publish command not found")
}

func TestCLIOptionsFromFlagsMapsOverrideVersionAndDryRun(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("configuration-file", "", "")
	cmd.Flags().String("shared-configuration-file", "", "")
	cmd.Flags().String("preset", "", "")
	cmd.Flags().String("state-file", "", "")
	cmd.Flags().String("scheme", "", "")
	cmd.Flags().String("bump", "", "")
	cmd.Flags().String("override-version", "", "")
	cmd.Flags().String("verbosity", "", "")
	cmd.Flags().Bool("resume", false, "")
	cmd.Flags().Bool("dry-run", false, "")
	cmd.Flags().Bool("verbose", false, "")

	require.NoError(t, cmd.Flags().Set("override-version", "9.9.9"))
	require.NoError(t, cmd.Flags().Set("dry-run", "true"))

	opts := cliOptionsFromFlags(cmd)
	assert.Equal(t, "9.9.9", opts.Version)
	require.NotNil(t, opts.DryRun)
	assert.True(t, *opts.DryRun)
	assert.Nil(t, opts.Resume, "resume flag was never set, so it must stay nil rather than default to false")
}

// withTempGitRepo creates a throwaway repository with one commit and runs fn
// with the process working directory set to it, restoring the original
// directory afterward.
func withTempGitRepo(t *testing.T, fn func(repoRoot string)) {
	t.Helper()

	originalDir, err := os.Getwd()
	require.NoError(t, err)

	repoRoot := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = repoRoot
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v failed: %s", args, out)
	}
	run("init", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "README.md"), []byte("hello\n"), 0o644))
	run("add", "README.md")
	run("commit", "-m", "feat: initial import")

	require.NoError(t, os.Chdir(repoRoot))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(originalDir))
	})

	fn(repoRoot)
}

func TestInferCommandAgainstARealRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	withTempGitRepo(t, func(repoRoot string) {
		cmd := newInferCommand()
		cmd.Flags().String("configuration-file", "", "")
		cmd.Flags().String("shared-configuration-file", "", "")
		cmd.Flags().String("preset", "simple", "")
		cmd.Flags().String("state-file", "", "")
		cmd.Flags().String("scheme", "", "")
		cmd.Flags().String("bump", "", "")
		cmd.Flags().String("override-version", "", "")
		cmd.Flags().String("verbosity", "", "")
		cmd.Flags().Bool("resume", false, "")
		cmd.Flags().Bool("dry-run", false, "")
		cmd.Flags().Bool("verbose", false, "")

		pipeline, err := buildPipeline(cmd)
		require.NoError(t, err)
		require.Equal(t, repoRoot, pipeline.Directory)

		result, err := pipeline.RunUpTo(orchestrator.PhaseInfer)
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", result.State.Version, "a repository with no prior tag is a first release and baselines at major")
		assert.True(t, result.State.NewVersion)
	})
}
