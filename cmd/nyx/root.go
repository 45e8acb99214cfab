package main

import (
	"fmt"
	"os"
	"time"

	"github.com/nyxreleaseng/nyx/pkg/config"
	"github.com/nyxreleaseng/nyx/pkg/console"
	"github.com/nyxreleaseng/nyx/pkg/constants"
	"github.com/nyxreleaseng/nyx/pkg/gitrepo"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
	"github.com/nyxreleaseng/nyx/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   constants.CLIName,
	Short: "Nyx infers, tags, and publishes releases from your commit history",
	Long: `Nyx computes the next version from your commit history and Git state,
then tags, changelogs, and publishes the release.

Common tasks:
  nyx infer     # compute the next version without touching anything
  nyx mark      # infer, then commit/tag/push
  nyx make      # infer, mark, then build the changelog
  nyx release   # infer, mark, make, then publish to hosting services
  nyx clean     # remove the state file so the next run starts fresh`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("configuration-file", "c", "", "path to the configuration file")
	flags.String("shared-configuration-file", "", "path to a shared/team configuration file")
	flags.String("preset", "", "named built-in configuration preset (simple, extended, extendedGitFlow)")
	flags.String("state-file", "", "path to the state file")
	flags.String("scheme", "", "version scheme override")
	flags.String("bump", "", "explicit bump component override (major, minor, patch)")
	flags.String("override-version", "", "explicit version override, bypassing bump inference")
	flags.String("verbosity", "", "log verbosity (trace, debug, info, warning, error, fatal)")
	flags.Bool("resume", false, "resume from the existing state file instead of starting fresh")
	flags.Bool("dry-run", false, "compute everything but skip git/network side effects")
	flags.BoolP("verbose", "v", false, "shorthand for --verbosity=debug")

	rootCmd.SetOut(os.Stderr)
	rootCmd.AddCommand(newInferCommand())
	rootCmd.AddCommand(newMarkCommand())
	rootCmd.AddCommand(newMakeCommand())
	rootCmd.AddCommand(newPublishCommand())
	rootCmd.AddCommand(newCleanCommand())
}

// cliOptionsFromFlags builds a config.CLIOptions from persistent flags,
// tracking Changed() so an unset bool flag doesn't shadow a `true` set by
// the environment or a configuration file.
func cliOptionsFromFlags(cmd *cobra.Command) config.CLIOptions {
	flags := cmd.Flags()
	get := func(name string) string {
		v, _ := flags.GetString(name)
		return v
	}

	opts := config.CLIOptions{
		ConfigurationFile:       get("configuration-file"),
		SharedConfigurationFile: get("shared-configuration-file"),
		Preset:                  get("preset"),
		StateFile:               get("state-file"),
		Scheme:                  get("scheme"),
		Bump:                    get("bump"),
		Version:                 get("override-version"),
		Verbosity:               get("verbosity"),
	}

	if verbose, _ := flags.GetBool("verbose"); verbose && opts.Verbosity == "" {
		opts.Verbosity = "debug"
	}
	if flags.Changed("resume") {
		v, _ := flags.GetBool("resume")
		opts.Resume = &v
	}
	if flags.Changed("dry-run") {
		v, _ := flags.GetBool("dry-run")
		opts.DryRun = &v
	}
	return opts
}

// buildPipeline assembles a Pipeline from the current working directory's
// Git repository and the layered configuration resolved from flags, the
// environment, and any configuration files.
func buildPipeline(cmd *cobra.Command) (*orchestrator.Pipeline, error) {
	cfg, err := config.Load(cliOptionsFromFlags(cmd))
	if err != nil {
		return nil, err
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, nyxerr.NewIOError("could not determine working directory", err)
	}

	repo, err := gitrepo.Open(dir)
	if err != nil {
		return nil, err
	}

	return &orchestrator.Pipeline{Config: cfg, Repo: repo, Now: time.Now(), Directory: dir}, nil
}

func reportResult(result *orchestrator.Result) {
	s := result.State
	if !s.NewVersion {
		fmt.Println(console.FormatInfoMessage("no new version inferred; nothing to do"))
		return
	}
	fmt.Println(console.FormatSuccessMessage("inferred version " + s.Version + " (release type " + s.ReleaseType + ")"))
	if s.Mark.Ran {
		fmt.Println(console.FormatInfoMessage("mark complete"))
	}
	if s.Make.Ran {
		fmt.Println(console.FormatInfoMessage("make complete"))
	}
	if s.Publish.Ran {
		if s.Publish.Error == "" {
			fmt.Println(console.FormatSuccessMessage("publish complete"))
		} else {
			fmt.Println(console.FormatWarningMessage("publish completed with errors: " + s.Publish.Error))
		}
	}
	for _, failure := range result.PublishFailures {
		fmt.Println(console.FormatErrorMessage(failure.Error()))
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
	os.Exit(int(nyxerr.CodeOf(err)))
}
