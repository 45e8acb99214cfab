// Package orchestrator implements the pipeline orchestrator: the four
// ordered phases (Infer, Mark, Make, Publish) driving every other component
// against a single owned State, with resumability via pkg/state.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	goyaml "github.com/goccy/go-yaml"
	"github.com/nyxreleaseng/nyx/pkg/changelog"
	"github.com/nyxreleaseng/nyx/pkg/config"
	"github.com/nyxreleaseng/nyx/pkg/conventions"
	"github.com/nyxreleaseng/nyx/pkg/gitrepo"
	"github.com/nyxreleaseng/nyx/pkg/hosting"
	"github.com/nyxreleaseng/nyx/pkg/infer"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
	"github.com/nyxreleaseng/nyx/pkg/releasetype"
	"github.com/nyxreleaseng/nyx/pkg/scope"
	"github.com/nyxreleaseng/nyx/pkg/sliceutil"
	"github.com/nyxreleaseng/nyx/pkg/state"
	"github.com/nyxreleaseng/nyx/pkg/template"
	"github.com/nyxreleaseng/nyx/pkg/version"
	"github.com/sourcegraph/conc/pool"
)

var orchLog = logger.New("nyx:orchestrator")

// Pipeline runs the four phases against one repository under one
// configuration, owning State exclusively for the duration of a Run.
type Pipeline struct {
	Config    *config.Configuration
	Repo      gitrepo.Repository
	Now       time.Time // fixed "current instant", so templates resolve identically within a run
	Directory string    // working directory this run operates in, for staleness checks

	matcher *conventions.Matcher
	active  *releasetype.Active
	scope   *scope.Scope
	ctx     template.Context
}

// Result is the outcome of one Run: the final State plus any non-fatal
// per-service publish failures, collected under a best-effort policy.
type Result struct {
	State           *state.State
	PublishFailures []error
}

// Phase names one of the four ordered stages a cmd/nyx invocation can stop
// at. Commands are cumulative: asking for Mark also runs Infer first, since
// Mark's git operations need Infer's freshly computed version.
type Phase int

const (
	PhaseInfer Phase = iota
	PhaseMark
	PhaseMake
	PhasePublish
)

// Run executes every phase the configuration enables; equivalent to
// RunUpTo(PhasePublish).
func (p *Pipeline) Run() (*Result, error) {
	return p.RunUpTo(PhasePublish)
}

// RunUpTo executes phases through maxPhase, loading and saving state.State
// around each one. It stops early (without error) once Infer
// reports no new version, since Mark/Make/Publish have nothing to act on;
// it stops at the first fatal error from Infer or Mark; Publish failures
// are collected but do not stop other services from being attempted.
func (p *Pipeline) RunUpTo(maxPhase Phase) (*Result, error) {
	s, err := state.Load(p.Config.StateFile, p.Config.Resume, p.Directory, p.Now)
	if err != nil {
		return nil, err
	}

	if err := p.infer(s); err != nil {
		return nil, err
	}
	if err := saveState(p.Config.StateFile, s); err != nil {
		return nil, err
	}

	if maxPhase == PhaseInfer || !s.NewVersion {
		orchLog.Printf("stopping after infer (requested=%v newVersion=%v)", maxPhase == PhaseInfer, s.NewVersion)
		return &Result{State: s}, nil
	}

	if err := p.mark(s); err != nil {
		return nil, err
	}
	if err := saveState(p.Config.StateFile, s); err != nil {
		return nil, err
	}

	if maxPhase == PhaseMark {
		return &Result{State: s}, nil
	}

	if err := p.make(s); err != nil {
		return nil, err
	}
	if err := saveState(p.Config.StateFile, s); err != nil {
		return nil, err
	}

	var publishFailures []error
	if maxPhase == PhasePublish && s.NewRelease {
		publishFailures = p.publish(s)
		if err := saveState(p.Config.StateFile, s); err != nil {
			return nil, err
		}
	}

	return &Result{State: s, PublishFailures: publishFailures}, nil
}

// Clean removes the state file this pipeline is configured to use, so the
// next run starts fresh regardless of its --resume setting.
func (p *Pipeline) Clean() error {
	if p.Config.StateFile == "" {
		return nil
	}
	if err := os.Remove(p.Config.StateFile); err != nil && !os.IsNotExist(err) {
		return nyxerr.NewIOError("could not remove state file", err, "stateFile")
	}
	orchLog.Printf("removed state file %q", p.Config.StateFile)
	return nil
}

func saveState(path string, s *state.State) error {
	if path == "" {
		return nil
	}
	return state.Save(path, s)
}

// infer runs the pure phase: compile conventions, select the release type,
// resolve scope, infer the next version, and stage every result into s. It
// never touches the network or the working tree.
func (p *Pipeline) infer(s *state.State) error {
	matcher, err := conventions.Compile(p.Config.CommitMessageConventions)
	if err != nil {
		return err
	}
	p.matcher = matcher

	repositoryName := p.Config.Git["repositoryName"]
	repositoryOwner := p.Config.Git["repositoryOwner"]
	bootstrapCtx := newStateContext(s, "", repositoryName, repositoryOwner, p.Now)

	active, err := releasetype.Select(p.Config.ReleaseTypes, p.Repo, bootstrapCtx)
	if err != nil {
		return err
	}
	p.active = active

	branch, err := p.Repo.GetCurrentBranch()
	if err != nil {
		return nyxerr.NewGitError("detached HEAD", err, "branch")
	}
	s.Branch = branch
	s.ReleaseType = active.Name
	s.Scheme = string(version.SchemeSemVer)

	ctx := newStateContext(s, branch, repositoryName, repositoryOwner, p.Now)
	p.ctx = ctx

	filterTags, err := template.Render(active.Type.FilterTags, ctx)
	if err != nil {
		return err
	}
	collapsedQualifierPattern, err := template.Render(active.Type.CollapsedVersionQualifier, ctx)
	if err != nil {
		return err
	}

	sc, err := scope.Resolve(p.Repo, version.SchemeSemVer, p.Config.ReleaseLenient, p.Config.InitialVersion, filterTags, collapsedQualifierPattern, matcher)
	if err != nil {
		return err
	}
	p.scope = sc

	headSHA := sc.FinalCommit
	snapshot, err := configSnapshot(p.Config)
	if err != nil {
		return err
	}
	configHash, err := state.HashConfiguration(snapshot)
	if err != nil {
		return err
	}
	if s.Stale(headSHA, configHash, p.Directory) {
		orchLog.Printf("state is stale (head/config/directory drift); recomputing")
		s.InvalidateComputed()
	}
	s.HeadSHA = headSHA
	s.ConfigurationHash = configHash
	s.Directory = p.Directory

	var commitMessages []string
	for _, c := range sc.SignificantCommits {
		commitMessages = append(commitMessages, c.Message)
	}
	aggregate := infer.AggregateBump(commitMessages, matcher)

	result, err := infer.Infer(active.Type, active.Name, sc, aggregate, p.Config.Bump, branch, ctx, p.Repo, version.SchemeSemVer, p.Config.ReleaseLenient, p.Config.Version)
	if err != nil {
		return err
	}

	s.PreviousVersion = sc.PreviousVersion.String()
	s.PreviousVersionCommit = sc.PreviousVersionCommit
	s.PrimeVersion = sc.PrimeVersion.String()
	s.InitialCommit = sc.InitialCommit
	s.FinalCommit = sc.FinalCommit
	s.Version = result.Version.String()
	s.NewVersion = result.NewVersion
	s.NewRelease = result.NewRelease
	bump := p.Config.Bump
	if bump == "" {
		bump = string(aggregate)
	}
	s.Bump = bump

	orchLog.Printf("infer complete: releaseType=%q version=%q newVersion=%v newRelease=%v", active.Name, s.Version, s.NewVersion, s.NewRelease)
	return nil
}

// mark performs the Git side effects anchoring the release.
func (p *Pipeline) mark(s *state.State) error {
	if s.Mark.Ran && s.Mark.Version == s.Version {
		orchLog.Printf("mark already recorded for version %q, skipping", s.Version)
		return nil
	}

	rt := p.active.Type
	ctx := p.ctx

	doCommit, err := releasetype.ResolveBool(rt.GitCommit, ctx)
	if err != nil {
		return err
	}
	if doCommit {
		if p.Config.DryRun {
			orchLog.Printf("dry-run: would commit release changes")
		} else {
			message, err := template.Render(rt.GitCommitMessage, ctx)
			if err != nil {
				return err
			}
			if s.ChangelogPath != "" {
				if err := p.Repo.Add(s.ChangelogPath); err != nil {
					return nyxerr.NewGitError("could not stage changelog", err)
				}
			}
			if _, err := p.Repo.Commit(message); err != nil {
				return nyxerr.NewGitError("could not commit release", err)
			}
		}
	}

	doTag, err := releasetype.ResolveBool(rt.GitTag, ctx)
	if err != nil {
		return err
	}
	if doTag {
		if p.Config.DryRun {
			orchLog.Printf("dry-run: would tag %s", s.Version)
		} else {
			message, err := template.Render(rt.GitTagMessage, ctx)
			if err != nil {
				return err
			}
			tagName := p.Config.ReleasePrefix + s.Version
			if _, err := p.Repo.Tag(tagName, "", message); err != nil {
				return nyxerr.NewGitError("could not tag release", err)
			}
		}
	}

	doPush, err := releasetype.ResolveBool(rt.GitPush, ctx)
	if err != nil {
		return err
	}
	if doPush {
		remotes := p.Config.ReleaseTypes.RemoteRepositories
		if len(remotes) == 0 {
			remotes = []string{"origin"}
		}
		if p.Config.DryRun {
			orchLog.Printf("dry-run: would push to %v", remotes)
		} else if err := p.pushRemotes(remotes); err != nil {
			return err
		}
	}

	s.Mark = state.PhaseResult{Ran: true, Version: s.Version}
	return nil
}

// pushRemotes pushes to every remote concurrently (bounded), aggregating
// errors; ordering of the aggregated error message is stable regardless of
// completion order. A name repeated in releaseTypes.remoteRepositories is
// only pushed once.
func (p *Pipeline) pushRemotes(remotes []string) error {
	type outcome struct {
		remote string
		err    error
	}
	var deduped []string
	for _, remote := range remotes {
		if !sliceutil.Contains(deduped, remote) {
			deduped = append(deduped, remote)
		}
	}

	pl := pool.NewWithResults[outcome]().WithMaxGoroutines(4)
	for _, remote := range deduped {
		remote := remote
		pl.Go(func() outcome {
			return outcome{remote: remote, err: p.Repo.Push(remote)}
		})
	}
	results := pl.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].remote < results[j].remote })

	var failed []string
	for _, r := range results {
		if r.err != nil {
			orchLog.Printf("push to %q failed: %v", r.remote, r.err)
			failed = append(failed, r.remote)
		}
	}
	if len(failed) > 0 {
		return nyxerr.NewGitError(fmt.Sprintf("push failed for remotes %v", failed), nil, "releaseTypes.remoteRepositories")
	}
	return nil
}

// make builds artifacts requiring no network writes: the changelog.
func (p *Pipeline) make(s *state.State) error {
	if s.Make.Ran && s.Make.Version == s.Version {
		orchLog.Printf("make already recorded for version %q, skipping", s.Version)
		return nil
	}

	cfg := p.Config.Changelog
	if cfg.Path == "" && cfg.Sections == nil {
		s.Make = state.PhaseResult{Ran: true, Version: s.Version}
		return nil
	}

	releaseDate := p.Now.UTC().Format("2006-01-02")
	if p.Config.DryRun {
		orchLog.Printf("dry-run: would write changelog to %q", cfg.Path)
	} else {
		doc, err := changelog.Build(cfg, p.scope.SignificantCommits, s.Version, releaseDate, p.ctx)
		if err != nil {
			return err
		}
		s.ChangelogPath = cfg.Path
		_ = doc
	}

	s.Make = state.PhaseResult{Ran: true, Version: s.Version}
	return nil
}

// publish calls createRelease on every configured service in declaration
// order. Services run concurrently but results are committed to State in
// that declared order regardless of completion order. Failure is fatal to
// that service only; other services still proceed.
func (p *Pipeline) publish(s *state.State) []error {
	names := p.Config.ReleaseTypes.PublicationServices

	type outcome struct {
		name string
		err  error
	}
	pl := pool.NewWithResults[outcome]().WithMaxGoroutines(4)
	for _, name := range names {
		name := name
		pl.Go(func() outcome {
			return outcome{name: name, err: p.publishOne(s, name)}
		})
	}
	results := pl.Wait()

	order := make(map[string]int, len(names))
	for i, n := range names {
		order[n] = i
	}
	sort.Slice(results, func(i, j int) bool { return order[results[i].name] < order[results[j].name] })

	var failures []error
	for _, r := range results {
		if r.err != nil {
			orchLog.Printf("publish to %q failed: %v", r.name, r.err)
			failures = append(failures, r.err)
		}
	}

	s.Publish = state.PhaseResult{Ran: true, Version: s.Version}
	if len(failures) > 0 {
		s.Publish.Error = failures[0].Error()
	}
	return failures
}

func (p *Pipeline) publishOne(s *state.State, name string) error {
	if p.Config.DryRun {
		orchLog.Printf("dry-run: would publish release %q to %q", s.Version, name)
		return nil
	}

	svcCfg, ok := p.Config.Services.Get(name)
	if !ok {
		return nyxerr.NewConfigurationError("publicationServices references undefined service \""+name+"\"", nil, "releaseTypes.publicationServices")
	}

	resolvedOptions := make(map[string]string, len(svcCfg.Options))
	for k, v := range svcCfg.Options {
		rendered, err := template.Render(v, p.ctx)
		if err != nil {
			return err
		}
		resolvedOptions[k] = rendered
	}

	svc, err := hosting.NewService(normalizeServiceType(svcCfg.Type), resolvedOptions)
	if err != nil {
		return err
	}

	title, err := template.Render("Release {{version}}", p.ctx)
	if err != nil {
		return err
	}
	body := ""
	if p.scope != nil {
		notes, err := changelog.Build(p.Config.Changelog, p.scope.SignificantCommits, s.Version, p.Now.UTC().Format("2006-01-02"), p.ctx)
		if err == nil {
			body = notes.Markdown
		}
	}

	owner := resolvedOptions[hosting.OptionRepositoryOwner]
	repo := resolvedOptions[hosting.OptionRepositoryName]
	tag := p.Config.ReleasePrefix + s.Version

	release, err := svc.CreateRelease(owner, repo, tag, title, body)
	if err != nil {
		return err
	}

	assets, err := p.resolveAssets()
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return nil
	}
	return svc.PublishReleaseAssets(owner, repo, release, assets)
}

// resolveAssets expands the active release type's asset glob patterns,
// relative to p.Directory, into a flat, deduplicated file list.
func (p *Pipeline) resolveAssets() ([]string, error) {
	if p.active == nil {
		return nil, nil
	}
	var files []string
	for _, pattern := range p.active.Type.Assets {
		matches, err := filepath.Glob(filepath.Join(p.Directory, pattern))
		if err != nil {
			return nil, nyxerr.NewConfigurationError("invalid asset glob \""+pattern+"\"", err, "releaseTypes.items."+p.active.Name+".assets")
		}
		for _, m := range matches {
			if !sliceutil.Contains(files, m) {
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// configSnapshot round-trips a Configuration through YAML into a plain map,
// giving state.HashConfiguration a stable, comparable representation of the
// effective configuration for drift detection.
func configSnapshot(cfg *config.Configuration) (map[string]interface{}, error) {
	encoded, err := goyaml.Marshal(cfg)
	if err != nil {
		return nil, nyxerr.NewIOError("could not snapshot configuration", err)
	}
	var out map[string]interface{}
	if err := goyaml.Unmarshal(encoded, &out); err != nil {
		return nil, nyxerr.NewIOError("could not snapshot configuration", err)
	}
	return out, nil
}

func normalizeServiceType(t string) string {
	switch t {
	case "GITHUB", "github":
		return "github"
	case "GITLAB", "gitlab":
		return "gitlab"
	default:
		return t
	}
}
