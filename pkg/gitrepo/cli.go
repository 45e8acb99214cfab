package gitrepo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/nyxreleaseng/nyx/pkg/constants"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
	"github.com/nyxreleaseng/nyx/pkg/stringutil"
)

var gitLog = logger.New("nyx:gitrepo")

// CLIRepository implements Repository by shelling out to the system `git`
// binary.
type CLIRepository struct {
	Dir string
	// Token, when set, is injected as HTTPS basic-auth credentials (token as
	// username, empty password) on every Push invocation, scoped to the
	// remote's URL via a one-off `-c http.<url>.extraheader`. It is never
	// written to the working tree's git config.
	Token string
}

// Open returns a CLIRepository rooted at dir, failing if dir is not inside
// a Git working tree. The push token, if any, is read from
// constants.GitTokenEnvVar.
func Open(dir string) (*CLIRepository, error) {
	repo := &CLIRepository{Dir: dir, Token: os.Getenv(constants.GitTokenEnvVar)}
	if _, err := repo.run("rev-parse", "--git-dir"); err != nil {
		return nil, nyxerr.NewGitError("not a git repository", err, "directory")
	}
	return repo, nil
}

func (r *CLIRepository) run(args ...string) (string, error) {
	return r.runWithConfig(nil, args...)
}

func (r *CLIRepository) runWithConfig(extraConfig []string, args ...string) (string, error) {
	gitArgs := []string{"-C", r.Dir}
	for _, c := range extraConfig {
		gitArgs = append(gitArgs, "-c", c)
	}
	gitArgs = append(gitArgs, args...)
	cmd := exec.Command("git", gitArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		gitLog.Printf("git %v failed: %v", args, stringutil.SanitizeErrorMessage(stderr.String()))
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *CLIRepository) GetCurrentBranch() (string, error) {
	out, err := r.run("symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", nyxerr.NewGitError("detached HEAD", err, "branch")
	}
	return out, nil
}

func (r *CLIRepository) IsClean() (bool, error) {
	out, err := r.run("status", "--porcelain")
	if err != nil {
		return false, nyxerr.NewGitError("could not determine working tree status", err)
	}
	return out == "", nil
}

const logFormat = "%H%x1f%h%x1f%an <%ae>%x1f%cn <%ce>%x1f%cI%x1f%P%x1f%B%x1e"

// parseLogEntries parses the fixed-format log produced by logFormat. Tag
// lookup is injected via tagsAt so the parser itself has no I/O and can be
// unit-tested without a working tree.
func parseLogEntries(out string, tagsAt func(sha string) ([]Tag, error)) ([]*Commit, error) {
	var commits []*Commit
	for _, rec := range strings.Split(out, "\x1e") {
		rec = strings.Trim(rec, "\n")
		if rec == "" {
			continue
		}
		fields := strings.SplitN(rec, "\x1f", 7)
		if len(fields) < 7 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, fields[4])
		if err != nil {
			return nil, nyxerr.NewGitError("could not parse commit timestamp", err)
		}
		var parents []string
		if fields[5] != "" {
			parents = strings.Fields(fields[5])
		}
		tags, err := tagsAt(fields[0])
		if err != nil {
			return nil, err
		}
		tagNames := make([]string, 0, len(tags))
		for _, t := range tags {
			tagNames = append(tagNames, t.Name)
		}
		commits = append(commits, &Commit{
			SHA:       fields[0],
			ShortSHA:  fields[1],
			Author:    fields[2],
			Committer: fields[3],
			Timestamp: ts,
			Parents:   parents,
			Message:   strings.TrimRight(fields[6], "\n"),
			Tags:      tagNames,
		})
	}
	return commits, nil
}

func (r *CLIRepository) GetLatestCommit() (*Commit, error) {
	out, err := r.run("log", "-1", "--first-parent", "--date=iso-strict", "--pretty=format:"+logFormat)
	if err != nil {
		return nil, nyxerr.NewGitError("could not read HEAD commit (no commits?)", err)
	}
	commits, err := parseLogEntries(out, r.GetCommitTags)
	if err != nil || len(commits) == 0 {
		return nil, nyxerr.NewGitError("repository has no commits", err)
	}
	return commits[0], nil
}

func (r *CLIRepository) GetRootCommit() (*Commit, error) {
	rootSHA, err := r.run("rev-list", "--max-parents=0", "--first-parent", "HEAD")
	if err != nil {
		return nil, nyxerr.NewGitError("could not find root commit", err)
	}
	sha := strings.Fields(rootSHA)
	if len(sha) == 0 {
		return nil, nyxerr.NewGitError("repository has no commits", nil)
	}
	out, err := r.run("log", "-1", sha[0], "--date=iso-strict", "--pretty=format:"+logFormat)
	if err != nil {
		return nil, nyxerr.NewGitError("could not read root commit", err)
	}
	commits, err := parseLogEntries(out, r.GetCommitTags)
	if err != nil || len(commits) == 0 {
		return nil, nyxerr.NewGitError("could not parse root commit", err)
	}
	return commits[0], nil
}

func (r *CLIRepository) WalkHistory(fn func(*Commit) (bool, error)) error {
	out, err := r.run("log", "--first-parent", "--date=iso-strict", "--pretty=format:"+logFormat)
	if err != nil {
		return nyxerr.NewGitError("could not walk history", err)
	}
	commits, err := parseLogEntries(out, r.GetCommitTags)
	if err != nil {
		return err
	}
	for _, c := range commits {
		keepGoing, err := fn(c)
		if err != nil {
			return err
		}
		if !keepGoing {
			break
		}
	}
	return nil
}

func (r *CLIRepository) GetCommitTags(sha string) ([]Tag, error) {
	out, err := r.run("tag", "--points-at", sha)
	if err != nil {
		return nil, nyxerr.NewGitError("could not list tags at commit", err)
	}
	if out == "" {
		return nil, nil
	}
	var tags []Tag
	for _, name := range strings.Split(out, "\n") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		annotated, message := r.describeTag(name)
		tags = append(tags, Tag{Name: name, Target: sha, Annotated: annotated, Message: message})
	}
	return tags, nil
}

func (r *CLIRepository) describeTag(name string) (annotated bool, message string) {
	typ, err := r.run("cat-file", "-t", "refs/tags/"+name)
	if err != nil || typ != "tag" {
		return false, ""
	}
	msg, err := r.run("tag", "-l", "--format=%(contents)", name)
	if err != nil {
		return true, ""
	}
	return true, strings.TrimSpace(msg)
}

func (r *CLIRepository) GetRemoteNames() ([]string, error) {
	out, err := r.run("remote")
	if err != nil {
		return nil, nyxerr.NewGitError("could not list remotes", err)
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (r *CLIRepository) Add(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if _, err := r.run(append([]string{"add"}, paths...)...); err != nil {
		return nyxerr.NewGitError("could not stage files", err)
	}
	return nil
}

func (r *CLIRepository) Commit(message string) (*Commit, error) {
	if _, err := r.run("commit", "-m", message); err != nil {
		return nil, nyxerr.NewGitError("could not create commit", err)
	}
	return r.GetLatestCommit()
}

func (r *CLIRepository) Tag(name, targetSHA, message string) (*Tag, error) {
	args := []string{"tag"}
	annotated := message != ""
	if annotated {
		args = append(args, "-a", name, "-m", message)
	} else {
		args = append(args, name)
	}
	if targetSHA != "" {
		args = append(args, targetSHA)
	}
	if _, err := r.run(args...); err != nil {
		return nil, nyxerr.NewGitError("could not create tag \""+name+"\"", err)
	}
	return &Tag{Name: name, Target: targetSHA, Annotated: annotated, Message: message}, nil
}

// Push pushes the current branch and its tags to remote, over HTTPS basic
// auth when r.Token is set: the token is sent as the username with an empty
// password, via a header scoped to the remote's URL so it never touches the
// repository's persisted git config.
func (r *CLIRepository) Push(remote string) error {
	extraConfig, err := r.pushAuthConfig(remote)
	if err != nil {
		return err
	}
	if _, err := r.runWithConfig(extraConfig, "push", remote); err != nil {
		return nyxerr.NewGitError("could not push to remote \""+remote+"\"", err)
	}
	if _, err := r.runWithConfig(extraConfig, "push", remote, "refs/tags/*:refs/tags/*"); err != nil {
		return nyxerr.NewGitError("could not push tags to remote \""+remote+"\"", err)
	}
	return nil
}

// pushAuthConfig returns the -c options injecting r.Token as HTTPS basic
// auth for remote, or nil when no token is configured (Push then relies on
// whatever credential helper or .netrc is already in place).
func (r *CLIRepository) pushAuthConfig(remote string) ([]string, error) {
	if r.Token == "" {
		return nil, nil
	}
	url, err := r.run("remote", "get-url", remote)
	if err != nil || url == "" || !strings.HasPrefix(url, "https://") {
		return nil, nil
	}
	basic := base64.StdEncoding.EncodeToString([]byte(r.Token + ":"))
	return []string{fmt.Sprintf("http.%s.extraheader=Authorization: Basic %s", url, basic)}, nil
}

var _ Repository = (*CLIRepository)(nil)
