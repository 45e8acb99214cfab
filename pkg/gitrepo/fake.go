package gitrepo

import (
	"fmt"
	"time"
)

// Fake is an in-memory Repository for tests, following the func-field mock
// pattern used by other Go Git-semver tools. Only GetCurrentBranch and
// IsClean have func-field overrides; every other operation is served from
// the Commits slice and the TagsByCommit map.
type Fake struct {
	Branch        string
	Clean         bool
	Commits       []*Commit // HEAD-first, i.e. Commits[0] is HEAD
	TagsByCommit  map[string][]Tag
	Remotes       []string
	Detached      bool

	Pushed   []string
	Tagged   []Tag
	Added    []string
	Authored []string

	GetCurrentBranchFunc func() (string, error)
	IsCleanFunc          func() (bool, error)
}

var _ Repository = (*Fake)(nil)

func (f *Fake) GetCurrentBranch() (string, error) {
	if f.GetCurrentBranchFunc != nil {
		return f.GetCurrentBranchFunc()
	}
	if f.Detached {
		return "", fmt.Errorf("detached HEAD")
	}
	return f.Branch, nil
}

func (f *Fake) IsClean() (bool, error) {
	if f.IsCleanFunc != nil {
		return f.IsCleanFunc()
	}
	return f.Clean, nil
}

func (f *Fake) GetLatestCommit() (*Commit, error) {
	if len(f.Commits) == 0 {
		return nil, fmt.Errorf("no commits")
	}
	return f.Commits[0], nil
}

func (f *Fake) GetRootCommit() (*Commit, error) {
	if len(f.Commits) == 0 {
		return nil, fmt.Errorf("no commits")
	}
	return f.Commits[len(f.Commits)-1], nil
}

func (f *Fake) WalkHistory(fn func(*Commit) (bool, error)) error {
	for _, c := range f.Commits {
		keepGoing, err := fn(c)
		if err != nil {
			return err
		}
		if !keepGoing {
			return nil
		}
	}
	return nil
}

func (f *Fake) GetCommitTags(sha string) ([]Tag, error) {
	return f.TagsByCommit[sha], nil
}

func (f *Fake) GetRemoteNames() ([]string, error) {
	return f.Remotes, nil
}

func (f *Fake) Add(paths ...string) error {
	f.Added = append(f.Added, paths...)
	return nil
}

func (f *Fake) Commit(message string) (*Commit, error) {
	f.Authored = append(f.Authored, message)
	sha := fmt.Sprintf("fake-commit-%d", len(f.Commits))
	c := &Commit{
		SHA:       sha,
		ShortSHA:  sha[:12],
		Message:   message,
		Timestamp: time.Unix(int64(len(f.Commits)), 0).UTC(),
	}
	if len(f.Commits) > 0 {
		c.Parents = []string{f.Commits[0].SHA}
	}
	f.Commits = append([]*Commit{c}, f.Commits...)
	return c, nil
}

func (f *Fake) Tag(name, targetSHA, message string) (*Tag, error) {
	if targetSHA == "" {
		head, err := f.GetLatestCommit()
		if err != nil {
			return nil, err
		}
		targetSHA = head.SHA
	}
	tag := Tag{Name: name, Target: targetSHA, Annotated: message != "", Message: message}
	f.Tagged = append(f.Tagged, tag)
	if f.TagsByCommit == nil {
		f.TagsByCommit = map[string][]Tag{}
	}
	f.TagsByCommit[targetSHA] = append(f.TagsByCommit[targetSHA], tag)
	return &tag, nil
}

func (f *Fake) Push(remote string) error {
	f.Pushed = append(f.Pushed, remote)
	return nil
}
