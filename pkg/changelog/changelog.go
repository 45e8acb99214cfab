// Package changelog implements the Changelog Builder: grouping
// significant commits into ordered sections by conventional-commits type,
// rendering a Markdown document (or a custom template), and writing it
// idempotently.
package changelog

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/nyxreleaseng/nyx/pkg/config"
	"github.com/nyxreleaseng/nyx/pkg/gitrepo"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
	"github.com/nyxreleaseng/nyx/pkg/template"
)

var changelogLog = logger.New("nyx:changelog")

var typePattern = regexp.MustCompile(`^(?P<type>[A-Za-z]+)(?:\([^)]*\))?!?:\s*(?P<title>.+)$`)

// Entry is one changelog bullet: a commit's title and short SHA.
type Entry struct {
	Title string
	SHA   string
}

// Section is one rendered changelog grouping, in configured order.
type Section struct {
	Name    string
	Entries []Entry
}

// Document is the fully resolved changelog content, both as a section tree
// (for the custom-template path) and as rendered Markdown (for the default
// layout).
type Document struct {
	Sections []Section
	Markdown string
}

// Build groups commits into cfg.Sections, renders the document, and writes
// it to cfg.Path if set. version and releaseDate are pre-resolved strings
// (releaseDate already formatted by the caller against the fixed State
// timestamp, so two builds against the same State are identical). Returns
// the built Document even when cfg.Path is empty, so callers that only need
// the in-memory content (e.g. a release body) don't have to touch disk.
func Build(cfg config.Changelog, commits []*gitrepo.Commit, version, releaseDate string, ctx template.Context) (*Document, error) {
	sections := groupBySections(cfg.Sections, commits)

	var markdown string
	if cfg.Template != "" {
		rendered, err := renderCustomTemplate(cfg, sections, version, releaseDate, ctx)
		if err != nil {
			return nil, err
		}
		markdown = rendered
	} else {
		markdown = renderDefault(cfg, sections, version, releaseDate)
	}
	markdown = applySubstitutions(markdown, cfg.Substitutions)

	doc := &Document{Sections: sections, Markdown: markdown}

	if cfg.Path != "" {
		if err := writeIdempotent(cfg.Path, markdown); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func groupBySections(sections *config.OrderedMap[string], commits []*gitrepo.Commit) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, 0, sections.Len())
	for _, name := range sections.Keys() {
		pattern, _ := sections.Get(name)
		re, err := regexp.Compile(pattern)
		if err != nil {
			changelogLog.Printf("section %q has invalid regex %q, skipping: %v", name, pattern, err)
			continue
		}
		section := Section{Name: name}
		for _, c := range commits {
			m := typePattern.FindStringSubmatch(c.Message)
			if m == nil {
				continue
			}
			commitType, title := m[1], m[2]
			if !re.MatchString(commitType) {
				continue
			}
			section.Entries = append(section.Entries, Entry{Title: title, SHA: c.ShortSHA})
		}
		out = append(out, section)
	}
	return out
}

func renderDefault(cfg config.Changelog, sections []Section, version, releaseDate string) string {
	var b strings.Builder
	title := cfg.Title
	if title == "" {
		title = "Changelog"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "## %s (%s)\n\n", version, releaseDate)
	for _, s := range sections {
		if len(s.Entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", s.Name)
		for _, e := range s.Entries {
			fmt.Fprintf(&b, "- %s (%s)\n", e.Title, e.SHA)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderCustomTemplate(cfg config.Changelog, sections []Section, version, releaseDate string, ctx template.Context) (string, error) {
	values := map[string]string{
		"changelog.version":     version,
		"changelog.releaseDate": releaseDate,
		"changelog.title":       cfg.Title,
	}
	for _, s := range sections {
		var lines []string
		for _, e := range s.Entries {
			lines = append(lines, fmt.Sprintf("- %s (%s)", e.Title, e.SHA))
		}
		values["changelog.sections."+s.Name] = strings.Join(lines, "\n")
	}
	merged := mergeContext(ctx, values)
	rendered, err := template.Render(cfg.Template, merged)
	if err != nil {
		return "", err
	}
	return rendered, nil
}

// mergeContext layers extra string values on top of an existing Context,
// falling back to it for any path extra doesn't define.
func mergeContext(base template.Context, extra map[string]string) template.Context {
	return overlayContext{base: base, extra: extra}
}

type overlayContext struct {
	base  template.Context
	extra map[string]string
}

func (o overlayContext) Lookup(path string) (string, bool) {
	if v, ok := o.extra[path]; ok {
		return v, true
	}
	if o.base != nil {
		return o.base.Lookup(path)
	}
	return "", false
}

func (o overlayContext) Timestamp() time.Time {
	if o.base != nil {
		return o.base.Timestamp()
	}
	return time.Time{}
}

func (o overlayContext) Environment(name string) (string, bool) {
	if o.base != nil {
		return o.base.Environment(name)
	}
	return "", false
}

func applySubstitutions(markdown string, subs []config.Substitution) string {
	lines := strings.Split(markdown, "\n")
	for _, sub := range subs {
		re, err := regexp.Compile(sub.Match)
		if err != nil {
			changelogLog.Printf("invalid substitution pattern %q, skipping: %v", sub.Match, err)
			continue
		}
		for i, line := range lines {
			lines[i] = re.ReplaceAllString(line, sub.Replace)
		}
	}
	return strings.Join(lines, "\n")
}

// writeIdempotent writes content to path only if the file is missing or its
// contents differ, so a no-op run never touches the file's mtime.
func writeIdempotent(path, content string) error {
	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == content {
		changelogLog.Printf("changelog at %q is already up to date, skipping write", path)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nyxerr.NewIOError("could not write changelog", err, "changelog.path")
	}
	return nil
}
