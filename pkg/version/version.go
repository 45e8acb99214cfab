// Package version implements version algebra under a named scheme. Today
// the only scheme is SemVer 2.0.0, backed by Masterminds/semver for lenient
// parsing; this package owns comparison, bump, and identifier algebra on top
// of it since semver.Version is immutable and has no positional identifier
// slot to mutate.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
)

var verLog = logger.New("nyx:version")

// Scheme names a version algebra. SemVer is the only scheme implemented.
type Scheme string

const SchemeSemVer Scheme = "semver"

// Position names the identifier slot an identifier is inserted into.
type Position string

const (
	PositionPreRelease Position = "PRE_RELEASE"
	PositionBuild      Position = "BUILD"
)

// Version is a mutable value object: major/minor/patch plus two ordered
// identifier lists, pre-release and build.
type Version struct {
	Scheme  Scheme
	Major   int
	Minor   int
	Patch   int
	PreRel  []string
	Build   []string
}

// Parse reads s under scheme. In lenient mode a leading "v"/"V" prefix and
// surrounding whitespace are tolerated (Masterminds/semver already does
// both); strict mode rejects anything not in canonical MAJOR.MINOR.PATCH
// form with well-formed identifiers.
func Parse(scheme Scheme, s string, lenient bool) (*Version, error) {
	if scheme != SchemeSemVer {
		return nil, nyxerr.NewConfigurationError(fmt.Sprintf("unsupported scheme %q", scheme), nil, "scheme")
	}

	trimmed := strings.TrimSpace(s)
	if !lenient && trimmed != s {
		return nil, nyxerr.NewConfigurationError("strict parse rejects surrounding whitespace", nil, "version")
	}
	if !lenient && (strings.HasPrefix(trimmed, "v") || strings.HasPrefix(trimmed, "V")) {
		return nil, nyxerr.NewConfigurationError("strict parse rejects a scheme prefix", nil, "version")
	}

	parse := mmsemver.NewVersion
	if !lenient {
		parse = mmsemver.StrictNewVersion
	}
	sv, err := parse(trimmed)
	if err != nil {
		verLog.Printf("parse failed for %q (lenient=%v): %v", s, lenient, err)
		return nil, nyxerr.NewConfigurationError(fmt.Sprintf("invalid version %q", s), err, "version")
	}

	v := &Version{
		Scheme: SchemeSemVer,
		Major:  int(sv.Major()),
		Minor:  int(sv.Minor()),
		Patch:  int(sv.Patch()),
	}
	if pre := sv.Prerelease(); pre != "" {
		v.PreRel = strings.Split(pre, ".")
	}
	if meta := sv.Metadata(); meta != "" {
		v.Build = strings.Split(meta, ".")
	}
	return v, nil
}

// MustParse panics on a parse failure; reserved for built-in defaults.
func MustParse(scheme Scheme, s string) *Version {
	v, err := Parse(scheme, s, true)
	if err != nil {
		panic(err)
	}
	return v
}

// Clone returns a deep, independent copy.
func (v *Version) Clone() *Version {
	out := &Version{Scheme: v.Scheme, Major: v.Major, Minor: v.Minor, Patch: v.Patch}
	out.PreRel = append([]string(nil), v.PreRel...)
	out.Build = append([]string(nil), v.Build...)
	return out
}

// String renders the scheme-canonical form.
func (v *Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if len(v.PreRel) > 0 {
		s += "-" + strings.Join(v.PreRel, ".")
	}
	if len(v.Build) > 0 {
		s += "+" + strings.Join(v.Build, ".")
	}
	return s
}

// Compare implements SemVer 2.0.0 precedence. Build identifiers never
// affect ordering.
func Compare(a, b *Version) int {
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != 0 {
		return c
	}
	return comparePreRelease(a.PreRel, b.PreRel)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePreRelease implements SemVer's pre-release precedence: no
// pre-release outranks any pre-release; shorter identical prefix loses;
// numeric identifiers compare numerically, alphanumeric lexically.
func comparePreRelease(a, b []string) int {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) == 0 {
		return 1
	}
	if len(b) == 0 {
		return -1
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareIdentifier(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInt(len(a), len(b))
}

func compareIdentifier(a, b string) int {
	an, aErr := strconv.Atoi(a)
	bn, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return compareInt(an, bn)
	}
	if aErr == nil {
		return -1
	}
	if bErr == nil {
		return 1
	}
	return strings.Compare(a, b)
}

// Equal reports SemVer equality: build identifiers are ignored.
func Equal(a, b *Version) bool { return Compare(a, b) == 0 }

// Component names a bump axis: a core field, or a named pre-release
// identifier whose numeric tail is incremented.
type Component string

const (
	ComponentMajor Component = "major"
	ComponentMinor Component = "minor"
	ComponentPatch Component = "patch"
)

// Bump returns a new Version advanced along component. Bumping a core
// component resets every identifier list and every field to its right,
// per SemVer convention. Bumping a named identifier (anything not
// major/minor/patch) increments that identifier's numeric tail within the
// pre-release list, appending ".1" if the identifier is absent or has no
// numeric tail yet.
func Bump(v *Version, component Component) *Version {
	out := v.Clone()
	switch component {
	case ComponentMajor:
		out.Major++
		out.Minor = 0
		out.Patch = 0
		out.PreRel = nil
		out.Build = nil
	case ComponentMinor:
		out.Minor++
		out.Patch = 0
		out.PreRel = nil
		out.Build = nil
	case ComponentPatch:
		out.Patch++
		out.PreRel = nil
		out.Build = nil
	default:
		out.PreRel = bumpNamedIdentifier(out.PreRel, string(component))
	}
	return out
}

func bumpNamedIdentifier(ids []string, name string) []string {
	for i, id := range ids {
		if id == name {
			if i+1 < len(ids) {
				if n, err := strconv.Atoi(ids[i+1]); err == nil {
					ids[i+1] = strconv.Itoa(n + 1)
					return ids
				}
			}
			out := append([]string(nil), ids[:i+1]...)
			out = append(out, "1")
			out = append(out, ids[i+1:]...)
			return out
		}
	}
	return append(append([]string(nil), ids...), name, "1")
}

// WithIdentifier appends qualifier.value in the given positional slot,
// de-duplicating by qualifier (a later call with the same qualifier
// replaces the earlier value rather than appending a second entry), and
// preserving the existing order of other identifiers.
func WithIdentifier(v *Version, position Position, qualifier, value string) *Version {
	out := v.Clone()
	entry := []string{qualifier}
	if value != "" {
		entry = append(entry, value)
	}

	var list *[]string
	switch position {
	case PositionBuild:
		list = &out.Build
	default:
		list = &out.PreRel
	}

	filtered := make([]string, 0, len(*list)+len(entry))
	replaced := false
	for i := 0; i < len(*list); i++ {
		if (*list)[i] == qualifier {
			filtered = append(filtered, entry...)
			replaced = true
			if i+1 < len(*list) {
				if _, err := strconv.Atoi((*list)[i+1]); err == nil {
					i++
				}
			}
			continue
		}
		filtered = append(filtered, (*list)[i])
	}
	if !replaced {
		filtered = append(filtered, entry...)
	}
	*list = filtered
	return out
}

// WithPreReleaseQualifier replaces the entire pre-release list with a
// single qualifier identifier, used by the collapsed-version path in the
// version inferrer before the numeric ordinal is appended via
// Bump(candidate, qualifier).
func WithPreReleaseQualifier(v *Version, qualifier string) *Version {
	out := v.Clone()
	if qualifier == "" {
		out.PreRel = nil
		return out
	}
	out.PreRel = []string{qualifier}
	return out
}

// InRange reports whether v's canonical string form matches pattern.
func InRange(v *Version, pattern string) bool {
	if pattern == "" {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		verLog.Printf("invalid version range pattern %q: %v", pattern, err)
		return false
	}
	return re.MatchString(v.String())
}

// RangeFromBranchName derives a matching-prefix regex from a release
// branch name such as "rel/1.2.x", producing "^1\.2\.". Non-numeric branch
// segments are dropped; if no numeric prefix can be derived, it returns a
// pattern that matches anything.
func RangeFromBranchName(branch string) string {
	fields := regexp.MustCompile(`[0-9]+`).FindAllString(branch, -1)
	parts := strings.FieldsFunc(branch, func(r rune) bool {
		return r == '/' || r == '-' || r == '_'
	})
	var numeric []string
	for _, p := range parts {
		if isVersionLikeSegment(p) {
			numeric = segmentsOf(p)
			break
		}
	}
	if numeric == nil && len(fields) > 0 {
		return "^" + strings.Join(fields, `\.`) + `\.`
	}
	if len(numeric) == 0 {
		return ".*"
	}
	return "^" + strings.Join(numeric, `\.`) + `\.`
}

func isVersionLikeSegment(s string) bool {
	return regexp.MustCompile(`^\d+(\.(\d+|x))*$`).MatchString(s)
}

func segmentsOf(s string) []string {
	var out []string
	for _, seg := range strings.Split(s, ".") {
		if seg == "x" || seg == "" {
			break
		}
		out = append(out, seg)
	}
	return out
}
