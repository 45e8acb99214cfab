// Package template implements a stateless text interpolator: dotted-path
// variable lookups against a live evaluation context, plus a fixed library
// of helper functions applied mustache-section style (`{{helper(arg)}}`).
// Undefined names render empty; a malformed template (unbalanced braces,
// unknown function syntax the parser cannot tokenize) raises a
// TemplateError. Helper misuse — wrong argument count, a helper applied to
// a value it cannot act on — renders empty rather than erroring.
package template

import (
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strings"
	"time"

	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
)

var tmplLog = logger.New("nyx:template")

// Context is the live evaluation context a template is resolved against. It
// is usually backed by the engine's State, but tests can supply a plain map.
type Context interface {
	// Lookup resolves a dotted path (e.g. "releaseScope.finalCommit") to its
	// string representation. ok is false if the path is undefined.
	Lookup(path string) (value string, ok bool)
	// Timestamp is the fixed instant templates resolve "now" against, so
	// that two resolutions against the same State are bit-identical.
	Timestamp() time.Time
	// Environment resolves an OS environment variable by name.
	Environment(name string) (value string, ok bool)
}

// MapContext is a Context backed by a flat or dotted-key map, for tests and
// for simple callers that don't need the full State tree.
type MapContext struct {
	Values map[string]string
	At     time.Time
	Env    map[string]string
}

func (m MapContext) Lookup(path string) (string, bool) {
	v, ok := m.Values[path]
	return v, ok
}

func (m MapContext) Timestamp() time.Time {
	if m.At.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return m.At
}

func (m MapContext) Environment(name string) (string, bool) {
	v, ok := m.Env[name]
	return v, ok
}

var exprPattern = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)
var callPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\(\s*(.*?)\s*\)$`)

// Render resolves every `{{...}}` expression in tmpl against ctx. Plain
// expressions are dotted-path lookups; `name(args...)` expressions invoke a
// helper from the built-in function library.
func Render(tmpl string, ctx Context) (string, error) {
	if strings.Count(tmpl, "{{") != strings.Count(tmpl, "}}") {
		return "", nyxerr.NewTemplateError("unbalanced template braces", nil, "template")
	}

	var outerErr error
	result := exprPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		inner := exprPattern.FindStringSubmatch(match)[1]
		val, err := evalExpr(inner, ctx)
		if err != nil {
			outerErr = err
			return ""
		}
		return val
	})
	if outerErr != nil {
		return "", outerErr
	}
	return result, nil
}

// RenderAll resolves every template in fields in place, short-circuiting on
// the first TemplateError. It's a convenience for the many places a
// ReleaseType's string fields must all be resolved together.
func RenderAll(ctx Context, fields map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		rendered, err := Render(v, ctx)
		if err != nil {
			return nil, err
		}
		out[k] = rendered
	}
	return out, nil
}

func evalExpr(expr string, ctx Context) (string, error) {
	if expr == "" {
		return "", nil
	}

	if m := callPattern.FindStringSubmatch(expr); m != nil {
		name, rawArgs := m[1], m[2]
		fn, ok := functions[name]
		if !ok {
			tmplLog.Printf("unknown helper %q, rendering empty", name)
			return "", nil
		}
		args := splitArgs(rawArgs)
		resolved := make([]string, len(args))
		for i, a := range args {
			resolved[i] = resolveArg(a, ctx)
		}
		return fn(ctx, resolved), nil
	}

	val, ok := ctx.Lookup(expr)
	if !ok {
		return "", nil
	}
	return val, nil
}

// resolveArg resolves a single helper argument: if it names a live path in
// ctx, substitute its value; otherwise treat it as a string literal.
func resolveArg(arg string, ctx Context) string {
	arg = strings.TrimSpace(arg)
	if v, ok := ctx.Lookup(arg); ok {
		return v
	}
	return strings.Trim(arg, `"'`)
}

func splitArgs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

type helperFunc func(ctx Context, args []string) string

var functions map[string]helperFunc

func init() {
	functions = map[string]helperFunc{
		"sanitize":                 func(_ Context, a []string) string { return sanitize(arg(a, 0)) },
		"sanitizeLower":            func(_ Context, a []string) string { return strings.ToLower(sanitize(arg(a, 0))) },
		"short5":                   func(_ Context, a []string) string { return shortSHA(arg(a, 0), 5) },
		"short6":                   func(_ Context, a []string) string { return shortSHA(arg(a, 0), 6) },
		"short7":                   func(_ Context, a []string) string { return shortSHA(arg(a, 0), 7) },
		"lower":                    func(_ Context, a []string) string { return strings.ToLower(arg(a, 0)) },
		"upper":                    func(_ Context, a []string) string { return strings.ToUpper(arg(a, 0)) },
		"capitalize":               func(_ Context, a []string) string { return capitalize(arg(a, 0)) },
		"trim":                     func(_ Context, a []string) string { return strings.TrimSpace(arg(a, 0)) },
		"first":                    func(_ Context, a []string) string { return edge(arg(a, 0), intArg(a, 1, 1), true) },
		"last":                     func(_ Context, a []string) string { return edge(arg(a, 0), intArg(a, 1, 1), false) },
		"replace":                  func(_ Context, a []string) string { return replace(arg(a, 0), arg(a, 1), arg(a, 2)) },
		"cutLeft":                  func(_ Context, a []string) string { return cutLeft(arg(a, 0), intArg(a, 1, 0)) },
		"cutRight":                 func(_ Context, a []string) string { return cutRight(arg(a, 0), intArg(a, 1, 0)) },
		"timestampYYYYMMDDHHMMSS":  func(ctx Context, _ []string) string { return ctx.Timestamp().UTC().Format("20060102150405") },
		"timestampISO8601":         func(ctx Context, _ []string) string { return ctx.Timestamp().UTC().Format(time.RFC3339) },
		"environment.variable":     func(ctx Context, a []string) string { v, _ := ctx.Environment(arg(a, 0)); return v },
		"environment.user":        func(_ Context, _ []string) string { return currentUser() },
		"file.exists":              func(_ Context, a []string) string { return fmt.Sprintf("%v", fileExists(arg(a, 0))) },
		"file.content":             func(_ Context, a []string) string { return fileContent(arg(a, 0)) },
	}
}

func arg(a []string, i int) string {
	if i < 0 || i >= len(a) {
		return ""
	}
	return a[i]
}

func intArg(a []string, i, def int) int {
	s := arg(a, i)
	if s == "" {
		return def
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

var sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitize(s string) string {
	s = sanitizePattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func shortSHA(sha string, n int) string {
	if len(sha) <= n {
		return sha
	}
	return sha[:n]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func edge(s string, n int, fromStart bool) string {
	if n <= 0 || n >= len(s) {
		return s
	}
	if fromStart {
		return s[:n]
	}
	return s[len(s)-n:]
}

func replace(s, pattern, replacement string) string {
	if pattern == "" {
		return s
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return s
	}
	return re.ReplaceAllString(s, replacement)
}

func cutLeft(s string, n int) string {
	if n <= 0 || n >= len(s) {
		return ""
	}
	return s[n:]
}

func cutRight(s string, n int) string {
	if n <= 0 || n >= len(s) {
		return ""
	}
	return s[:len(s)-n]
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func fileContent(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		tmplLog.Printf("file.content: could not read %q: %v", path, err)
		return ""
	}
	return string(data)
}
