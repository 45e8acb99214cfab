// Package conventions classifies a commit message against a configured,
// ordered list of commit message conventions, yielding the bump component
// it contributes.
package conventions

import (
	"regexp"

	"github.com/nyxreleaseng/nyx/pkg/config"
	"github.com/nyxreleaseng/nyx/pkg/logger"
	"github.com/nyxreleaseng/nyx/pkg/nyxerr"
)

var convLog = logger.New("nyx:conventions")

// Component mirrors pkg/version.Component for the bump axis a commit
// message implies. "none" means the commit matched no bump expression.
type Component string

const (
	ComponentNone  Component = "none"
	ComponentPatch Component = "patch"
	ComponentMinor Component = "minor"
	ComponentMajor Component = "major"
)

// rank orders components so the aggregate over many commits can take a max.
var rank = map[Component]int{
	ComponentNone:  0,
	ComponentPatch: 1,
	ComponentMinor: 2,
	ComponentMajor: 3,
}

// Rank returns c's significance rank; higher is more significant.
func Rank(c Component) int { return rank[c] }

// Max returns whichever of a, b ranks higher.
func Max(a, b Component) Component {
	if rank[a] >= rank[b] {
		return a
	}
	return b
}

// compiledConvention is a Convention with its expression and bump
// expressions pre-compiled, in the fixed evaluation order major > minor >
// patch so the first matching bumpExpression wins when more than one
// pattern could match the same message.
type compiledConvention struct {
	name       string
	expression *regexp.Regexp
	bumps      []compiledBump
}

type compiledBump struct {
	component Component
	pattern   *regexp.Regexp
}

var bumpOrder = []Component{ComponentMajor, ComponentMinor, ComponentPatch}

// Matcher classifies commit messages against a compiled set of enabled
// conventions, in configured order.
type Matcher struct {
	conventions []compiledConvention
}

// Compile builds a Matcher from the enabled conventions of cfg, in the
// order cfg.Enabled lists them. An unknown name in Enabled is a
// ConfigurationError.
func Compile(cfg config.CommitMessageConventions) (*Matcher, error) {
	m := &Matcher{}
	for _, name := range cfg.Enabled {
		conv, ok := cfg.Items.Get(name)
		if !ok {
			return nil, nyxerr.NewConfigurationError("enabled convention \""+name+"\" is not defined", nil, "commitMessageConventions.enabled")
		}
		expr, err := regexp.Compile(conv.Expression)
		if err != nil {
			return nil, nyxerr.NewConfigurationError("invalid expression for convention \""+name+"\"", err, "commitMessageConventions.items."+name+".expression")
		}
		compiled := compiledConvention{name: name, expression: expr}
		for _, component := range bumpOrder {
			pattern, ok := conv.BumpExpressions[string(component)]
			if !ok || pattern == "" {
				continue
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, nyxerr.NewConfigurationError("invalid bump expression for convention \""+name+"\"", err, "commitMessageConventions.items."+name+".bumpExpressions."+string(component))
			}
			compiled.bumps = append(compiled.bumps, compiledBump{component: component, pattern: re})
		}
		m.conventions = append(m.conventions, compiled)
	}
	return m, nil
}

// Classify finds the first enabled convention whose expression matches
// message and returns the highest-ranked bump component its
// bumpExpressions produce for that message, with ok=true. If no
// convention matches, it returns ComponentNone and ok=false.
func (m *Matcher) Classify(message string) (Component, bool) {
	for _, conv := range m.conventions {
		if !conv.expression.MatchString(message) {
			continue
		}
		best := ComponentNone
		for _, b := range conv.bumps {
			if b.pattern.MatchString(message) {
				best = Max(best, b.component)
			}
		}
		convLog.Printf("message matched convention %q -> component %q", conv.name, best)
		return best, true
	}
	return ComponentNone, false
}
