package decl

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/hostconf/internal/probe"
)

// Table is the declarative description of one configuration pass. It is
// format-agnostic: the HCL loader produces it, and tests may build it by
// hand. Every slice is in declaration order.
type Table struct {
	Probes    []probe.Spec
	Options   []*Option
	Paths     []*Path
	Artifacts Artifacts
}

// State is the declared intent of a boolean option.
type State int

const (
	Auto State = iota
	On
	Off
)

func (s State) String() string {
	switch s {
	case On:
		return "on"
	case Off:
		return "off"
	default:
		return "auto"
	}
}

// ParseState converts a declaration spelling into a State.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "on":
		return On, nil
	case "off":
		return Off, nil
	}
	return Auto, fmt.Errorf("unknown state %q (want on, off or auto)", s)
}

// ValueType is the type of an option's resolved value.
type ValueType int

const (
	Bool ValueType = iota
	String
)

func (v ValueType) String() string {
	if v == String {
		return "string"
	}
	return "bool"
}

// Option is a declared feature switch.
type Option struct {
	Name  string
	Type  ValueType
	State State

	// Guard gates Auto resolution. A nil guard always passes.
	Guard hcl.Expression
	// Default computes the value of a String option.
	Default hcl.Expression

	Probe     string
	Mandatory bool
	DependsOn []string

	// Export renders a String option into the feature header.
	Export      bool
	Description string
}

// Expressions returns the expressions an option evaluates.
func (o *Option) Expressions() []hcl.Expression {
	var exprs []hcl.Expression
	if o.Guard != nil {
		exprs = append(exprs, o.Guard)
	}
	if o.Default != nil {
		exprs = append(exprs, o.Default)
	}
	return exprs
}

// Path is a declared install location.
type Path struct {
	Name string
	// Parent is empty for a root.
	Parent string
	Suffix string
	// Default computes the value of a root.
	Default hcl.Expression

	// Runtime declares a parallel runtime variant.
	Runtime     bool
	RuntimeName string
	Export      bool
}

// RuntimeVariable returns the flag name of the runtime variant, or "" when
// the path has none.
func (p *Path) RuntimeVariable() string {
	if !p.Runtime {
		return ""
	}
	if p.RuntimeName != "" {
		return p.RuntimeName
	}
	return p.Name + "_RUNTIME"
}

// DefaultFeatureConventions are the name globs of boolean entries treated as
// feature flags when a table does not declare its own.
var DefaultFeatureConventions = []string{"WITH_*", "HAVE_*", "ENABLE_*"}

// Artifacts names the files generated from the record. Paths are relative
// to the output directory; an empty path disables that artifact.
type Artifacts struct {
	Header             string
	Summary            string
	Record             string
	FeatureConventions []string
}
