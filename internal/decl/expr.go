package decl

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/hostconf/internal/host"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"golang.org/x/mod/semver"
)

// Scope is what guard and default expressions can see: the host facts and
// every option resolved so far.
type Scope struct {
	Host    host.Facts
	Options map[string]cty.Value
}

// EvalContext builds the HCL evaluation context for the scope.
func (s Scope) EvalContext() *hcl.EvalContext {
	options := cty.EmptyObjectVal
	if len(s.Options) > 0 {
		options = cty.ObjectVal(s.Options)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"host":   s.Host.Value(),
			"option": options,
		},
		Functions: functions,
	}
}

var functions = map[string]function.Function{
	"lower":            stdlib.LowerFunc,
	"upper":            stdlib.UpperFunc,
	"contains":         stdlib.ContainsFunc,
	"version_at_least": versionAtLeastFunc,
}

var versionAtLeastFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "version", Type: cty.String},
		{Name: "minimum", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.Bool),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.BoolVal(VersionAtLeast(args[0].AsString(), args[1].AsString())), nil
	},
})

// VersionAtLeast compares dotted release numbers such as "13.2.0". An empty
// or malformed version never satisfies a minimum.
func VersionAtLeast(version, minimum string) bool {
	v, m := "v"+strings.TrimPrefix(version, "v"), "v"+strings.TrimPrefix(minimum, "v")
	if !semver.IsValid(v) || !semver.IsValid(m) {
		return false
	}
	return semver.Compare(v, m) >= 0
}

// Defined reports whether an expression was present in the source. gohcl
// fills omitted optional expression fields with a zero-width placeholder,
// so a nil check is not enough.
func Defined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	return rng.End.Byte > rng.Start.Byte
}

// References returns the option names an expression reads through
// `option.<NAME>`, in first-appearance order. Any root other than `host`
// and `option` is an error.
func References(expr hcl.Expression) ([]string, error) {
	if expr == nil {
		return nil, nil
	}
	var names []string
	seen := make(map[string]struct{})
	for _, traversal := range expr.Variables() {
		switch traversal.RootName() {
		case "host":
			continue
		case "option":
		default:
			return nil, fmt.Errorf("%s: unknown variable %q (expressions may read host and option)", traversal.SourceRange(), traversal.RootName())
		}

		if len(traversal) < 2 {
			return nil, fmt.Errorf("%s: option must be followed by an option name", traversal.SourceRange())
		}
		attr, ok := traversal[1].(hcl.TraverseAttr)
		if !ok {
			return nil, fmt.Errorf("%s: option must be followed by an option name", traversal.SourceRange())
		}
		if _, dup := seen[attr.Name]; !dup {
			seen[attr.Name] = struct{}{}
			names = append(names, attr.Name)
		}
	}
	return names, nil
}

// EvalBool evaluates expr to a known, non-null boolean.
func EvalBool(expr hcl.Expression, ctx *hcl.EvalContext) (bool, error) {
	val, err := evalAs(expr, ctx, cty.Bool)
	if err != nil {
		return false, err
	}
	return val.True(), nil
}

// EvalString evaluates expr to a known, non-null string.
func EvalString(expr hcl.Expression, ctx *hcl.EvalContext) (string, error) {
	val, err := evalAs(expr, ctx, cty.String)
	if err != nil {
		return "", err
	}
	return val.AsString(), nil
}

func evalAs(expr hcl.Expression, ctx *hcl.EvalContext, ty cty.Type) (cty.Value, error) {
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	val, err := convert.Convert(val, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s: %w", expr.Range(), err)
	}
	if val.IsNull() || !val.IsKnown() {
		return cty.NilVal, fmt.Errorf("%s: expression must produce a known %s", expr.Range(), ty.FriendlyName())
	}
	return val, nil
}
