// Package paths resolves the install-path layout. Every path variable is a
// root computed from its default expression, or a child derived from its
// parent plus a suffix, and any of them may be overridden.
//
// Two cascades run side by side. The install cascade is what the build
// copies files into; the runtime cascade is what the installed program
// reads from. They share every value until a runtime variant is overridden
// on its own, after which its children follow the runtime value.
package paths

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/vk/hostconf/internal/conferr"
	"github.com/vk/hostconf/internal/ctxlog"
	"github.com/vk/hostconf/internal/decl"
	"github.com/vk/hostconf/internal/host"
	"github.com/vk/hostconf/internal/overrides"
	"github.com/zclconf/go-cty/cty"
)

// Source says which rule produced a path value.
type Source int

const (
	Default Source = iota + 1
	Derived
	FromOverride
)

func (s Source) String() string {
	switch s {
	case Default:
		return "default"
	case Derived:
		return "derived"
	case FromOverride:
		return "override"
	}
	return "unknown"
}

// Resolved is one resolved flag: an install path or its runtime variant.
type Resolved struct {
	Name  string
	Value string
	// Of names the install variable a runtime variant belongs to; it is
	// empty for install paths.
	Of     string
	Source Source
	Export bool
}

// Resolver resolves path variables against host facts and option values.
type Resolver struct {
	facts host.Facts
}

// NewResolver creates a Resolver.
func NewResolver(facts host.Facts) *Resolver {
	return &Resolver{facts: facts}
}

// Resolve resolves vars in declaration order. Each install path is
// immediately followed by its runtime variant, if declared.
func (r *Resolver) Resolve(ctx context.Context, vars []*decl.Path, ov *overrides.Set, options map[string]cty.Value) ([]Resolved, error) {
	logger := ctxlog.FromContext(ctx)

	index := make(map[string]int, len(vars))
	for i, v := range vars {
		index[v.Name] = i
	}

	install := make(map[string]string, len(vars))
	// runtime holds the runtime-cascade value of every path, including
	// those that do not export a runtime variant, so that the cascade flows
	// through them.
	runtime := make(map[string]string, len(vars))
	scope := decl.Scope{Host: r.facts, Options: options}

	out := make([]Resolved, 0, len(vars))
	for i, v := range vars {
		if v.Parent != "" {
			if err := checkParent(vars, index, i); err != nil {
				return nil, err
			}
		}

		res := Resolved{Name: v.Name, Export: v.Export}
		override, overridden := ov.Lookup(v.Name)

		switch {
		case v.Parent == "" && overridden:
			res.Value, res.Source = override.Raw, FromOverride
		case v.Parent == "":
			if v.Default == nil {
				return nil, conferr.New(conferr.ErrInvalidPath, v.Name, "root path has no default and no override")
			}
			s, err := decl.EvalString(v.Default, scope.EvalContext())
			if err != nil {
				return nil, conferr.Wrap(conferr.ErrInvalidExpression, v.Name, err)
			}
			res.Value, res.Source = s, Default
		case overridden:
			res.Value, res.Source = joinOnto(install[v.Parent], override.Raw), FromOverride
		default:
			res.Value, res.Source = install[v.Parent]+v.Suffix, Derived
		}
		if v.Parent == "" && !isAbs(res.Value) {
			return nil, conferr.New(conferr.ErrInvalidPath, v.Name, "root path %q is not absolute", res.Value)
		}
		install[v.Name] = res.Value

		// Without a divergent runtime override the runtime cascade tracks the
		// install cascade.
		rtValue, rtSource := res.Value, res.Source
		if v.Parent != "" {
			switch {
			case !overridden:
				rtValue = runtime[v.Parent] + v.Suffix
			case !isAbs(override.Raw):
				// A relative override names a location under the parent in
				// both cascades.
				rtValue = joinOnto(runtime[v.Parent], override.Raw)
			}
		}

		rtName := v.RuntimeVariable()
		if rtName != "" {
			if rtOverride, ok := ov.Lookup(rtName); ok {
				rtSource = FromOverride
				switch {
				case isAbs(rtOverride.Raw):
					rtValue = rtOverride.Raw
				case v.Parent != "":
					rtValue = joinOnto(runtime[v.Parent], rtOverride.Raw)
				default:
					return nil, conferr.New(conferr.ErrInvalidPath, rtName, "root runtime path %q is not absolute", rtOverride.Raw)
				}
			}
		}
		runtime[v.Name] = rtValue

		logger.Debug("Path resolved.", "path", v.Name, "value", res.Value, "source", res.Source.String())
		out = append(out, res)

		if rtName != "" {
			logger.Debug("Runtime path resolved.", "path", rtName, "value", rtValue)
			out = append(out, Resolved{Name: rtName, Value: rtValue, Of: v.Name, Source: rtSource, Export: v.Export})
		}
	}
	return out, nil
}

// checkParent verifies that the parent of vars[i] is declared before it.
// A parent chain that leads back to vars[i] is a cycle; any other late
// parent is a forward reference.
func checkParent(vars []*decl.Path, index map[string]int, i int) error {
	v := vars[i]
	p, ok := index[v.Parent]
	if !ok {
		return conferr.New(conferr.ErrUndeclaredReference, v.Name, "parent %q is not a declared path", v.Parent)
	}
	if p < i {
		return nil
	}

	chain := []string{v.Name}
	seen := map[string]bool{v.Name: true}
	for cur := v.Parent; cur != ""; {
		chain = append(chain, cur)
		if cur == v.Name {
			return conferr.Cycle("paths", chain)
		}
		if seen[cur] {
			break
		}
		seen[cur] = true
		j, ok := index[cur]
		if !ok {
			break
		}
		cur = vars[j].Parent
	}
	return conferr.New(conferr.ErrUndeclaredReference, v.Name, "parent %q must be declared before %q", v.Parent, v.Name)
}

// joinOnto applies a child override: absolute values replace the parent,
// relative ones are placed under it.
func joinOnto(parent, raw string) string {
	if isAbs(raw) {
		return raw
	}
	return path.Join(parent, raw)
}

// isAbs accepts POSIX absolute paths as well as absolute paths of the
// running platform, such as C:\Program Files.
func isAbs(p string) bool {
	return strings.HasPrefix(p, "/") || filepath.IsAbs(p)
}
