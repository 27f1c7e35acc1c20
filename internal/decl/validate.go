package decl

import (
	"regexp"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/hostconf/internal/conferr"
)

// flagName matches names usable both as HCL traversal steps and as C macro
// names. HCL identifiers alone would also admit dashes.
var flagName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks a table for problems visible without resolving anything,
// such as duplicate names or references to undeclared entities. Parent
// ordering and cycles among paths are left to the path resolver, which
// reports them with the full chain.
func Validate(t *Table) error {
	probes := make(map[string]struct{}, len(t.Probes))
	for _, p := range t.Probes {
		if !hclsyntax.ValidIdentifier(p.Name) {
			return conferr.New(conferr.ErrInvalidDeclaration, p.Name, "probe name is not a valid identifier")
		}
		if _, dup := probes[p.Name]; dup {
			return conferr.New(conferr.ErrDuplicateDeclaration, p.Name, "probe declared more than once")
		}
		probes[p.Name] = struct{}{}
	}

	// Options, paths and runtime variants share one flag namespace.
	flags := make(map[string]string)
	claim := func(name, what string) error {
		if prev, dup := flags[name]; dup {
			return conferr.New(conferr.ErrDuplicateDeclaration, name, "declared as %s and again as %s", prev, what)
		}
		flags[name] = what
		return nil
	}

	options := make(map[string]struct{}, len(t.Options))
	for _, o := range t.Options {
		if !flagName.MatchString(o.Name) {
			return conferr.New(conferr.ErrInvalidDeclaration, o.Name, "option name is not a valid identifier")
		}
		if err := claim(o.Name, "an option"); err != nil {
			return err
		}
		options[o.Name] = struct{}{}
	}
	for _, p := range t.Paths {
		if !flagName.MatchString(p.Name) {
			return conferr.New(conferr.ErrInvalidDeclaration, p.Name, "path name is not a valid identifier")
		}
		if err := claim(p.Name, "a path"); err != nil {
			return err
		}
		if rt := p.RuntimeVariable(); rt != "" {
			if !flagName.MatchString(rt) {
				return conferr.New(conferr.ErrInvalidDeclaration, rt, "runtime variant name is not a valid identifier")
			}
			if err := claim(rt, "the runtime variant of "+p.Name); err != nil {
				return err
			}
		}
	}

	for _, o := range t.Options {
		if o.Probe != "" {
			if _, ok := probes[o.Probe]; !ok {
				return conferr.New(conferr.ErrUndeclaredReference, o.Name, "probe %q is not declared", o.Probe)
			}
		}
		for _, dep := range o.DependsOn {
			if _, ok := options[dep]; !ok {
				return conferr.New(conferr.ErrUndeclaredReference, o.Name, "depends on undeclared option %q", dep)
			}
		}
		if err := checkReferences(o.Name, options, o.Expressions()...); err != nil {
			return err
		}
	}

	paths := make(map[string]struct{}, len(t.Paths))
	for _, p := range t.Paths {
		paths[p.Name] = struct{}{}
	}
	for _, p := range t.Paths {
		if p.Parent != "" {
			if _, ok := paths[p.Parent]; !ok {
				return conferr.New(conferr.ErrUndeclaredReference, p.Name, "parent %q is not a declared path", p.Parent)
			}
		}
		if p.Default != nil {
			if err := checkReferences(p.Name, options, p.Default); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkReferences(entity string, options map[string]struct{}, exprs ...hcl.Expression) error {
	for _, expr := range exprs {
		refs, err := References(expr)
		if err != nil {
			return conferr.Wrap(conferr.ErrInvalidExpression, entity, err)
		}
		for _, ref := range refs {
			if _, ok := options[ref]; !ok {
				return conferr.New(conferr.ErrUndeclaredReference, entity, "expression reads undeclared option %q", ref)
			}
		}
	}
	return nil
}
