package option

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/hostconf/internal/conferr"
	"github.com/vk/hostconf/internal/ctxlog"
	"github.com/vk/hostconf/internal/dag"
	"github.com/vk/hostconf/internal/decl"
	"github.com/vk/hostconf/internal/host"
	"github.com/vk/hostconf/internal/overrides"
	"github.com/vk/hostconf/internal/probe"
	"github.com/zclconf/go-cty/cty"
)

// Prober runs capability probes. *probe.Runner satisfies it.
type Prober interface {
	Run(ctx context.Context, spec probe.Spec) (probe.Outcome, error)
}

// Resolver turns declared options into concrete values.
type Resolver struct {
	prober Prober
	probes map[string]probe.Spec
	facts  host.Facts
}

// NewResolver creates a Resolver. probes are the declared probes options may
// name as their required probe.
func NewResolver(prober Prober, probes []probe.Spec, facts host.Facts) *Resolver {
	byName := make(map[string]probe.Spec, len(probes))
	for _, p := range probes {
		byName[p.Name] = p
	}
	return &Resolver{prober: prober, probes: byName, facts: facts}
}

// Resolve resolves every option exactly once, each after all the options it
// depends on, and returns the resolutions in declaration order.
func (r *Resolver) Resolve(ctx context.Context, options []*decl.Option, ov *overrides.Set) ([]Resolution, error) {
	logger := ctxlog.FromContext(ctx)

	order, err := Order(options)
	if err != nil {
		return nil, err
	}
	logger.Debug("Option resolution order computed.", "order", order)

	byName := make(map[string]*decl.Option, len(options))
	for _, o := range options {
		byName[o.Name] = o
	}

	resolved := make(map[string]Resolution, len(options))
	values := make(map[string]cty.Value, len(options))
	for _, name := range order {
		opt := byName[name]
		scope := decl.Scope{Host: r.facts, Options: values}

		res, err := r.resolveOne(ctxlog.With(ctx, "option", name), opt, scope, ov)
		if err != nil {
			return nil, err
		}
		logger.Debug("Option resolved.", "option", name, "value", Display(res.Value), "source", res.Source.String(), "reason", res.Reason)

		resolved[name] = res
		values[name] = res.Value
	}

	out := make([]Resolution, 0, len(options))
	for _, o := range options {
		out = append(out, resolved[o.Name])
	}
	return out, nil
}

// Order returns the option names in resolution order: every option after
// its explicit and implicit dependencies, ties broken by declaration order.
func Order(options []*decl.Option) ([]string, error) {
	g := dag.New()
	for _, o := range options {
		g.AddNode(o.Name)
	}

	for _, o := range options {
		deps := append([]string{}, o.DependsOn...)
		for _, expr := range o.Expressions() {
			refs, err := decl.References(expr)
			if err != nil {
				return nil, conferr.Wrap(conferr.ErrInvalidExpression, o.Name, err)
			}
			deps = append(deps, refs...)
		}

		for _, dep := range deps {
			if !g.Has(dep) {
				return nil, conferr.New(conferr.ErrUndeclaredReference, o.Name, "depends on undeclared option %q", dep)
			}
			if err := g.AddEdge(dep, o.Name); err != nil {
				return nil, cycleError(err)
			}
		}
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, cycleError(err)
	}
	return order, nil
}

func cycleError(err error) error {
	var ce *dag.CycleError
	if errors.As(err, &ce) {
		return conferr.Cycle("options", ce.Path)
	}
	return err
}

func (r *Resolver) resolveOne(ctx context.Context, opt *decl.Option, scope decl.Scope, ov *overrides.Set) (Resolution, error) {
	res := Resolution{Name: opt.Name, Type: opt.Type, Export: opt.Export, Description: opt.Description}

	override, hasOverride := ov.Lookup(opt.Name)

	if opt.Type == decl.String {
		if hasOverride {
			res.Value, res.Source, res.Reason = cty.StringVal(override.Raw), FromOverride, "set from "+override.Source.String()
			return res, nil
		}
		s, err := decl.EvalString(opt.Default, scope.EvalContext())
		if err != nil {
			return res, conferr.Wrap(conferr.ErrInvalidExpression, opt.Name, err)
		}
		res.Value, res.Source, res.Reason = cty.StringVal(s), Declared, "default"
		return res, nil
	}

	state := opt.State
	if hasOverride {
		v, auto, err := overrides.ParseBool(override.Raw)
		if err != nil {
			return res, conferr.New(conferr.ErrInvalidOverride, opt.Name, "%v", err)
		}
		if auto {
			state = decl.Auto
		} else {
			res.Value, res.Source, res.Reason = cty.BoolVal(v), FromOverride, "set from "+override.Source.String()
			if v && opt.Mandatory {
				ctxlog.FromContext(ctx).Info("Mandatory option forced on by override, probe skipped.", "probe", opt.Probe)
			}
			return res, nil
		}
	}

	switch state {
	case decl.On, decl.Off:
		res.Value, res.Source = cty.BoolVal(state == decl.On), Declared
		res.Reason = "declared " + strings.ToLower(Display(res.Value))
		if opt.Mandatory {
			if err := r.requireProbe(ctx, opt); err != nil {
				return res, err
			}
		}
		return res, nil
	}

	res.Source = Automatic
	if opt.Guard != nil {
		pass, err := decl.EvalBool(opt.Guard, scope.EvalContext())
		if err != nil {
			return res, conferr.Wrap(conferr.ErrInvalidExpression, opt.Name, err)
		}
		if !pass {
			res.Value, res.Reason = cty.False, "platform guard not satisfied"
			return res, nil
		}
	}
	if opt.Probe == "" {
		res.Value, res.Reason = cty.True, "no probe required"
		return res, nil
	}

	spec, out, err := r.runProbe(ctx, opt)
	if err != nil {
		return res, err
	}
	if out.Supported {
		res.Value, res.Reason = cty.True, fmt.Sprintf("probe %s supported", spec.Name)
		return res, nil
	}
	if opt.Mandatory {
		return res, unsupportedError(opt, spec, out)
	}
	res.Value, res.Reason = cty.False, unsupportedReason(spec, out)
	ctxlog.FromContext(ctx).Info("Optional capability unavailable.", "probe", spec.Name, "query", spec.Query, "detail", out.Detail)
	return res, nil
}

// requireProbe fails when a mandatory option's probe reports unsupported.
// A declared literal state does not excuse a missing required capability.
func (r *Resolver) requireProbe(ctx context.Context, opt *decl.Option) error {
	spec, out, err := r.runProbe(ctx, opt)
	if err != nil {
		return err
	}
	if !out.Supported {
		return unsupportedError(opt, spec, out)
	}
	return nil
}

func (r *Resolver) runProbe(ctx context.Context, opt *decl.Option) (probe.Spec, probe.Outcome, error) {
	spec, ok := r.probes[opt.Probe]
	if !ok {
		return spec, probe.Outcome{}, conferr.New(conferr.ErrUndeclaredReference, opt.Name, "probe %q is not declared", opt.Probe)
	}
	out, err := r.prober.Run(ctx, spec)
	return spec, out, err
}

func unsupportedReason(spec probe.Spec, out probe.Outcome) string {
	reason := fmt.Sprintf("probe %s (%s %s) unsupported", spec.Name, spec.Kind, spec.Query)
	if out.Detail != "" {
		reason += ": " + out.Detail
	}
	return reason
}

func unsupportedError(opt *decl.Option, spec probe.Spec, out probe.Outcome) error {
	return conferr.New(conferr.ErrMandatoryUnsupported, opt.Name, "%s", unsupportedReason(spec, out))
}
