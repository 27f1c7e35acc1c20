package engine

import (
	"context"
	"time"

	"github.com/vk/hostconf/internal/artifact"
	"github.com/vk/hostconf/internal/ctxlog"
	"github.com/vk/hostconf/internal/decl"
	"github.com/vk/hostconf/internal/host"
	"github.com/vk/hostconf/internal/option"
	"github.com/vk/hostconf/internal/overrides"
	"github.com/vk/hostconf/internal/paths"
	"github.com/vk/hostconf/internal/probe"
	"github.com/vk/hostconf/internal/record"
)

// Config holds the knobs of a pass that do not come from the table.
type Config struct {
	// ProbeTimeout bounds each probe; zero selects probe.DefaultTimeout.
	ProbeTimeout time.Duration
	// CompilerCommand, when set and the host compiler is unknown, is run
	// with --version to detect the compiler family and version.
	CompilerCommand string
}

// Engine runs configuration passes against one toolchain.
type Engine struct {
	toolchain probe.Toolchain
	cfg       Config
}

// New creates an Engine.
func New(tc probe.Toolchain, cfg Config) *Engine {
	return &Engine{toolchain: tc, cfg: cfg}
}

// Result is everything a successful pass produces.
type Result struct {
	Host        host.Facts
	Record      *record.Record
	Artifacts   []artifact.Artifact
	Resolutions []option.Resolution
	Paths       []paths.Resolved
	// Probes lists every probe that reached the toolchain, in order.
	Probes []probe.Result
	// Summary is the one-line feature summary of the record.
	Summary string
	// UnknownOverrides names overrides that match no option or path.
	UnknownOverrides []string
}

// Run executes one pass. Probe outcomes are cached for the duration of the
// call only.
func (e *Engine) Run(ctx context.Context, table *decl.Table, facts host.Facts, ov *overrides.Set) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuration pass started.", "options", len(table.Options), "paths", len(table.Paths), "overrides", ov.Len())

	if err := decl.Validate(table); err != nil {
		return nil, err
	}
	unknown := unknownOverrides(table, ov)
	for _, name := range unknown {
		logger.Warn("Override does not match any option or path.", "name", name)
	}

	runner := probe.NewRunner(e.toolchain, e.cfg.ProbeTimeout)

	facts, err := e.detectCompiler(ctx, runner, facts)
	if err != nil {
		return nil, err
	}
	logger.Debug("Host facts.", "os", facts.OS, "arch", facts.Arch, "compiler", facts.CompilerFamily, "compiler_version", facts.CompilerVersion)

	if err := checkRequired(ctx, runner, table.Probes); err != nil {
		return nil, err
	}

	resolutions, err := option.NewResolver(runner, table.Probes, facts).Resolve(ctx, table.Options, ov)
	if err != nil {
		return nil, err
	}

	resolvedPaths, err := paths.NewResolver(facts).Resolve(ctx, table.Paths, ov, option.Values(resolutions))
	if err != nil {
		return nil, err
	}

	rec, err := record.Build(resolutions, resolvedPaths)
	if err != nil {
		return nil, err
	}

	summary, err := rec.Summary(table.Artifacts.FeatureConventions)
	if err != nil {
		return nil, err
	}

	arts, err := artifact.Generate(rec, artifact.Layout{
		HeaderPath:  table.Artifacts.Header,
		SummaryPath: table.Artifacts.Summary,
		RecordPath:  table.Artifacts.Record,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Configuration pass complete.", "entries", rec.Len(), "artifacts", len(arts), "probes", len(runner.Executed()))
	return &Result{
		Host:             facts,
		Record:           rec,
		Artifacts:        arts,
		Resolutions:      resolutions,
		Paths:            resolvedPaths,
		Probes:           runner.Executed(),
		Summary:          summary,
		UnknownOverrides: unknown,
	}, nil
}

// detectCompiler fills in the compiler family and version by running the
// compiler with --version through the probe runner. A compiler that cannot
// be run leaves the facts unchanged.
func (e *Engine) detectCompiler(ctx context.Context, runner *probe.Runner, facts host.Facts) (host.Facts, error) {
	if e.cfg.CompilerCommand == "" || (facts.CompilerFamily != "" && facts.CompilerFamily != "unknown") {
		return facts, nil
	}
	out, err := runner.Run(ctx, probe.Spec{
		Name:  "compiler_version",
		Kind:  probe.ExternalCommand,
		Query: e.cfg.CompilerCommand + " --version",
	})
	if err != nil {
		return facts, err
	}
	if !out.Supported {
		ctxlog.FromContext(ctx).Info("Compiler version unavailable.", "compiler", e.cfg.CompilerCommand, "detail", out.Detail)
		if facts.CompilerFamily == "" {
			facts.CompilerFamily = "unknown"
		}
		return facts, nil
	}
	facts.CompilerFamily, facts.CompilerVersion = host.ParseCompilerVersion(out.Detail)
	return facts, nil
}

// checkRequired runs every probe declared required, whether or not an option
// reaches it. Outcomes land in the runner cache for the options that do.
func checkRequired(ctx context.Context, runner *probe.Runner, probes []probe.Spec) error {
	for _, spec := range probes {
		if !spec.Required {
			continue
		}
		if _, err := runner.Run(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// unknownOverrides returns the override names that match nothing in the
// table.
func unknownOverrides(table *decl.Table, ov *overrides.Set) []string {
	known := make(map[string]struct{}, len(table.Options)+2*len(table.Paths))
	for _, o := range table.Options {
		known[o.Name] = struct{}{}
	}
	for _, p := range table.Paths {
		known[p.Name] = struct{}{}
		if rt := p.RuntimeVariable(); rt != "" {
			known[rt] = struct{}{}
		}
	}

	var unknown []string
	for _, name := range ov.Names() {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
