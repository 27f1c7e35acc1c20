package decl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/vk/hostconf/internal/conferr"
	"github.com/vk/hostconf/internal/ctxlog"
	"github.com/vk/hostconf/internal/fsutil"
	"github.com/vk/hostconf/internal/probe"
)

// Loader reads declaration tables from HCL files.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL declaration loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load discovers every .hcl file under the given paths (files or
// directories), decodes them in order and merges them into one validated
// Table.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Table, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Declaration loader started.", "path_count", len(paths))

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, conferr.New(conferr.ErrInvalidDeclaration, "", "no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	roots := make([]*fileRoot, 0, len(files))
	for _, file := range files {
		hclFile, diags := l.parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, conferr.Wrap(conferr.ErrInvalidDeclaration, file, diags)
		}
		root, err := decodeFile(file, hclFile)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}

	table, err := build(roots)
	if err != nil {
		return nil, err
	}
	logger.Debug("Declaration loading complete.", "probes", len(table.Probes), "options", len(table.Options), "paths", len(table.Paths))
	return table, nil
}

// Parse decodes a single in-memory declaration source into a validated Table.
func (l *Loader) Parse(filename string, src []byte) (*Table, error) {
	hclFile, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, conferr.Wrap(conferr.ErrInvalidDeclaration, filename, diags)
	}
	root, err := decodeFile(filename, hclFile)
	if err != nil {
		return nil, err
	}
	return build([]*fileRoot{root})
}

func decodeFile(filename string, f *hcl.File) (*fileRoot, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return nil, conferr.Wrap(conferr.ErrInvalidDeclaration, filename, diags)
	}
	return &root, nil
}

// build translates decoded files in order and validates the merged table.
func build(roots []*fileRoot) (*Table, error) {
	table := &Table{}
	var artifacts []*artifactsBlock

	for _, root := range roots {
		for _, b := range root.Probes {
			spec, err := translateProbe(b)
			if err != nil {
				return nil, err
			}
			table.Probes = append(table.Probes, spec)
		}
		for _, b := range root.Options {
			opt, err := translateOption(b)
			if err != nil {
				return nil, err
			}
			table.Options = append(table.Options, opt)
		}
		for _, b := range root.Paths {
			p, err := translatePath(b)
			if err != nil {
				return nil, err
			}
			table.Paths = append(table.Paths, p)
		}
		artifacts = append(artifacts, root.Artifacts...)
	}

	if err := applyArtifacts(table, artifacts); err != nil {
		return nil, err
	}
	if err := Validate(table); err != nil {
		return nil, err
	}
	return table, nil
}

func translateProbe(b *probeBlock) (probe.Spec, error) {
	kind, err := probe.ParseKind(b.Kind)
	if err != nil {
		return probe.Spec{}, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "%v", err)
	}
	if b.Query == "" {
		return probe.Spec{}, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "query must not be empty")
	}
	if b.Header != "" && kind != probe.Symbol {
		return probe.Spec{}, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "header applies only to symbol probes")
	}
	if b.Symbol != "" && kind != probe.Library {
		return probe.Spec{}, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "symbol applies only to library probes")
	}
	if b.Required && kind != probe.ExternalCommand {
		return probe.Spec{}, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "required applies only to external_command probes")
	}
	return probe.Spec{
		Name:     b.Name,
		Kind:     kind,
		Query:    b.Query,
		Header:   b.Header,
		Symbol:   b.Symbol,
		Required: b.Required,
	}, nil
}

func translateOption(b *optionBlock) (*Option, error) {
	state, err := ParseState(b.State)
	if err != nil {
		return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "%v", err)
	}

	opt := &Option{
		Name:        b.Name,
		State:       state,
		Probe:       b.Probe,
		Mandatory:   b.Mandatory,
		DependsOn:   b.DependsOn,
		Export:      b.Export,
		Description: b.Description,
	}
	if Defined(b.Guard) {
		opt.Guard = b.Guard
	}
	if Defined(b.Default) {
		opt.Default = b.Default
	}

	switch b.Type {
	case "", "bool":
		opt.Type = Bool
		if opt.Default != nil {
			return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "boolean options take a state, not a default")
		}
		if opt.Export {
			return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "export applies only to string options")
		}
	case "string":
		opt.Type = String
		if b.State != "" {
			return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "string options take a default, not a state")
		}
		if opt.Default == nil {
			return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "string options require a default")
		}
		if opt.Probe != "" || opt.Mandatory || opt.Guard != nil {
			return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "probe, mandatory and guard apply only to boolean options")
		}
	default:
		return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "unknown type %q (want bool or string)", b.Type)
	}
	if opt.Mandatory && opt.Probe == "" {
		return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "mandatory options must name a probe")
	}
	return opt, nil
}

func translatePath(b *pathBlock) (*Path, error) {
	p := &Path{
		Name:        b.Name,
		Parent:      b.Parent,
		Suffix:      b.Suffix,
		Runtime:     b.Runtime,
		RuntimeName: b.RuntimeName,
		Export:      b.Export,
	}
	if Defined(b.Default) {
		p.Default = b.Default
	}
	if p.Parent != "" && p.Default != nil {
		return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "a path takes either a parent or a default, not both")
	}
	if p.Parent == "" && p.Suffix != "" {
		return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "suffix requires a parent")
	}
	if p.RuntimeName != "" && !p.Runtime {
		return nil, conferr.New(conferr.ErrInvalidDeclaration, b.Name, "runtime_name requires runtime = true")
	}
	return p, nil
}

func applyArtifacts(table *Table, blocks []*artifactsBlock) error {
	if len(blocks) > 1 {
		return conferr.New(conferr.ErrDuplicateDeclaration, "artifacts", "only one artifacts block is allowed, found %d", len(blocks))
	}
	table.Artifacts.FeatureConventions = DefaultFeatureConventions
	if len(blocks) == 0 {
		return nil
	}
	b := blocks[0]
	for _, p := range []string{b.Header, b.Summary, b.Record} {
		if filepath.IsAbs(p) {
			return conferr.New(conferr.ErrInvalidDeclaration, "artifacts", "artifact path %q must be relative to the output directory", p)
		}
	}
	table.Artifacts.Header = b.Header
	table.Artifacts.Summary = b.Summary
	table.Artifacts.Record = b.Record
	if b.FeatureConventions != nil {
		table.Artifacts.FeatureConventions = b.FeatureConventions
	}
	return nil
}

// findHCLFiles returns every .hcl file named by or found under paths, in
// discovery order and without duplicates.
func findHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		files, err := fsutil.FindFiles(afero.NewOsFs(), path, "**/*.hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", path, err)
		}
		for _, f := range files {
			add(f)
		}
	}
	return all, nil
}
