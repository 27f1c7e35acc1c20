// Package record aggregates resolved options and paths into the immutable,
// ordered configuration record every artifact is rendered from.
package record

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vk/hostconf/internal/conferr"
	"github.com/vk/hostconf/internal/decl"
	"github.com/vk/hostconf/internal/option"
	"github.com/vk/hostconf/internal/paths"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Kind distinguishes where an entry came from.
type Kind int

const (
	OptionEntry Kind = iota + 1
	PathEntry
)

// Entry is one named value of the record. Value is a known cty.Bool or
// cty.String.
type Entry struct {
	Name   string
	Kind   Kind
	Value  cty.Value
	Export bool
}

// IsBool reports whether the entry holds a boolean.
func (e Entry) IsBool() bool {
	return e.Value.Type() == cty.Bool
}

// Record is the ordered result of a configuration pass. It has no mutating
// methods.
type Record struct {
	entries []Entry
	index   map[string]int
}

// Build aggregates options then paths, each in declaration order.
func Build(options []option.Resolution, resolvedPaths []paths.Resolved) (*Record, error) {
	r := &Record{
		entries: make([]Entry, 0, len(options)+len(resolvedPaths)),
		index:   make(map[string]int, len(options)+len(resolvedPaths)),
	}
	add := func(e Entry) error {
		if _, dup := r.index[e.Name]; dup {
			return conferr.New(conferr.ErrDuplicateDeclaration, e.Name, "flag appears twice in the configuration record")
		}
		if e.Value.IsNull() || !e.Value.IsKnown() {
			return fmt.Errorf("record entry %s has no value", e.Name)
		}
		r.index[e.Name] = len(r.entries)
		r.entries = append(r.entries, e)
		return nil
	}

	for _, o := range options {
		if err := add(Entry{Name: o.Name, Kind: OptionEntry, Value: o.Value, Export: o.Export}); err != nil {
			return nil, err
		}
	}
	for _, p := range resolvedPaths {
		if err := add(Entry{Name: p.Name, Kind: PathEntry, Value: cty.StringVal(p.Value), Export: p.Export}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Len returns the number of entries.
func (r *Record) Len() int { return len(r.entries) }

// Entries returns a copy of all entries in record order.
func (r *Record) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup returns the entry named name.
func (r *Record) Lookup(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Bool returns the value of a boolean entry. ok is false when the entry is
// missing or not a boolean.
func (r *Record) Bool(name string) (value, ok bool) {
	e, found := r.Lookup(name)
	if !found || !e.IsBool() {
		return false, false
	}
	return e.Value.True(), true
}

// String returns the value of a string entry.
func (r *Record) String(name string) (string, bool) {
	e, found := r.Lookup(name)
	if !found || e.Value.Type() != cty.String {
		return "", false
	}
	return e.Value.AsString(), true
}

// Features returns the boolean entries whose names match any of the
// feature-flag conventions, in record order. An empty conventions list
// selects decl.DefaultFeatureConventions.
func (r *Record) Features(conventions []string) ([]Entry, error) {
	if len(conventions) == 0 {
		conventions = decl.DefaultFeatureConventions
	}
	for _, c := range conventions {
		if !doublestar.ValidatePattern(c) {
			return nil, fmt.Errorf("invalid feature convention %q", c)
		}
	}

	var out []Entry
	for _, e := range r.entries {
		if !e.IsBool() {
			continue
		}
		for _, c := range conventions {
			if ok, _ := doublestar.Match(c, e.Name); ok {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

// Summary joins the feature flags into one line for diagnostic display,
// e.g. "WITH_VNC=ON, HAVE_ZLIB=OFF".
func (r *Record) Summary(conventions []string) (string, error) {
	features, err := r.Features(conventions)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(features))
	for _, e := range features {
		parts = append(parts, e.Name+"="+option.Display(e.Value))
	}
	return strings.Join(parts, ", "), nil
}

// MarshalYAML renders the record as a mapping that keeps record order.
func (r *Record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range r.entries {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name}
		val := &yaml.Node{Kind: yaml.ScalarNode}
		if e.IsBool() {
			val.Tag = "!!bool"
			val.Value = fmt.Sprintf("%t", e.Value.True())
		} else {
			val.Tag = "!!str"
			val.Value = e.Value.AsString()
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}
