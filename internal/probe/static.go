package probe

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// StaticToolchain answers probes from a fixed table of outcomes. It backs
// cross builds, where facts about the target are recorded ahead of time,
// and tests.
//
// A probe missing from the table is unsupported, except for external
// commands, which are reported as not found.
type StaticToolchain struct {
	outcomes map[Key]Outcome
	calls    map[Key]int
}

// NewStaticToolchain creates an empty table.
func NewStaticToolchain() *StaticToolchain {
	return &StaticToolchain{
		outcomes: make(map[Key]Outcome),
		calls:    make(map[Key]int),
	}
}

// Set records the outcome for a probe identity.
func (t *StaticToolchain) Set(kind Kind, query string, out Outcome) *StaticToolchain {
	t.outcomes[Key{Kind: kind, Query: query}] = out
	return t
}

// SetKey records the outcome for a fully qualified probe identity.
func (t *StaticToolchain) SetKey(key Key, out Outcome) *StaticToolchain {
	t.outcomes[key] = out
	return t
}

// Calls returns how many times a probe identity reached the table.
func (t *StaticToolchain) Calls(kind Kind, query string) int {
	n := 0
	for k, c := range t.calls {
		if k.Kind == kind && k.Query == query {
			n += c
		}
	}
	return n
}

// Check implements Toolchain.
func (t *StaticToolchain) Check(ctx context.Context, spec Spec) (Outcome, error) {
	key := spec.Key()
	t.calls[key]++

	if out, ok := t.outcomes[key]; ok {
		return out, nil
	}
	// Fall back to the unqualified identity.
	if out, ok := t.outcomes[Key{Kind: spec.Kind, Query: spec.Query}]; ok {
		return out, nil
	}
	if spec.Kind == ExternalCommand {
		return Outcome{}, fmt.Errorf("%w: %s", ErrCommandNotFound, spec.Query)
	}
	return Outcome{Supported: false, Detail: "not recorded"}, nil
}

// factEntry is one recorded outcome in a facts file.
type factEntry struct {
	Kind      string `yaml:"kind"`
	Query     string `yaml:"query"`
	Header    string `yaml:"header,omitempty"`
	Symbol    string `yaml:"symbol,omitempty"`
	Supported bool   `yaml:"supported"`
	Detail    string `yaml:"detail,omitempty"`
}

// LoadFacts reads a YAML list of recorded probe outcomes, one entry per probe
// with the keys kind, query, header, symbol, supported and detail:
//
//	[{kind: header, query: netinet/tcp.h, supported: true}]
func LoadFacts(r io.Reader) (*StaticToolchain, error) {
	var entries []factEntry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode probe facts: %w", err)
	}

	t := NewStaticToolchain()
	for i, e := range entries {
		kind, err := ParseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("probe fact %d: %w", i, err)
		}
		if e.Query == "" {
			return nil, fmt.Errorf("probe fact %d: query is required", i)
		}
		t.SetKey(Key{Kind: kind, Query: e.Query, Header: e.Header, Symbol: e.Symbol},
			Outcome{Supported: e.Supported, Detail: e.Detail})
	}
	return t, nil
}
