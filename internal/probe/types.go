package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is the category of a capability check.
type Kind int

const (
	CompilerFlag Kind = iota + 1
	Header
	Symbol
	Library
	ExternalCommand
)

var kindNames = map[Kind]string{
	CompilerFlag:    "compiler_flag",
	Header:          "header",
	Symbol:          "symbol",
	Library:         "library",
	ExternalCommand: "external_command",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts the declaration spelling of a kind into a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown probe kind %q (want one of compiler_flag, header, symbol, library, external_command)", s)
}

// Spec is a declared capability check.
type Spec struct {
	Name  string
	Kind  Kind
	Query string

	// Header is included before a Symbol check.
	Header string
	// Symbol is referenced by a Library check so the linker must resolve it.
	Symbol string
	// Required makes a missing external command fatal instead of unsupported.
	Required bool
}

// Key identifies probes that must share one outcome within a pass.
type Key struct {
	Kind   Kind
	Query  string
	Header string
	Symbol string
}

// Key returns the cache identity of the spec.
func (s Spec) Key() Key {
	return Key{Kind: s.Kind, Query: s.Query, Header: s.Header, Symbol: s.Symbol}
}

// Outcome is the result of a probe. A missing capability is Supported=false,
// never an error.
type Outcome struct {
	Supported bool
	Detail    string
}

// Result pairs an executed probe with its outcome, for diagnostics.
type Result struct {
	Spec    Spec
	Outcome Outcome
}

// ErrCommandNotFound is returned by a Toolchain when the executable a probe
// needs cannot be located at all.
var ErrCommandNotFound = errors.New("command not found")

// Toolchain performs the actual checks against the host.
type Toolchain interface {
	Check(ctx context.Context, spec Spec) (Outcome, error)
}
