package option

import (
	"github.com/vk/hostconf/internal/decl"
	"github.com/zclconf/go-cty/cty"
)

// Source says which rule produced a resolved value.
type Source int

const (
	Declared Source = iota + 1
	Automatic
	FromOverride
)

func (s Source) String() string {
	switch s {
	case Declared:
		return "declared"
	case Automatic:
		return "auto"
	case FromOverride:
		return "override"
	}
	return "unknown"
}

// Resolution is the outcome for one option. Value is a known cty.Bool or
// cty.String, never null.
type Resolution struct {
	Name   string
	Type   decl.ValueType
	Value  cty.Value
	Source Source
	// Reason is a short human-readable explanation for diagnostics.
	Reason string
	Export bool
	// Description is copied from the declaration for reports.
	Description string
}

// Values maps option names to their resolved values, the form path
// defaults read through `option.<NAME>`.
func Values(res []Resolution) map[string]cty.Value {
	out := make(map[string]cty.Value, len(res))
	for _, r := range res {
		out[r.Name] = r.Value
	}
	return out
}

// Display renders a resolved value for logs.
func Display(v cty.Value) string {
	switch {
	case v.IsNull():
		return "<unset>"
	case v.Type() == cty.Bool:
		if v.True() {
			return "ON"
		}
		return "OFF"
	case v.Type() == cty.String:
		return v.AsString()
	}
	return v.GoString()
}
