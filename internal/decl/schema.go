package decl

import (
	"github.com/hashicorp/hcl/v2"
)

// --- HCL file schema ---

// fileRoot decodes every top-level block a declaration file may carry.
// Files are merged in discovery order.
type fileRoot struct {
	Probes    []*probeBlock     `hcl:"probe,block"`
	Options   []*optionBlock    `hcl:"option,block"`
	Paths     []*pathBlock      `hcl:"path,block"`
	Artifacts []*artifactsBlock `hcl:"artifacts,block"`
}

// probeBlock is a `probe "name" {}` capability check.
type probeBlock struct {
	Name     string `hcl:"name,label"`
	Kind     string `hcl:"kind"`
	Query    string `hcl:"query"`
	Header   string `hcl:"header,optional"`
	Symbol   string `hcl:"symbol,optional"`
	Required bool   `hcl:"required,optional"`
}

// optionBlock is an `option "NAME" {}` feature switch.
type optionBlock struct {
	Name        string         `hcl:"name,label"`
	State       string         `hcl:"state,optional"`
	Type        string         `hcl:"type,optional"`
	Guard       hcl.Expression `hcl:"guard,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Probe       string         `hcl:"probe,optional"`
	Mandatory   bool           `hcl:"mandatory,optional"`
	DependsOn   []string       `hcl:"depends_on,optional"`
	Export      bool           `hcl:"export,optional"`
	Description string         `hcl:"description,optional"`
}

// pathBlock is a `path "NAME" {}` install location.
type pathBlock struct {
	Name        string         `hcl:"name,label"`
	Default     hcl.Expression `hcl:"default,optional"`
	Parent      string         `hcl:"parent,optional"`
	Suffix      string         `hcl:"suffix,optional"`
	Runtime     bool           `hcl:"runtime,optional"`
	RuntimeName string         `hcl:"runtime_name,optional"`
	Export      bool           `hcl:"export,optional"`
}

// artifactsBlock names the generated files. At most one per table.
type artifactsBlock struct {
	Header             string   `hcl:"header,optional"`
	Summary            string   `hcl:"summary,optional"`
	Record             string   `hcl:"record,optional"`
	FeatureConventions []string `hcl:"feature_conventions,optional"`
}
