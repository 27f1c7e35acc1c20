package decl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/hostconf/internal/conferr"
	"github.com/vk/hostconf/internal/ctxlog"
	"github.com/vk/hostconf/internal/probe"
)

const sampleTable = `
probe "lib_vncclient" {
  kind  = "library"
  query = "vncclient"
  symbol = "rfbGetClient"
}

probe "pkgconf" {
  kind     = "external_command"
  query    = "pkg-config --version"
  required = true
}

option "WITH_GCRYPT" {
  state = "on"
}

option "WITH_VNC" {
  state       = "auto"
  guard       = host.os != "windows" && option.WITH_GCRYPT
  probe       = "lib_vncclient"
  depends_on  = ["WITH_GCRYPT"]
  description = "VNC protocol plugin"
}

option "PLUGIN_SUFFIX" {
  type    = "string"
  default = host.os == "darwin" ? ".dylib" : ".so"
  export  = true
}

path "PREFIX" { default = "/usr/local" }

path "DATADIR" {
  parent  = "PREFIX"
  suffix  = "/share"
  runtime = true
}

artifacts {
  header  = "config/features.h"
  summary = "config/flags.txt"
}
`

func TestLoader_Parse(t *testing.T) {
	table, err := NewLoader().Parse("table.hcl", []byte(sampleTable))
	require.NoError(t, err)

	require.Len(t, table.Probes, 2)
	assert.Equal(t, probe.Spec{Name: "lib_vncclient", Kind: probe.Library, Query: "vncclient", Symbol: "rfbGetClient"}, table.Probes[0])
	assert.True(t, table.Probes[1].Required)

	require.Len(t, table.Options, 3)
	gcrypt, vnc, suffix := table.Options[0], table.Options[1], table.Options[2]

	assert.Equal(t, On, gcrypt.State)
	assert.Nil(t, gcrypt.Guard, "an omitted guard must not survive as a placeholder expression")

	assert.Equal(t, Auto, vnc.State)
	assert.Equal(t, Bool, vnc.Type)
	assert.NotNil(t, vnc.Guard)
	assert.Equal(t, "lib_vncclient", vnc.Probe)
	assert.Equal(t, []string{"WITH_GCRYPT"}, vnc.DependsOn)
	assert.Equal(t, "VNC protocol plugin", vnc.Description)

	assert.Equal(t, String, suffix.Type)
	assert.NotNil(t, suffix.Default)
	assert.True(t, suffix.Export)

	require.Len(t, table.Paths, 2)
	assert.Equal(t, "", table.Paths[0].Parent)
	assert.NotNil(t, table.Paths[0].Default)
	assert.Equal(t, "PREFIX", table.Paths[1].Parent)
	assert.Equal(t, "/share", table.Paths[1].Suffix)
	assert.Equal(t, "DATADIR_RUNTIME", table.Paths[1].RuntimeVariable())
	assert.Equal(t, "", table.Paths[0].RuntimeVariable())

	assert.Equal(t, "config/features.h", table.Artifacts.Header)
	assert.Equal(t, "config/flags.txt", table.Artifacts.Summary)
	assert.Equal(t, "", table.Artifacts.Record)
	assert.Equal(t, DefaultFeatureConventions, table.Artifacts.FeatureConventions)

	assert.Equal(t, probe.ExternalCommand, table.Probes[1].Kind)
}

func TestLoader_Load(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()

	// Files are merged in lexical order.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`option "HAVE_A" { state = "on" }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.hcl"), []byte(`option "HAVE_B" { state = "off" }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not hcl`), 0o644))

	table, err := NewLoader().Load(ctx, dir, filepath.Join(dir, "a.hcl"))
	require.NoError(t, err)
	require.Len(t, table.Options, 2, "a file named twice is loaded once")
	assert.Equal(t, "HAVE_A", table.Options[0].Name)
	assert.Equal(t, "HAVE_B", table.Options[1].Name)

	t.Run("missing path", func(t *testing.T) {
		_, err := NewLoader().Load(ctx, filepath.Join(dir, "missing"))
		assert.ErrorContains(t, err, "error accessing path")
	})

	t.Run("no files", func(t *testing.T) {
		_, err := NewLoader().Load(ctx, t.TempDir())
		assert.ErrorIs(t, err, conferr.ErrInvalidDeclaration)
	})

	t.Run("duplicates across files", func(t *testing.T) {
		dup := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dup, "a.hcl"), []byte(`option "X" {}`), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dup, "b.hcl"), []byte(`path "X" { default = "/x" }`), 0o644))
		_, err := NewLoader().Load(ctx, dup)
		assert.ErrorIs(t, err, conferr.ErrDuplicateDeclaration)
		assert.Equal(t, "X", conferr.EntityOf(err))
	})
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		src    string
		kind   error
		entity string
	}{
		{"syntax error", `option "X" {`, conferr.ErrInvalidDeclaration, "t.hcl"},
		{"unknown block", `target "x" {}`, conferr.ErrInvalidDeclaration, "t.hcl"},
		{"unknown attribute", `option "X" { colour = "red" }`, conferr.ErrInvalidDeclaration, "t.hcl"},
		{"bad state", `option "X" { state = "maybe" }`, conferr.ErrInvalidDeclaration, "X"},
		{"bad type", `option "X" { type = "number" }`, conferr.ErrInvalidDeclaration, "X"},
		{"bool with default", `option "X" { default = true }`, conferr.ErrInvalidDeclaration, "X"},
		{"string without default", `option "X" { type = "string" }`, conferr.ErrInvalidDeclaration, "X"},
		{"string with state", `option "X" {
  type = "string"
  state = "on"
  default = "a"
}`, conferr.ErrInvalidDeclaration, "X"},
		{"mandatory without probe", `option "X" { mandatory = true }`, conferr.ErrInvalidDeclaration, "X"},
		{"bad probe kind", `probe "p" {
  kind = "pkg"
  query = "x"
}`, conferr.ErrInvalidDeclaration, "p"},
		{"header on library probe", `probe "p" {
  kind = "library"
  query = "z"
  header = "zlib.h"
}`, conferr.ErrInvalidDeclaration, "p"},
		{"duplicate probe", `probe "p" {
  kind = "header"
  query = "a.h"
}
probe "p" {
  kind = "header"
  query = "b.h"
}`, conferr.ErrDuplicateDeclaration, "p"},
		{"duplicate option", `
option "X" {}
option "X" {}`, conferr.ErrDuplicateDeclaration, "X"},
		{"runtime name clash", `
option "DATADIR_RUNTIME" {}
path "DATADIR" {
  default = "/usr/share"
  runtime = true
}`, conferr.ErrDuplicateDeclaration, "DATADIR_RUNTIME"},
		{"undeclared probe", `option "X" { probe = "nope" }`, conferr.ErrUndeclaredReference, "X"},
		{"undeclared dependency", `option "X" { depends_on = ["Y"] }`, conferr.ErrUndeclaredReference, "X"},
		{"undeclared option in guard", `option "X" { guard = option.Y }`, conferr.ErrUndeclaredReference, "X"},
		{"unknown variable in guard", `option "X" { guard = var.y }`, conferr.ErrInvalidExpression, "X"},
		{"undeclared parent", `path "LIBDIR" { parent = "PREFIX" }`, conferr.ErrUndeclaredReference, "LIBDIR"},
		{"parent and default", `
path "PREFIX" { default = "/usr" }
path "LIBDIR" {
  parent = "PREFIX"
  default = "/lib"
}`, conferr.ErrInvalidDeclaration, "LIBDIR"},
		{"dashed option name", `option "WITH-SSL" {}`, conferr.ErrInvalidDeclaration, "WITH-SSL"},
		{"dashed path name", `path "my-dir" {
  default = "/srv"
  export  = true
}`, conferr.ErrInvalidDeclaration, "my-dir"},
		{"dashed runtime name", `path "DATADIR" {
  default      = "/usr/share"
  runtime      = true
  runtime_name = "DATADIR-RT"
}`, conferr.ErrInvalidDeclaration, "DATADIR-RT"},
		{"required compile probe", `probe "p" {
  kind = "header"
  query = "zlib.h"
  required = true
}`, conferr.ErrInvalidDeclaration, "p"},
		{"two artifacts blocks", `
artifacts {}
artifacts {}`, conferr.ErrDuplicateDeclaration, "artifacts"},
		{"absolute artifact path", `artifacts { header = "/etc/config.h" }`, conferr.ErrInvalidDeclaration, "artifacts"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().Parse("t.hcl", []byte(tc.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.entity, conferr.EntityOf(err))
		})
	}
}
