package paths

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/hostconf/internal/conferr"
	"github.com/vk/hostconf/internal/ctxlog"
	"github.com/vk/hostconf/internal/decl"
	"github.com/vk/hostconf/internal/host"
	"github.com/vk/hostconf/internal/overrides"
	"github.com/zclconf/go-cty/cty"
)

const layout = `
option "WITH_MULTIARCH" { state = "on" }

path "PREFIX" {
  default = host.os == "windows" ? "C:/Program Files/app" : "/usr"
  runtime = true
}
path "DATAROOTDIR" {
  parent = "PREFIX"
  suffix = "/share"
}
path "DATADIR" {
  parent  = "DATAROOTDIR"
  suffix  = "/app"
  runtime = true
}
path "LIBDIR" {
  parent  = "PREFIX"
  suffix  = "/lib"
  runtime = true
  runtime_name = "RUNTIME_LIBDIR"
}
`

func resolve(t *testing.T, src string, ov *overrides.Set) ([]Resolved, error) {
	t.Helper()
	table, err := decl.NewLoader().Parse("paths.hcl", []byte(src))
	require.NoError(t, err)
	facts := host.Facts{OS: "linux", Arch: "x86_64"}
	options := map[string]cty.Value{"WITH_MULTIARCH": cty.True}
	return NewResolver(facts).Resolve(ctxlog.Discard(context.Background()), table.Paths, ov, options)
}

func flat(res []Resolved) [][2]string {
	out := make([][2]string, 0, len(res))
	for _, r := range res {
		out = append(out, [2]string{r.Name, r.Value})
	}
	return out
}

func TestResolve_Cascade(t *testing.T) {
	res, err := resolve(t, layout, nil)
	require.NoError(t, err)

	want := [][2]string{
		{"PREFIX", "/usr"},
		{"PREFIX_RUNTIME", "/usr"},
		{"DATAROOTDIR", "/usr/share"},
		{"DATADIR", "/usr/share/app"},
		{"DATADIR_RUNTIME", "/usr/share/app"},
		{"LIBDIR", "/usr/lib"},
		{"RUNTIME_LIBDIR", "/usr/lib"},
	}
	if diff := cmp.Diff(want, flat(res)); diff != "" {
		t.Errorf("resolved paths mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Default, res[0].Source)
	assert.Equal(t, "PREFIX", res[1].Of)
	assert.Equal(t, Derived, res[2].Source)
}

func TestResolve_ChildOverride(t *testing.T) {
	ov := overrides.New()
	ov.Add(overrides.CLI, "DATAROOTDIR", "/opt/app")

	res, err := resolve(t, layout, ov)
	require.NoError(t, err)

	got := flat(res)
	assert.Equal(t, [2]string{"PREFIX", "/usr"}, got[0], "the parent is unaffected")
	assert.Equal(t, [2]string{"DATAROOTDIR", "/opt/app"}, got[2])
	assert.Equal(t, [2]string{"DATADIR", "/opt/app/app"}, got[3])
	assert.Equal(t, [2]string{"LIBDIR", "/usr/lib"}, got[5], "siblings are unaffected")
	assert.Equal(t, FromOverride, res[2].Source)
}

func TestResolve_RelativeChildOverride(t *testing.T) {
	ov := overrides.New()
	ov.Add(overrides.CLI, "LIBDIR", "lib64")

	res, err := resolve(t, layout, ov)
	require.NoError(t, err)
	assert.Equal(t, [2]string{"LIBDIR", "/usr/lib64"}, flat(res)[5])
	assert.Equal(t, [2]string{"RUNTIME_LIBDIR", "/usr/lib64"}, flat(res)[6])
}

func TestResolve_RuntimeCascade(t *testing.T) {
	ov := overrides.New()
	ov.Add(overrides.CLI, "PREFIX_RUNTIME", "/app")

	res, err := resolve(t, layout, ov)
	require.NoError(t, err)

	want := [][2]string{
		{"PREFIX", "/usr"},
		{"PREFIX_RUNTIME", "/app"},
		{"DATAROOTDIR", "/usr/share"},
		{"DATADIR", "/usr/share/app"},
		{"DATADIR_RUNTIME", "/app/share/app"},
		{"LIBDIR", "/usr/lib"},
		{"RUNTIME_LIBDIR", "/app/lib"},
	}
	if diff := cmp.Diff(want, flat(res)); diff != "" {
		t.Errorf("runtime cascade mismatch (-want +got):\n%s", diff)
	}

	t.Run("relative runtime override of a child", func(t *testing.T) {
		ov := overrides.New()
		ov.Add(overrides.CLI, "DATADIR_RUNTIME", "appdata")
		res, err := resolve(t, layout, ov)
		require.NoError(t, err)
		assert.Equal(t, [2]string{"DATADIR_RUNTIME", "/usr/share/appdata"}, flat(res)[4])
		assert.Equal(t, [2]string{"DATADIR", "/usr/share/app"}, flat(res)[3])
	})

	t.Run("relative install override follows the runtime parent", func(t *testing.T) {
		ov := overrides.New()
		ov.Add(overrides.CLI, "PREFIX_RUNTIME", "/run")
		ov.Add(overrides.CLI, "DATAROOTDIR", "share")
		ov.Add(overrides.CLI, "LIBDIR", "/opt/lib")
		res, err := resolve(t, layout, ov)
		require.NoError(t, err)

		want := [][2]string{
			{"PREFIX", "/usr"},
			{"PREFIX_RUNTIME", "/run"},
			{"DATAROOTDIR", "/usr/share"},
			{"DATADIR", "/usr/share/app"},
			{"DATADIR_RUNTIME", "/run/share/app"},
			{"LIBDIR", "/opt/lib"},
			{"RUNTIME_LIBDIR", "/opt/lib"},
		}
		if diff := cmp.Diff(want, flat(res)); diff != "" {
			t.Errorf("runtime cascade mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestResolve_RootDefaultReadsOptions(t *testing.T) {
	const src = `
option "WITH_MULTIARCH" { state = "on" }
path "LIBROOT" { default = option.WITH_MULTIARCH ? "/usr/lib/${host.arch}-linux-gnu" : "/usr/lib" }
`
	res, err := resolve(t, src, nil)
	require.NoError(t, err)
	assert.Equal(t, "/usr/lib/x86_64-linux-gnu", res[0].Value)
}

func TestResolve_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		src    string
		ov     map[string]string
		kind   error
		entity string
		msg    string
	}{
		{
			name: "forward reference",
			src: `
path "DATADIR" {
  parent = "PREFIX"
  suffix = "/share"
}
path "PREFIX" { default = "/usr" }`,
			kind: conferr.ErrUndeclaredReference, entity: "DATADIR", msg: "must be declared before",
		},
		{
			name: "cycle",
			src: `
path "A" { parent = "B" }
path "B" { parent = "A" }`,
			kind: conferr.ErrCycleDetected, entity: "paths", msg: "A -> B -> A",
		},
		{
			name: "self parent",
			src:  `path "A" { parent = "A" }`,
			kind: conferr.ErrCycleDetected, entity: "paths", msg: "A -> A",
		},
		{
			name: "relative root",
			src:  `path "PREFIX" { default = "usr/local" }`,
			kind: conferr.ErrInvalidPath, entity: "PREFIX",
		},
		{
			name: "relative root override",
			src:  `path "PREFIX" { default = "/usr" }`,
			ov:   map[string]string{"PREFIX": "opt"},
			kind: conferr.ErrInvalidPath, entity: "PREFIX",
		},
		{
			name: "root without default",
			src:  `path "PREFIX" {}`,
			kind: conferr.ErrInvalidPath, entity: "PREFIX",
		},
		{
			name: "non-string default",
			src:  `path "PREFIX" { default = ["/usr"] }`,
			kind: conferr.ErrInvalidExpression, entity: "PREFIX",
		},
		{
			name: "relative root runtime override",
			src: `path "PREFIX" {
  default = "/usr"
  runtime = true
}`,
			ov:   map[string]string{"PREFIX_RUNTIME": "app"},
			kind: conferr.ErrInvalidPath, entity: "PREFIX_RUNTIME",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ov := overrides.New()
			for k, v := range tc.ov {
				ov.Add(overrides.CLI, k, v)
			}
			_, err := resolve(t, tc.src, ov)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.entity, conferr.EntityOf(err))
			if tc.msg != "" {
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}

	t.Run("root override without default", func(t *testing.T) {
		ov := overrides.New()
		ov.Add(overrides.CLI, "PREFIX", "/srv")
		res, err := resolve(t, `path "PREFIX" {}`, ov)
		require.NoError(t, err)
		assert.Equal(t, "/srv", res[0].Value)
	})
}
