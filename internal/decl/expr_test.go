package decl

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/hostconf/internal/host"
	"github.com/zclconf/go-cty/cty"
)

func parseExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return expr
}

func TestReferences(t *testing.T) {
	refs, err := References(parseExpr(t, `option.B && host.os == "linux" || option.A && option.B`))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, refs)

	refs, err = References(nil)
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = References(parseExpr(t, `env.HOME`))
	assert.ErrorContains(t, err, `unknown variable "env"`)

	_, err = References(parseExpr(t, `option`))
	assert.ErrorContains(t, err, "option name")
}

func TestDefined(t *testing.T) {
	assert.False(t, Defined(nil))
	assert.True(t, Defined(parseExpr(t, `true`)))

	placeholder := hcl.StaticExpr(cty.NullVal(cty.DynamicPseudoType), hcl.Range{Filename: "x.hcl"})
	assert.False(t, Defined(placeholder))
}

func TestEval(t *testing.T) {
	scope := Scope{
		Host: host.Facts{OS: "linux", Arch: "x86_64", CompilerFamily: "gcc", CompilerVersion: "13.2.0"},
		Options: map[string]cty.Value{
			"WITH_X": cty.True,
			"SUFFIX": cty.StringVal(".so"),
		},
	}
	ctx := scope.EvalContext()

	testCases := []struct {
		src  string
		want bool
	}{
		{`host.os == "linux"`, true},
		{`host.arch == "aarch64"`, false},
		{`option.WITH_X && host.compiler == "gcc"`, true},
		{`version_at_least(host.compiler_version, "12")`, true},
		{`version_at_least(host.compiler_version, "14.1")`, false},
		{`contains(["x86_64", "i686"], host.arch)`, true},
		{`upper(host.os) == "LINUX"`, true},
		{`"true"`, true},
	}
	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			got, err := EvalBool(parseExpr(t, tc.src), ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	s, err := EvalString(parseExpr(t, `"lib${option.SUFFIX}"`), ctx)
	require.NoError(t, err)
	assert.Equal(t, "lib.so", s)

	_, err = EvalBool(parseExpr(t, `"maybe"`), ctx)
	assert.Error(t, err)

	_, err = EvalBool(parseExpr(t, `null`), ctx)
	assert.Error(t, err)

	_, err = EvalBool(parseExpr(t, `option.MISSING`), ctx)
	assert.Error(t, err)

	t.Run("empty option scope", func(t *testing.T) {
		got, err := EvalBool(parseExpr(t, `host.os != "windows"`), Scope{Host: scope.Host}.EvalContext())
		require.NoError(t, err)
		assert.True(t, got)
	})
}

func TestVersionAtLeast(t *testing.T) {
	assert.True(t, VersionAtLeast("13.2.0", "13.2"))
	assert.True(t, VersionAtLeast("18.1.3", "9"))
	assert.False(t, VersionAtLeast("9.4", "10"))
	assert.False(t, VersionAtLeast("", "1"))
	assert.False(t, VersionAtLeast("banana", "1"))
}
