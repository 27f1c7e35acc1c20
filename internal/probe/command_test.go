package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCommand(t *testing.T) {
	env := func(name string) string {
		return map[string]string{"CC": "clang", "TRIPLE": "x86_64-linux-gnu"}[name]
	}

	testCases := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "cc --version", []string{"cc", "--version"}},
		{"single quotes", "echo 'a b'", []string{"echo", "a b"}},
		{"double quotes with var", `pkg-config "--variable=prefix ${TRIPLE}"`, []string{"pkg-config", "--variable=prefix x86_64-linux-gnu"}},
		{"bare var", "$CC -m32", []string{"clang", "-m32"}},
		{"unset var", "tool $NOPE", []string{"tool", ""}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SplitCommand(tc.line, env)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitCommand_Rejects(t *testing.T) {
	for _, line := range []string{
		"",
		"a | b",
		"a; b",
		"a && b",
		"a > out",
		"a &",
		"FOO=1 a",
		"echo $(uname)",
		"echo ${X:-y}",
		"if true; then :; fi",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := SplitCommand(line, func(string) string { return "" })
			assert.Error(t, err)
		})
	}
}

func TestReorderLibs(t *testing.T) {
	got := reorderLibs([]string{"-lm", "-O2", "a.c", "-lz", "-o", "a.out"})
	assert.Equal(t, []string{"-O2", "a.c", "-o", "a.out", "-lm", "-lz"}, got)
}

func TestSourceTemplates(t *testing.T) {
	assert.Contains(t, symbolSource("strlcpy", "string.h"), "#include <string.h>")
	assert.Contains(t, symbolSource("strlcpy", "string.h"), "&strlcpy")
	assert.Contains(t, symbolSource("strlcpy", ""), "char strlcpy(void);")
	assert.NotContains(t, librarySource(""), "char ")
	assert.Contains(t, librarySource("deflate"), "deflate()")
}
