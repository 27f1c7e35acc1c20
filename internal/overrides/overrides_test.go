package overrides

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Precedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "overrides.env")
	require.NoError(t, os.WriteFile(file, []byte("WITH_VNC=ON\nPREFIX=/opt/file\n# comment\nLIBDIR=lib64\n"), 0o644))

	set, err := Build(Sources{
		File:        file,
		Environ:     []string{"HOSTCONF_PREFIX=/opt/env", "HOSTCONF_WITH_VNC=OFF", "PATH=/bin", "HOSTCONF_=ignored"},
		EnvPrefix:   DefaultEnvPrefix,
		Assignments: []string{"WITH_VNC=AUTO"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"LIBDIR", "PREFIX", "WITH_VNC"}, set.Names())
	assert.Equal(t, 3, set.Len())

	v, ok := set.Lookup("WITH_VNC")
	require.True(t, ok)
	assert.Equal(t, Value{Name: "WITH_VNC", Raw: "AUTO", Source: CLI}, v)

	v, ok = set.Lookup("PREFIX")
	require.True(t, ok)
	assert.Equal(t, "/opt/env", v.Raw)
	assert.Equal(t, Env, v.Source)

	v, ok = set.Lookup("LIBDIR")
	require.True(t, ok)
	assert.Equal(t, File, v.Source)

	_, ok = set.Lookup("PATH")
	assert.False(t, ok, "variables without the prefix are not overrides")
}

func TestSet_Add(t *testing.T) {
	set := New()
	set.Add(CLI, "A", "1")
	set.Add(Env, "A", "2")
	set.Add(CLI, "B", "1")
	set.Add(CLI, "B", "2")

	a, _ := set.Lookup("A")
	assert.Equal(t, "1", a.Raw, "a lower precedence source must not replace a higher one")
	b, _ := set.Lookup("B")
	assert.Equal(t, "2", b.Raw, "the last value within one source wins")

	var nilSet *Set
	_, ok := nilSet.Lookup("A")
	assert.False(t, ok)
	assert.Empty(t, nilSet.Names())
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(Sources{File: filepath.Join(t.TempDir(), "missing.env")})
	assert.ErrorContains(t, err, "failed to read override file")

	_, err = Build(Sources{Assignments: []string{"=x"}})
	assert.ErrorContains(t, err, "NAME=VALUE")

	_, err = Build(Sources{Assignments: []string{"WITH_X"}})
	assert.ErrorContains(t, err, "NAME=VALUE")

	set, err := Build(Sources{Environ: []string{"HOSTCONF_A=1"}})
	require.NoError(t, err)
	assert.Zero(t, set.Len(), "an empty prefix disables environment overrides")
}

func TestParseAssignment(t *testing.T) {
	name, value, err := ParseAssignment("CFLAGS=-O2 -g=3")
	require.NoError(t, err)
	assert.Equal(t, "CFLAGS", name)
	assert.Equal(t, "-O2 -g=3", value)

	name, value, err = ParseAssignment("EMPTY=")
	require.NoError(t, err)
	assert.Equal(t, "EMPTY", name)
	assert.Equal(t, "", value)
}

func TestParseBool(t *testing.T) {
	for _, raw := range []string{"ON", "on", "True", "YES", "1", " on "} {
		v, auto, err := ParseBool(raw)
		require.NoError(t, err, raw)
		assert.True(t, v, raw)
		assert.False(t, auto, raw)
	}
	for _, raw := range []string{"OFF", "false", "no", "0"} {
		v, auto, err := ParseBool(raw)
		require.NoError(t, err, raw)
		assert.False(t, v, raw)
		assert.False(t, auto, raw)
	}

	_, auto, err := ParseBool("Auto")
	require.NoError(t, err)
	assert.True(t, auto)

	_, _, err = ParseBool("perhaps")
	assert.ErrorContains(t, err, "not a boolean")
}
