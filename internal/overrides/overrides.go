// Package overrides collects user-supplied values for options and paths from
// an override file, the environment and the command line.
package overrides

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Source is where an override came from. Later sources take precedence.
type Source int

const (
	File Source = iota + 1
	Env
	CLI
)

func (s Source) String() string {
	switch s {
	case File:
		return "file"
	case Env:
		return "env"
	case CLI:
		return "cli"
	}
	return "unknown"
}

// Value is one override.
type Value struct {
	Name   string
	Raw    string
	Source Source
}

// Set holds at most one override per name, the one from the highest
// precedence source.
type Set struct {
	values map[string]Value
}

// New creates an empty Set.
func New() *Set {
	return &Set{values: make(map[string]Value)}
}

// Add records an override unless one from a higher precedence source is
// already present. Within one source the last value wins.
func (s *Set) Add(src Source, name, raw string) {
	if prev, ok := s.values[name]; ok && prev.Source > src {
		return
	}
	s.values[name] = Value{Name: name, Raw: raw, Source: src}
}

// Lookup returns the override for name.
func (s *Set) Lookup(name string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[name]
	return v, ok
}

// Names returns every overridden name in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.values))
	for n := range s.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of overridden names.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// ParseAssignment splits a NAME=VALUE command-line assignment.
func ParseAssignment(arg string) (name, value string, err error) {
	name, value, ok := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("override %q must have the form NAME=VALUE", arg)
	}
	return name, value, nil
}

// Sources are the raw inputs of an override Set.
type Sources struct {
	// File is an optional KEY=VALUE file in dotenv syntax.
	File string
	// Environ is a list of KEY=VALUE pairs, usually os.Environ().
	Environ []string
	// EnvPrefix selects and is stripped from environment names. Empty
	// disables environment overrides.
	EnvPrefix string
	// Assignments are NAME=VALUE pairs from the command line.
	Assignments []string
}

// DefaultEnvPrefix marks environment variables treated as overrides.
const DefaultEnvPrefix = "HOSTCONF_"

// Build merges all sources, lowest precedence first.
func Build(src Sources) (*Set, error) {
	set := New()

	if src.File != "" {
		values, err := godotenv.Read(src.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read override file %s: %w", src.File, err)
		}
		// godotenv returns a map; sort so the result never depends on map order.
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			set.Add(File, k, values[k])
		}
	}

	if src.EnvPrefix != "" {
		for _, kv := range src.Environ {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || !strings.HasPrefix(k, src.EnvPrefix) {
				continue
			}
			if name := strings.TrimPrefix(k, src.EnvPrefix); name != "" {
				set.Add(Env, name, v)
			}
		}
	}

	for _, a := range src.Assignments {
		name, value, err := ParseAssignment(a)
		if err != nil {
			return nil, err
		}
		set.Add(CLI, name, value)
	}
	return set, nil
}

// ParseBool interprets a boolean override. The spellings ON, OFF, TRUE,
// FALSE, YES, NO, 1 and 0 are accepted in any case; AUTO reports auto=true
// and leaves value unset.
func ParseBool(raw string) (value, auto bool, err error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ON", "TRUE", "YES", "1":
		return true, false, nil
	case "OFF", "FALSE", "NO", "0":
		return false, false, nil
	case "AUTO":
		return false, true, nil
	}
	return false, false, fmt.Errorf("%q is not a boolean (use ON, OFF or AUTO)", raw)
}
