// Package host describes the machine a configuration pass targets: its
// operating system, CPU architecture and compiler. Facts are plain values
// supplied by the invoking environment; this package never runs anything.
package host

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Facts are the host properties option guards and path defaults may read.
type Facts struct {
	OS              string
	Arch            string
	CompilerFamily  string
	CompilerVersion string
}

// archNames maps Go architecture names onto the names native build
// descriptions conventionally use.
var archNames = map[string]string{
	"amd64":    "x86_64",
	"386":      "i686",
	"arm64":    "aarch64",
	"arm":      "arm",
	"ppc64le":  "ppc64le",
	"ppc64":    "ppc64",
	"riscv64":  "riscv64",
	"s390x":    "s390x",
	"loong64":  "loongarch64",
	"mips64le": "mips64el",
}

// FromRuntime returns the facts of the running process. The compiler is
// unknown until a version probe fills it in.
func FromRuntime() Facts {
	return Facts{
		OS:             runtime.GOOS,
		Arch:           NormalizeArch(runtime.GOARCH),
		CompilerFamily: "unknown",
	}
}

// NormalizeArch converts a Go architecture name to its conventional native
// name. Unknown names are returned lowercased and otherwise untouched.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(arch)
	if n, ok := archNames[arch]; ok {
		return n
	}
	return arch
}

var versionRe = regexp.MustCompile(`\b(\d+\.\d+(?:\.\d+)?)\b`)

// ParseCompilerVersion extracts the compiler family and version from the
// first line a compiler prints for `--version`.
func ParseCompilerVersion(line string) (family, version string) {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "clang"):
		family = "clang"
	case strings.Contains(lower, "microsoft"), strings.Contains(lower, "msvc"):
		family = "msvc"
	case strings.Contains(lower, "icc"), strings.Contains(lower, "intel"):
		family = "intel"
	case strings.Contains(lower, "gcc"), strings.Contains(lower, "g++"), strings.Contains(lower, "free software foundation"):
		family = "gcc"
	default:
		family = "unknown"
	}

	// The last dotted number on the line is the release; distributions put
	// their own package versions in parentheses before it.
	matches := versionRe.FindAllString(line, -1)
	if len(matches) > 0 {
		version = matches[len(matches)-1]
	}
	if family == "clang" {
		// "clang version 18.1.3 (https://...)" puts the release first.
		if idx := strings.Index(lower, "version "); idx >= 0 {
			if m := versionRe.FindString(line[idx:]); m != "" {
				version = m
			}
		}
	}
	return family, version
}

// Value returns the facts as the cty object exposed to expressions as `host`.
func (f Facts) Value() cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"os":               cty.StringVal(f.OS),
		"arch":             cty.StringVal(f.Arch),
		"compiler":         cty.StringVal(f.CompilerFamily),
		"compiler_version": cty.StringVal(f.CompilerVersion),
	})
}
