// Package artifact renders the configuration record into text files and
// writes them all-or-nothing.
package artifact

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/vk/hostconf/internal/record"
	"gopkg.in/yaml.v3"
)

// Artifact is a generated file. Path is relative to the output directory.
type Artifact struct {
	Path    string
	Content string
}

// Layout names the artifacts to generate. An empty path skips that
// artifact.
type Layout struct {
	HeaderPath  string
	SummaryPath string
	RecordPath  string
}

// Generate renders every artifact named by layout. It is a pure function of
// the record: identical records produce byte-identical artifacts.
func Generate(rec *record.Record, layout Layout) ([]Artifact, error) {
	var out []Artifact
	if layout.HeaderPath != "" {
		out = append(out, Artifact{Path: layout.HeaderPath, Content: Header(rec, layout.HeaderPath)})
	}
	if layout.SummaryPath != "" {
		out = append(out, Artifact{Path: layout.SummaryPath, Content: FlagSummary(rec)})
	}
	if layout.RecordPath != "" {
		b, err := yaml.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to render record: %w", err)
		}
		out = append(out, Artifact{Path: layout.RecordPath, Content: string(b)})
	}
	return out, nil
}

// Header renders the feature header. A true boolean becomes `#define NAME`;
// a false one is left out entirely, so downstream code tests with #ifdef.
// Exported string entries become `#define NAME "value"`.
func Header(rec *record.Record, name string) string {
	guard := includeGuard(name)

	var b strings.Builder
	b.WriteString("/* Generated by hostconf. Do not edit. */\n")
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", guard, guard)
	for _, e := range rec.Entries() {
		switch {
		case e.IsBool():
			if e.Value.True() {
				fmt.Fprintf(&b, "#define %s\n", e.Name)
			}
		case e.Export:
			fmt.Fprintf(&b, "#define %s %s\n", e.Name, cString(e.Value.AsString()))
		}
	}
	fmt.Fprintf(&b, "\n#endif /* %s */\n", guard)
	return b.String()
}

// FlagSummary renders one NAME=true|false line per boolean entry.
func FlagSummary(rec *record.Record) string {
	var b strings.Builder
	for _, e := range rec.Entries() {
		if e.IsBool() {
			fmt.Fprintf(&b, "%s=%t\n", e.Name, e.Value.True())
		}
	}
	return b.String()
}

// includeGuard derives a guard macro from a file name:
// "config/features.h" becomes "FEATURES_H".
func includeGuard(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteByte('_')
		}
	}
	guard := b.String()
	if guard == "" || unicode.IsDigit(rune(guard[0])) {
		guard = "_" + guard
	}
	return guard
}

// cString quotes s as a C string literal.
func cString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\%03o`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
