package app

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/vk/hostconf/internal/engine"
	"github.com/vk/hostconf/internal/option"
)

// report prints the human-readable outcome of a run to outW.
func (a *App) report(res *engine.Result, written []string) {
	on := color.New(color.FgGreen, color.Bold)
	off := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)
	for _, c := range []*color.Color{on, off, dim} {
		if a.config.NoColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}

	fmt.Fprintf(a.outW, "Host: %s/%s, compiler %s %s\n", res.Host.OS, res.Host.Arch, res.Host.CompilerFamily, res.Host.CompilerVersion)

	fmt.Fprintln(a.outW, "Options:")
	for _, r := range res.Resolutions {
		value := option.Display(r.Value)
		switch value {
		case "ON":
			value = on.Sprint(value)
		case "OFF":
			value = off.Sprint(value)
		}
		fmt.Fprintf(a.outW, "  %-24s %s %s\n", r.Name, value, dim.Sprintf("(%s: %s)", r.Source, r.Reason))
		if r.Description != "" {
			fmt.Fprintf(a.outW, "  %-24s %s\n", "", dim.Sprint(r.Description))
		}
	}

	if len(res.Paths) > 0 {
		fmt.Fprintln(a.outW, "Paths:")
		for _, p := range res.Paths {
			fmt.Fprintf(a.outW, "  %-24s %s\n", p.Name, p.Value)
		}
	}

	if res.Summary != "" {
		fmt.Fprintf(a.outW, "Features: %s\n", res.Summary)
	}
	if len(res.UnknownOverrides) > 0 {
		fmt.Fprintf(a.outW, "Unused overrides: %s\n", strings.Join(res.UnknownOverrides, ", "))
	}
	for _, w := range written {
		fmt.Fprintf(a.outW, "Wrote %s\n", w)
	}
}
