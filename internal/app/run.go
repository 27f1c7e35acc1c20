package app

import (
	"context"
	"fmt"

	"github.com/vk/hostconf/internal/artifact"
	"github.com/vk/hostconf/internal/conferr"
	"github.com/vk/hostconf/internal/ctxlog"
	"github.com/vk/hostconf/internal/engine"
	"github.com/vk/hostconf/internal/host"
	"github.com/vk/hostconf/internal/overrides"
)

// Run executes one configuration pass and writes its artifacts. Any error
// it returns happened before a single artifact was written.
func (a *App) Run(ctx context.Context) (*engine.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	table, err := a.loader.Load(ctx, a.config.DeclPaths...)
	if err != nil {
		return nil, err
	}

	ov, err := overrides.Build(overrides.Sources{
		File:        a.config.OverridesFile,
		Environ:     a.config.Environ,
		EnvPrefix:   a.config.EnvPrefix,
		Assignments: a.config.Overrides,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Overrides collected.", "names", ov.Names())

	tc, release, err := a.openToolchain(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	eng := engine.New(tc, engine.Config{
		ProbeTimeout:    a.config.ProbeTimeout,
		CompilerCommand: a.compilerCommand(),
	})
	result, err := eng.Run(ctx, table, a.hostFacts(), ov)
	if err != nil {
		a.logger.Error("Configuration pass failed.", "entity", conferr.EntityOf(err), "error", err)
		return nil, err
	}

	var written []string
	if a.config.DryRun {
		a.logger.Info("Dry run, no artifacts written.", "artifacts", len(result.Artifacts))
	} else {
		written, err = artifact.NewWriter(a.fs, a.config.OutDir).WriteAll(ctx, result.Artifacts)
		if err != nil {
			return nil, fmt.Errorf("failed to write artifacts: %w", err)
		}
	}

	a.report(result, written)
	a.logger.Debug("App.Run method finished.")
	return result, nil
}

// hostFacts starts from the running process and applies the configured
// overrides.
func (a *App) hostFacts() host.Facts {
	facts := host.FromRuntime()
	if a.config.OS != "" {
		facts.OS = a.config.OS
	}
	if a.config.Arch != "" {
		facts.Arch = host.NormalizeArch(a.config.Arch)
	}
	if a.config.CompilerFamily != "" {
		facts.CompilerFamily = a.config.CompilerFamily
		facts.CompilerVersion = a.config.CompilerVersion
	}
	return facts
}

// compilerCommand is the compiler run for version detection. Recorded facts
// stand in for a different machine, so the local compiler says nothing
// about it.
func (a *App) compilerCommand() string {
	if a.config.ProbeFacts != "" {
		return ""
	}
	if a.config.CompilerCommand == "" {
		return "cc"
	}
	return a.config.CompilerCommand
}
