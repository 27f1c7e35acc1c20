package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DeclPaths []string // .hcl files or directories
	OutDir    string   // artifact paths are relative to it

	Overrides     []string // NAME=VALUE, highest precedence
	OverridesFile string
	EnvPrefix     string
	Environ       []string

	OS              string
	Arch            string
	CompilerCommand string
	CompilerFamily  string
	CompilerVersion string

	ProbeTimeout time.Duration
	ProbeFacts   string // recorded probe outcomes instead of the host compiler

	LogFormat string
	LogLevel  string
	DryRun    bool
	NoColor   bool
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.DeclPaths) == 0 {
		return nil, errors.New("at least one declaration path is required")
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	if cfg.ProbeTimeout < 0 {
		return nil, errors.New("probe timeout must not be negative")
	}
	return &cfg, nil
}
