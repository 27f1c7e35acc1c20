package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/hostconf/internal/app"
	"github.com/vk/hostconf/internal/overrides"
	"github.com/vk/hostconf/internal/probe"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// assignments collects repeated -D NAME=VALUE flags.
type assignments []string

func (a *assignments) String() string { return strings.Join(*a, ",") }

func (a *assignments) Set(v string) error {
	if _, _, err := overrides.ParseAssignment(v); err != nil {
		return err
	}
	*a = append(*a, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// environ is the process environment; it supplies $CC and prefixed overrides.
func Parse(args []string, environ []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("hostconf", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
hostconf - Resolve build options against the host toolchain.

Usage:
  hostconf [options] [DECL_PATH...]

Arguments:
  DECL_PATH
    Path to a single .hcl declaration file or a directory containing them.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaultCC := lookupEnv(environ, "CC")
	if defaultCC == "" {
		defaultCC = "cc"
	}

	var defines assignments
	declFlag := flagSet.String("decl", "", "Path to the declaration file or directory.")
	outFlag := flagSet.String("out", ".", "Directory generated artifacts are written under.")
	flagSet.Var(&defines, "D", "Override an option or path as NAME=VALUE. May be repeated.")
	overridesFileFlag := flagSet.String("overrides-file", "", "Dotenv file of NAME=VALUE overrides.")
	envPrefixFlag := flagSet.String("env-prefix", overrides.DefaultEnvPrefix, "Prefix of environment variables read as overrides. Empty disables them.")
	osFlag := flagSet.String("os", "", "Target operating system. Defaults to the running one.")
	archFlag := flagSet.String("arch", "", "Target architecture. Defaults to the running one.")
	ccFlag := flagSet.String("cc", defaultCC, "Compiler command probes are run with.")
	compilerFlag := flagSet.String("compiler", "", "Compiler family, skipping version detection. Options: 'gcc', 'clang', 'msvc', 'intel'.")
	compilerVersionFlag := flagSet.String("compiler-version", "", "Compiler version reported alongside -compiler.")
	timeoutFlag := flagSet.Duration("probe-timeout", probe.DefaultTimeout, "Upper bound on a single probe.")
	factsFlag := flagSet.String("probe-facts", "", "YAML file of recorded probe outcomes used instead of the compiler.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Resolve and report without writing artifacts.")
	noColorFlag := flagSet.Bool("no-color", false, "Disable colored report output.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	var paths []string
	if *declFlag != "" {
		paths = append(paths, *declFlag)
	}
	paths = append(paths, flagSet.Args()...)
	slog.Debug("Declaration paths determined.", "paths", paths)

	if len(paths) == 0 {
		slog.Debug("No declaration path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *compilerVersionFlag != "" && *compilerFlag == "" {
		return nil, false, &ExitError{Code: 2, Message: "-compiler-version requires -compiler"}
	}
	if *timeoutFlag <= 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid probe-timeout %s: must be positive", *timeoutFlag)}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		DeclPaths:       paths,
		OutDir:          *outFlag,
		Overrides:       defines,
		OverridesFile:   *overridesFileFlag,
		EnvPrefix:       *envPrefixFlag,
		Environ:         environ,
		OS:              *osFlag,
		Arch:            *archFlag,
		CompilerCommand: *ccFlag,
		CompilerFamily:  strings.ToLower(*compilerFlag),
		CompilerVersion: *compilerVersionFlag,
		ProbeTimeout:    *timeoutFlag,
		ProbeFacts:      *factsFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		DryRun:          *dryRunFlag,
		NoColor:         *noColorFlag || lookupEnv(environ, "NO_COLOR") != "",
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func lookupEnv(environ []string, name string) string {
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k == name {
			return v
		}
	}
	return ""
}
