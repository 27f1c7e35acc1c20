package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/vk/hostconf/internal/ctxlog"
)

// CCToolchain answers probes by compiling and linking tiny C translation
// units with the host C compiler, and by running external commands
// directly.
type CCToolchain struct {
	compiler []string
	fs       afero.Fs
	scratch  string
	env      func(string) string
	seq      int
}

// NewCCToolchain prepares a toolchain around a compiler command line such
// as "cc" or "gcc -m32". Scratch sources live in a private temp directory
// on the OS filesystem until Close.
func NewCCToolchain(compiler string, env func(string) string) (*CCToolchain, error) {
	if compiler == "" {
		compiler = "cc"
	}
	argv, err := SplitCommand(compiler, env)
	if err != nil {
		return nil, fmt.Errorf("invalid compiler command: %w", err)
	}

	fs := afero.NewOsFs()
	dir, err := afero.TempDir(fs, "", "hostconf-probe-")
	if err != nil {
		return nil, fmt.Errorf("failed to create probe scratch directory: %w", err)
	}

	return &CCToolchain{
		compiler: argv,
		fs:       fs,
		scratch:  dir,
		env:      env,
	}, nil
}

// Compiler returns the compiler argument vector.
func (t *CCToolchain) Compiler() []string {
	return append([]string(nil), t.compiler...)
}

// Close removes the scratch directory.
func (t *CCToolchain) Close() error {
	return t.fs.RemoveAll(t.scratch)
}

// Check implements Toolchain.
func (t *CCToolchain) Check(ctx context.Context, spec Spec) (Outcome, error) {
	switch spec.Kind {
	case CompilerFlag:
		return t.compile(ctx, "int main(void) { return 0; }\n", false, "-Werror", spec.Query)
	case Header:
		src := fmt.Sprintf("#include <%s>\nint main(void) { return 0; }\n", spec.Query)
		return t.compile(ctx, src, false)
	case Symbol:
		return t.compile(ctx, symbolSource(spec.Query, spec.Header), true)
	case Library:
		return t.compile(ctx, librarySource(spec.Symbol), true, "-l"+spec.Query)
	case ExternalCommand:
		return t.command(ctx, spec.Query)
	default:
		return Outcome{}, fmt.Errorf("unsupported probe kind %s", spec.Kind)
	}
}

func symbolSource(symbol, header string) string {
	if header != "" {
		return fmt.Sprintf("#include <%s>\nint main(void) {\n  void *p = (void *)&%s;\n  return p == 0;\n}\n", header, symbol)
	}
	// Without a header, declare the symbol the way autoconf does so only the
	// linker decides.
	return fmt.Sprintf("char %s(void);\nint main(void) { return (int)%s(); }\n", symbol, symbol)
}

func librarySource(symbol string) string {
	if symbol == "" {
		return "int main(void) { return 0; }\n"
	}
	return fmt.Sprintf("char %s(void);\nint main(void) { return (int)%s(); }\n", symbol, symbol)
}

// compile writes src to a fresh file and runs the compiler on it. With link
// set the unit is linked into an executable, otherwise only compiled.
func (t *CCToolchain) compile(ctx context.Context, src string, link bool, extra ...string) (Outcome, error) {
	logger := ctxlog.FromContext(ctx)

	bin, err := exec.LookPath(t.compiler[0])
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: compiler %q", ErrCommandNotFound, t.compiler[0])
	}

	t.seq++
	base := filepath.Join(t.scratch, fmt.Sprintf("probe%03d", t.seq))
	srcPath := base + ".c"
	if err := afero.WriteFile(t.fs, srcPath, []byte(src), 0o600); err != nil {
		return Outcome{}, fmt.Errorf("failed to write probe source: %w", err)
	}

	args := append([]string{}, t.compiler[1:]...)
	args = append(args, extra...)
	if link {
		args = append(args, srcPath, "-o", base+".out")
	} else {
		args = append(args, "-c", srcPath, "-o", base+".o")
	}
	// Linker inputs such as -lfoo must follow the source file.
	args = reorderLibs(args)

	logger.Debug("Invoking compiler.", "compiler", bin, "args", args)
	cmd := newCommand(ctx, bin, args...)
	cmd.Dir = t.scratch
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		return Outcome{Supported: false, Detail: lastLine(stderr.String(), err)}, nil
	}
	return Outcome{Supported: true}, nil
}

// waitDelay bounds how long a cancelled command may hold its output pipes.
const waitDelay = 250 * time.Millisecond

// newCommand builds a command that stops, with everything it spawned, when
// ctx is done.
func newCommand(ctx context.Context, bin string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, bin, args...)
	setupProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	return cmd
}

// reorderLibs moves -l arguments to the end of the argument list.
func reorderLibs(args []string) []string {
	var rest, libs []string
	for _, a := range args {
		if strings.HasPrefix(a, "-l") && len(a) > 2 {
			libs = append(libs, a)
			continue
		}
		rest = append(rest, a)
	}
	return append(rest, libs...)
}

// command runs an external command line and reports whether it exited 0.
// The first line of its standard output becomes the detail.
func (t *CCToolchain) command(ctx context.Context, line string) (Outcome, error) {
	argv, err := SplitCommand(line, t.env)
	if err != nil {
		return Outcome{Supported: false, Detail: err.Error()}, nil
	}

	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrCommandNotFound, argv[0])
	}

	cmd := newCommand(ctx, bin, argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Outcome{Supported: false, Detail: lastLine(stderr.String(), err)}, nil
		}
		return Outcome{Supported: false, Detail: err.Error()}, nil
	}
	return Outcome{Supported: true, Detail: firstLine(stdout.String())}, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func lastLine(s string, fallback error) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback.Error()
	}
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
