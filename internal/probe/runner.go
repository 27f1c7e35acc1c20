package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/hostconf/internal/conferr"
	"github.com/vk/hostconf/internal/ctxlog"
)

// DefaultTimeout bounds a single probe invocation.
const DefaultTimeout = 30 * time.Second

// Runner executes probes against a Toolchain and caches every outcome by
// Key for the lifetime of the Runner, which is one configuration pass.
type Runner struct {
	toolchain Toolchain
	timeout   time.Duration

	cache    map[Key]Outcome
	executed []Result
}

// NewRunner creates a Runner. A non-positive timeout selects DefaultTimeout.
func NewRunner(tc Toolchain, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		toolchain: tc,
		timeout:   timeout,
		cache:     make(map[Key]Outcome),
	}
}

// Run returns the outcome of the probe, invoking the toolchain only the first
// time a Key is seen. The only error is a conferr.ErrExternalProbeUnavailable
// for an executable that is unconditionally required and cannot be found.
func (r *Runner) Run(ctx context.Context, spec Spec) (Outcome, error) {
	logger := ctxlog.FromContext(ctx).With("probe", spec.Name, "kind", spec.Kind.String(), "query", spec.Query)

	key := spec.Key()
	if out, ok := r.cache[key]; ok {
		logger.Debug("Probe outcome served from cache.", "supported", out.Supported)
		return out, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	out, err := r.toolchain.Check(probeCtx, spec)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrCommandNotFound):
		if spec.Required || spec.Kind != ExternalCommand {
			// A compile check without a compiler, or a required tool, has no fallback.
			return Outcome{}, conferr.New(conferr.ErrExternalProbeUnavailable, spec.Name, "%v", err)
		}
		out = Outcome{Supported: false, Detail: err.Error()}
	case err != nil && errors.Is(probeCtx.Err(), context.DeadlineExceeded):
		out = Outcome{Supported: false, Detail: fmt.Sprintf("timed out after %s", r.timeout)}
	case err != nil:
		out = Outcome{Supported: false, Detail: err.Error()}
	}

	logger.Debug("Probe executed.", "supported", out.Supported, "detail", out.Detail, "elapsed", elapsed)
	r.cache[key] = out
	r.executed = append(r.executed, Result{Spec: spec, Outcome: out})
	return out, nil
}

// Executed returns every probe that reached the toolchain, in execution order.
func (r *Runner) Executed() []Result {
	out := make([]Result, len(r.executed))
	copy(out, r.executed)
	return out
}
