package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/vk/hostconf/internal/ctxlog"
)

// Writer places artifacts under a root directory of an afero.Fs.
type Writer struct {
	fs   afero.Fs
	root string
}

// NewWriter creates a Writer rooted at root.
func NewWriter(fs afero.Fs, root string) *Writer {
	return &Writer{fs: fs, root: root}
}

type staged struct {
	tmp, final string
}

// WriteAll writes every artifact or none. Each one is first staged in a
// temporary file next to its destination; only when all are staged are they
// renamed into place. Artifacts whose content is already on disk are left
// untouched so their modification time does not trigger rebuilds. It
// returns the paths actually written.
func (w *Writer) WriteAll(ctx context.Context, artifacts []Artifact) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	var pending []staged
	cleanup := func() {
		for _, s := range pending {
			_ = w.fs.Remove(s.tmp)
		}
	}

	for _, a := range artifacts {
		final := filepath.Join(w.root, filepath.FromSlash(a.Path))

		if existing, err := afero.ReadFile(w.fs, final); err == nil && bytes.Equal(existing, []byte(a.Content)) {
			logger.Debug("Artifact unchanged.", "path", final)
			continue
		}

		if err := w.fs.MkdirAll(filepath.Dir(final), 0o755); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to create directory for %s: %w", a.Path, err)
		}
		tmp, err := afero.TempFile(w.fs, filepath.Dir(final), "."+filepath.Base(final)+".tmp-")
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to stage %s: %w", a.Path, err)
		}
		pending = append(pending, staged{tmp: tmp.Name(), final: final})

		_, werr := tmp.WriteString(a.Content)
		cerr := tmp.Close()
		if werr != nil || cerr != nil {
			cleanup()
			if werr == nil {
				werr = cerr
			}
			return nil, fmt.Errorf("failed to stage %s: %w", a.Path, werr)
		}
		if err := w.fs.Chmod(tmp.Name(), 0o644); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to stage %s: %w", a.Path, err)
		}
	}

	written := make([]string, 0, len(pending))
	for i, s := range pending {
		if err := w.fs.Rename(s.tmp, s.final); err != nil {
			pending = pending[i:]
			cleanup()
			return written, fmt.Errorf("failed to install %s: %w", s.final, err)
		}
		logger.Debug("Artifact written.", "path", s.final)
		written = append(written, s.final)
	}
	return written, nil
}
