// Package fswriter implements spec §6's "write" output variant on top of
// github.com/spf13/afero, so it can be exercised against an in-memory
// filesystem in tests as well as the real OS filesystem from the CLI.
package fswriter

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/gobundle/gobundle/internal/finalizer"
)

// Write writes every asset to outdir on fsys, creating parent
// directories as needed. It returns the list of absolute paths written,
// in the same order as assets.
func Write(fsys afero.Fs, outdir string, assets []finalizer.Asset) ([]string, error) {
	paths := make([]string, 0, len(assets))
	for _, a := range assets {
		full := filepath.Join(outdir, a.Filename)
		if err := fsys.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, err
		}
		if err := afero.WriteFile(fsys, full, []byte(a.Code), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, full)
	}
	return paths, nil
}
