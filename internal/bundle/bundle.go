// Package bundle implements spec §6's build API: the single entry point
// that wires Resolver -> Loader -> Linker -> Tree-shaker -> Code
// Splitter -> Chunk Finalizer into one call.
package bundle

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/gobundle/gobundle/internal/finalizer"
	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/linker"
	"github.com/gobundle/gobundle/internal/loader"
	"github.com/gobundle/gobundle/internal/logger"
	"github.com/gobundle/gobundle/internal/plugin"
	"github.com/gobundle/gobundle/internal/resolver"
	"github.com/gobundle/gobundle/internal/splitter"
	"github.com/gobundle/gobundle/internal/treeshake"
)

// InputEntry is one {name, import} pair of spec §6's `input` list. Name
// becomes the entry chunk's stem; Import is the specifier to resolve,
// relative to Cwd, and may be a glob.
type InputEntry struct {
	Name   string
	Import string
}

// IsExternal is the `is_external(specifier, importer, is_resolved)`
// predicate of spec §6. This implementation calls it only in its
// pre-resolution form (is_resolved always false): whether a specifier
// ends up external is decided before path resolution is attempted, same
// as the default resolver's own relative-vs-bare-specifier check.
type IsExternal func(specifier, importer string, isResolved bool) bool

// Options is spec §6's build API input.
type Options struct {
	FS    afero.Fs
	Input []InputEntry
	Cwd   string

	Treeshake          bool
	IsExternal         IsExternal
	OnWarn             func(logger.Msg)
	ShimMissingExports bool
	Plugins            []plugin.Plugin

	Format         finalizer.Format
	ExportMode     graph.ExportMode
	EntryFileNames string
	ChunkFileNames string
}

// Result is spec §6's build output: an ordered list of assets.
type Result struct {
	Assets   []finalizer.Asset
	Warnings []logger.Msg
}

// BuildError aggregates every fatal diagnostic collected before the
// build gave up, per spec §7's "collect as many as possible before
// returning".
type BuildError struct {
	Errors []error
}

func (e *BuildError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("build failed with %d error(s):\n%s", len(e.Errors), strings.Join(parts, "\n"))
}

// Build runs the full pipeline and returns the finalized assets.
func Build(opts Options) (*Result, error) {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	cwd := opts.Cwd
	if cwd == "" {
		cwd = "."
	}

	specifiers := make([]string, 0, len(opts.Input))
	nameByPath := map[string]string{}
	var globErrs []error
	for _, in := range opts.Input {
		expanded, empty, err := resolver.ExpandGlobEntries(opts.FS, cwd, []string{in.Import})
		if err != nil {
			globErrs = append(globErrs, err)
			continue
		}
		for _, e := range empty {
			if opts.OnWarn != nil {
				opts.OnWarn(logger.Msg{Kind: logger.KindWarning, ID: logger.UnresolvedEntry, Text: fmt.Sprintf("glob entry %q matched no files", e)})
			}
		}
		specifiers = append(specifiers, expanded...)
		if len(expanded) == 1 && in.Name != "" {
			nameByPath[expanded[0]] = in.Name
		}
	}
	if len(globErrs) > 0 {
		return nil, &BuildError{Errors: globErrs}
	}

	g := graph.New()

	var isExternalAdapter resolver.IsExternal
	if opts.IsExternal != nil {
		isExternalAdapter = func(specifier, importer string) bool {
			return opts.IsExternal(specifier, importer, false)
		}
	}
	res := resolver.NewDefault(cwd, isExternalAdapter)
	res.FS = opts.FS

	host := &plugin.Host{Plugins: opts.Plugins}

	if errs := loader.Load(g, loader.Options{FS: opts.FS, Resolver: res, Plugins: host, Entries: specifiers}); len(errs) > 0 {
		return nil, &BuildError{Errors: errs}
	}

	if err := linker.Link(g, linker.Options{ShimMissingExports: opts.ShimMissingExports}); err != nil {
		return nil, &BuildError{Errors: []error{err}}
	}

	if opts.Treeshake {
		treeshake.Shake(g)
	} else {
		for _, m := range g.AllNormal() {
			for _, p := range m.Parts {
				p.Included = true
			}
		}
	}

	chunks := splitter.Split(g, cwd)
	applyEntryNames(g, chunks, nameByPath)

	assets, err := finalizer.Finalize(g, chunks, finalizer.Options{
		Format:         opts.Format,
		ExportMode:     opts.ExportMode,
		EntryFileNames: opts.EntryFileNames,
		ChunkFileNames: opts.ChunkFileNames,
	})
	if err != nil {
		return nil, &BuildError{Errors: []error{err}}
	}

	warnings := g.Log.Warnings()
	if opts.OnWarn != nil {
		for _, w := range warnings {
			opts.OnWarn(w)
		}
	}

	return &Result{Assets: assets, Warnings: warnings}, nil
}

// applyEntryNames overrides each user-defined entry chunk's id with the
// input.Name the caller requested, so entry_file_names' "[name]"
// placeholder resolves to that stem rather than a path-derived one.
func applyEntryNames(g *graph.Graph, chunks []*graph.Chunk, nameByPath map[string]string) {
	for _, c := range chunks {
		if !c.IsUserDefinedEntry {
			continue
		}
		m, ok := g.Normal(c.Entry)
		if !ok {
			continue
		}
		if name, ok := nameByPath[relSpecifier(m.ID.Path)]; ok {
			c.ID = name
		}
	}
}

// relSpecifier is a best-effort inverse of the resolver's path-joining so
// an absolute resolved path can be matched back against the raw,
// possibly-relative specifier recorded in nameByPath.
func relSpecifier(absPath string) string {
	return "./" + filepath.Base(absPath)
}
