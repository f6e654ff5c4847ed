// Package api exposes gobundle's bundling pipeline as a stable, public Go
// API, for embedding into other tools as a library rather than shelling
// out to the gobundle binary.
//
// Example usage:
//
//	package main
//
//	import (
//	    "fmt"
//
//	    "github.com/gobundle/gobundle/pkg/api"
//	)
//
//	func main() {
//	    result := api.Build(api.BuildOptions{
//	        EntryPoints: []api.EntryPoint{{Import: "./src/index.js"}},
//	        Outdir:      "dist",
//	        Format:      api.FormatESM,
//	    })
//	    fmt.Printf("%d errors, %d warnings\n", len(result.Errors), len(result.Warnings))
//	    for _, f := range result.OutputFiles {
//	        fmt.Println(f.Path)
//	    }
//	}
package api

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/gobundle/gobundle/internal/bundle"
	"github.com/gobundle/gobundle/internal/finalizer"
	"github.com/gobundle/gobundle/internal/fswriter"
	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/logger"
	"github.com/gobundle/gobundle/internal/plugin"
)

// Plugin re-exports the internal plugin contract so embedders can
// register resolve/transform hooks without reaching into internal/.
type Plugin = plugin.Plugin

// Format selects the emitted module format.
type Format uint8

const (
	FormatESM Format = iota
	FormatCJS
)

// ExportMode controls how an entry chunk's exports are rendered.
type ExportMode uint8

const (
	ExportAuto ExportMode = iota
	ExportNamed
	ExportDefault
	ExportNone
)

// EntryPoint is one {name, import} pair. Name, if set, becomes the entry
// chunk's output stem; otherwise it is derived from Import.
type EntryPoint struct {
	Name   string
	Import string
}

// Message is one diagnostic produced during a build.
type Message struct {
	Text   string
	ID     string
	Module string
}

// OutputFile is one file a build produced.
type OutputFile struct {
	Path     string
	Contents []byte
}

// BuildOptions mirrors spec §6's build API.
type BuildOptions struct {
	EntryPoints []EntryPoint
	AbsWorkingDir string

	Bundle     bool // reserved; gobundle always bundles, whatever this is set to
	Treeshake  bool
	Splitting  bool // reserved: code splitting always runs when more than one chunk shares a module
	Format     Format
	ExportMode ExportMode

	External           []string
	ShimMissingExports bool

	EntryNames string
	ChunkNames string

	Write   bool
	Outdir  string
	Plugins []Plugin
}

// BuildResult is what Build returns.
type BuildResult struct {
	OutputFiles []OutputFile
	Errors      []Message
	Warnings    []Message
}

// Build runs an end-to-end build: resolve, link, tree-shake, split, and
// finalize. When options.Write is true the output is also persisted to
// options.Outdir (default "dist" inside AbsWorkingDir) and BuildResult.OutputFiles still
// reports every written path.
func Build(options BuildOptions) BuildResult {
	fs := afero.NewOsFs()

	input := make([]bundle.InputEntry, 0, len(options.EntryPoints))
	for _, e := range options.EntryPoints {
		input = append(input, bundle.InputEntry{Name: e.Name, Import: e.Import})
	}

	externalSet := make(map[string]bool, len(options.External))
	for _, e := range options.External {
		externalSet[e] = true
	}

	var warnings []logger.Msg
	cwd := options.AbsWorkingDir
	if cwd == "" {
		cwd = "."
	}

	result, err := bundle.Build(bundle.Options{
		FS:    fs,
		Input: input,
		Cwd:   cwd,

		Treeshake: options.Treeshake,
		IsExternal: func(specifier, importer string, isResolved bool) bool {
			return externalSet[specifier]
		},
		OnWarn: func(m logger.Msg) {
			warnings = append(warnings, m)
		},
		ShimMissingExports: options.ShimMissingExports,
		Plugins:            options.Plugins,

		Format:         toInternalFormat(options.Format),
		ExportMode:     toInternalExportMode(options.ExportMode),
		EntryFileNames: options.EntryNames,
		ChunkFileNames: options.ChunkNames,
	})
	if err != nil {
		return BuildResult{Errors: toMessages(err), Warnings: toAPIMessages(warnings)}
	}

	outFiles := make([]OutputFile, 0, len(result.Assets))
	if options.Write {
		outdir := options.Outdir
		if outdir == "" {
			outdir = filepath.Join(cwd, "dist")
		}
		paths, err := fswriter.Write(fs, outdir, result.Assets)
		if err != nil {
			return BuildResult{Errors: []Message{{Text: err.Error()}}, Warnings: toAPIMessages(warnings)}
		}
		for i, p := range paths {
			outFiles = append(outFiles, OutputFile{Path: p, Contents: []byte(result.Assets[i].Code)})
		}
	} else {
		for _, a := range result.Assets {
			outFiles = append(outFiles, OutputFile{Path: a.Filename, Contents: []byte(a.Code)})
		}
	}

	return BuildResult{OutputFiles: outFiles, Warnings: toAPIMessages(warnings)}
}

func toInternalFormat(f Format) finalizer.Format {
	if f == FormatCJS {
		return finalizer.FormatCJS
	}
	return finalizer.FormatESM
}

func toInternalExportMode(m ExportMode) graph.ExportMode {
	switch m {
	case ExportNamed:
		return graph.ExportNamed
	case ExportDefault:
		return graph.ExportDefault
	case ExportNone:
		return graph.ExportNone
	default:
		return graph.ExportAuto
	}
}

func toMessages(err error) []Message {
	if buildErr, ok := err.(*bundle.BuildError); ok {
		out := make([]Message, 0, len(buildErr.Errors))
		for _, e := range buildErr.Errors {
			out = append(out, Message{Text: e.Error()})
		}
		return out
	}
	return []Message{{Text: err.Error()}}
}

func toAPIMessages(msgs []logger.Msg) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{Text: m.Text, ID: string(m.ID), Module: m.Module})
	}
	return out
}
