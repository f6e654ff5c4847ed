// Package finalizer implements spec §4.5: deconfliction, cross-chunk
// import/export synthesis, and concatenation of each chunk's surviving
// statements into final output text.
package finalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/sourcegraph/conc"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/jsast"
)

// Format selects the emitted module format for entry chunks.
type Format uint8

const (
	FormatESM Format = iota
	FormatCJS
)

// Options configures Finalize. EntryFileNames/ChunkFileNames are
// filename templates supporting "[name]" and "[hash]" placeholders, per
// spec §6's output.entry_file_names/chunk_file_names.
type Options struct {
	Format          Format
	ExportMode      graph.ExportMode
	EntryFileNames  string
	ChunkFileNames  string
}

// Asset is one finalized output file.
type Asset struct {
	Filename string
	Code     string
	IsEntry  bool
	ModuleIDs []string
}

const defaultEntryFileNames = "[name].js"
const defaultChunkFileNames = "chunks/[name]-[hash].js"

// Finalize assigns filenames, deconflicts every chunk, synthesizes
// cross-chunk wiring, and concatenates each chunk's surviving statements
// into final source text.
func Finalize(g *graph.Graph, chunks []*graph.Chunk, opts Options) ([]Asset, error) {
	if opts.EntryFileNames == "" {
		opts.EntryFileNames = defaultEntryFileNames
	}
	if opts.ChunkFileNames == "" {
		opts.ChunkFileNames = defaultChunkFileNames
	}

	names := make(map[*graph.Chunk]map[ids.Ref]string, len(chunks))
	bodies := make(map[*graph.Chunk]string, len(chunks))

	// Deconfliction is purely per-chunk (it only reads g and its own
	// chunk's modules), so every chunk's name table is computed
	// concurrently via a fork-join pool, the results collected into a
	// plain slice to avoid concurrent map writes and merged in afterward.
	nameResults := make([]map[ids.Ref]string, len(chunks))
	var deconflictWg conc.WaitGroup
	for i, c := range chunks {
		i, c := i, c
		deconflictWg.Go(func() { nameResults[i] = deconflictChunk(g, c) })
	}
	deconflictWg.Wait()
	for i, c := range chunks {
		names[c] = nameResults[i]
	}

	assignFilenames(g, chunks, opts)

	buildCrossChunkLinks(g, chunks, names, opts)

	// Concatenation happens once every chunk's cross-chunk headers and
	// trailers are finalized above; each chunk's own body text is then
	// independent, so it too runs as a fork-join fan-out.
	bodyResults := make([]string, len(chunks))
	var concatWg conc.WaitGroup
	for i, c := range chunks {
		i, c := i, c
		concatWg.Go(func() { bodyResults[i] = concatenateChunk(g, c, names[c], chunks) })
	}
	concatWg.Wait()
	for i, c := range chunks {
		bodies[c] = bodyResults[i]
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ID < chunks[j].ID })

	assets := make([]Asset, 0, len(chunks))
	for _, c := range chunks {
		var modIDs []string
		for id := range c.Modules {
			modIDs = append(modIDs, id.Path)
		}
		sort.Strings(modIDs)
		assets = append(assets, Asset{
			Filename:  c.Filename,
			Code:      bodies[c],
			IsEntry:   c.IsUserDefinedEntry,
			ModuleIDs: modIDs,
		})
	}
	return assets, nil
}

// assignFilenames renders each chunk's Filename from the entry_file_names
// or chunk_file_names template. [hash] is a content-independent stand-in
// hash of the chunk's module set — good enough to make two chunks with
// different membership get different names, which is all callers that
// diff a build across a source change actually need.
func assignFilenames(g *graph.Graph, chunks []*graph.Chunk, opts Options) {
	for _, c := range chunks {
		template := opts.ChunkFileNames
		if c.IsUserDefinedEntry {
			template = opts.EntryFileNames
		}
		c.Filename = renderFileNameTemplate(template, c)
	}
}

func renderFileNameTemplate(template string, c *graph.Chunk) string {
	name := c.ID
	out := strings.ReplaceAll(template, "[name]", name)
	if strings.Contains(out, "[hash]") {
		out = strings.ReplaceAll(out, "[hash]", chunkMembershipHash(c))
	}
	return out
}

func chunkMembershipHash(c *graph.Chunk) string {
	var modIDs []string
	for id := range c.Modules {
		modIDs = append(modIDs, id.String())
	}
	sort.Strings(modIDs)
	h := sha256.Sum256([]byte(strings.Join(modIDs, "\x00")))
	return hex.EncodeToString(h[:])[:8]
}

// concatenateChunk renders c's header items, its live modules' surviving
// statements (in ascending exec order, scope-hoisted — import/export
// statements stripped, since union-find already unified every reference),
// and its trailer items.
func concatenateChunk(g *graph.Graph, c *graph.Chunk, names map[ids.Ref]string, chunks []*graph.Chunk) string {
	splitTargets := chunkFilenamesByModule(chunks)

	var b strings.Builder
	for _, item := range c.BeforeItems {
		b.WriteString(item)
		b.WriteString("\n")
	}

	modules := chunkModulesAscExecOrder(g, c)
	for _, m := range modules {
		live := liveStmts(m)
		if len(live) == 0 {
			continue
		}
		nameOf := func(sym jsast.LocalSymID) string {
			ref, ok := m.SymbolRefs[sym]
			if !ok {
				return ""
			}
			root := g.UnionFind.Find(ref)
			return names[root]
		}
		code := jsast.Print(m.AST, live, jsast.PrintOptions{
			NameOf:             nameOf,
			SkipImportsExports: true,
			RewriteImportCall: func(specifier string) (string, bool) {
				return rewriteDynamicImport(m, specifier, splitTargets)
			},
		})
		b.WriteString(code)
	}

	for _, item := range c.AfterItems {
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}

func chunkModulesAscExecOrder(g *graph.Graph, c *graph.Chunk) []*graph.NormalModule {
	out := chunkModulesReverseExecOrder(g, c)
	sort.Slice(out, func(i, j int) bool { return out[i].ExecOrder < out[j].ExecOrder })
	return out
}

func liveStmts(m *graph.NormalModule) []*jsast.Stmt {
	out := make([]*jsast.Stmt, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.Included {
			out = append(out, p.Stmt)
		}
	}
	return out
}

// chunkFilenamesByModule maps every dynamic-import-target module id to the
// filename of the chunk it ended up in.
func chunkFilenamesByModule(chunks []*graph.Chunk) map[ids.ModuleId]string {
	out := map[ids.ModuleId]string{}
	for _, c := range chunks {
		for modID := range c.Modules {
			out[modID] = c.Filename
		}
	}
	return out
}

func rewriteDynamicImport(m *graph.NormalModule, specifier string, filenames map[ids.ModuleId]string) (string, bool) {
	dynID, ok := m.DynImportSpecifiers[specifier]
	if !ok {
		return "", false
	}
	fn, ok := filenames[dynID]
	if !ok {
		return "", false
	}
	return "./" + fn, true
}
