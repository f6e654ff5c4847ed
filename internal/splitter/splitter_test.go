package splitter

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/linker"
	"github.com/gobundle/gobundle/internal/loader"
	"github.com/gobundle/gobundle/internal/resolver"
)

func memFS(files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		_ = afero.WriteFile(fs, path, []byte(content), 0o644)
	}
	return fs
}

func buildLinkedGraph(t *testing.T, files map[string]string, entries []string) *graph.Graph {
	t.Helper()
	fs := memFS(files)
	g := graph.New()
	res := resolver.NewDefault("/proj", nil)
	res.FS = fs
	errs := loader.Load(g, loader.Options{FS: fs, Resolver: res, Entries: entries})
	require.Empty(t, errs)
	require.NoError(t, linker.Link(g, linker.Options{}))
	return g
}

func chunkContaining(chunks []*graph.Chunk, path string) *graph.Chunk {
	for _, c := range chunks {
		for modID := range c.Modules {
			if modID.Path == path {
				return c
			}
		}
	}
	return nil
}

func TestSplitSingleEntryPullsWholeSubtreeIntoOneChunk(t *testing.T) {
	g := buildLinkedGraph(t, map[string]string{
		"/proj/entry.js": `import { a } from "./lib.js";
export const value = a;`,
		"/proj/lib.js": `export const a = 1;`,
	}, []string{"./entry.js"})

	chunks := Split(g, "/proj")
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Contains(ids.ModuleId{Path: "/proj/entry.js"}))
	assert.True(t, chunks[0].Contains(ids.ModuleId{Path: "/proj/lib.js"}))
	assert.True(t, chunks[0].IsUserDefinedEntry)
}

func TestSplitDynamicImportGetsItsOwnChunk(t *testing.T) {
	g := buildLinkedGraph(t, map[string]string{
		"/proj/entry.js": `const p = import("./lazy.js");
export const loader = p;`,
		"/proj/lazy.js": `export const heavy = 1;`,
	}, []string{"./entry.js"})

	chunks := Split(g, "/proj")
	require.Len(t, chunks, 2)

	entryChunk := chunkContaining(chunks, "/proj/entry.js")
	lazyChunk := chunkContaining(chunks, "/proj/lazy.js")
	require.NotNil(t, entryChunk)
	require.NotNil(t, lazyChunk)
	assert.NotSame(t, entryChunk, lazyChunk)
	assert.True(t, lazyChunk.IsDynamicEntry)
	assert.False(t, entryChunk.Contains(ids.ModuleId{Path: "/proj/lazy.js"}),
		"a dynamic entry is deduped out of every chunk but its own")
}

func TestSplitRecordsSplitPointForRewrite(t *testing.T) {
	g := buildLinkedGraph(t, map[string]string{
		"/proj/entry.js": `const p = import("./lazy.js");
export const loader = p;`,
		"/proj/lazy.js": `export const heavy = 1;`,
	}, []string{"./entry.js"})

	chunks := Split(g, "/proj")
	entryChunk := chunkContaining(chunks, "/proj/entry.js")
	lazyChunk := chunkContaining(chunks, "/proj/lazy.js")
	require.NotNil(t, entryChunk)
	require.NotNil(t, lazyChunk)

	target, ok := entryChunk.SplitPointModuleToChunk[ids.ModuleId{Path: "/proj/lazy.js"}]
	require.True(t, ok)
	assert.Equal(t, lazyChunk.ID, target)
}

func TestSplitExtractsCommonChunkForSharedDependency(t *testing.T) {
	g := buildLinkedGraph(t, map[string]string{
		"/proj/a.js": `import { shared } from "./common.js";
export const value = shared;`,
		"/proj/b.js": `import { shared } from "./common.js";
export const value = shared;`,
		"/proj/common.js": `export const shared = 1;`,
	}, []string{"./a.js", "./b.js"})

	chunks := Split(g, "/proj")
	require.Len(t, chunks, 3)

	commonChunk := chunkContaining(chunks, "/proj/common.js")
	require.NotNil(t, commonChunk)
	aChunk := chunkContaining(chunks, "/proj/a.js")
	bChunk := chunkContaining(chunks, "/proj/b.js")
	assert.False(t, aChunk.Contains(ids.ModuleId{Path: "/proj/common.js"}))
	assert.False(t, bChunk.Contains(ids.ModuleId{Path: "/proj/common.js"}))
}
