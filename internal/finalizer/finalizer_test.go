package finalizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/linker"
	"github.com/gobundle/gobundle/internal/loader"
	"github.com/gobundle/gobundle/internal/resolver"
	"github.com/gobundle/gobundle/internal/splitter"
	"github.com/gobundle/gobundle/internal/treeshake"
)

func memFS(files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		_ = afero.WriteFile(fs, path, []byte(content), 0o644)
	}
	return fs
}

func buildChunks(t *testing.T, files map[string]string, entries []string) (*graph.Graph, []*graph.Chunk) {
	t.Helper()
	fs := memFS(files)
	g := graph.New()
	res := resolver.NewDefault("/proj", nil)
	res.FS = fs
	errs := loader.Load(g, loader.Options{FS: fs, Resolver: res, Entries: entries})
	require.Empty(t, errs)
	require.NoError(t, linker.Link(g, linker.Options{}))
	treeshake.Shake(g)
	chunks := splitter.Split(g, "/proj")
	return g, chunks
}

func TestFinalizeDeconflictsSharedNames(t *testing.T) {
	g, chunks := buildChunks(t, map[string]string{
		"/proj/entry.js": `import { value as a } from "./a.js";
import { value as b } from "./b.js";
export const total = a + b;`,
		"/proj/a.js": `export const value = 1;`,
		"/proj/b.js": `export const value = 2;`,
	}, []string{"./entry.js"})

	assets, err := Finalize(g, chunks, Options{Format: FormatESM})
	require.NoError(t, err)
	require.Len(t, assets, 1)

	code := assets[0].Code
	assert.Contains(t, code, "const value = 2;", "the first module processed in deconfliction order keeps its original name")
	assert.Contains(t, code, "const value$1 = 1;", "a colliding second top-level `value` is renamed rather than clobbering the first")
}

func TestFinalizeEntryFileNamesTemplate(t *testing.T) {
	g, chunks := buildChunks(t, map[string]string{
		"/proj/entry.js": `export const value = 1;`,
	}, []string{"./entry.js"})

	assets, err := Finalize(g, chunks, Options{Format: FormatESM, EntryFileNames: "out/[name].mjs"})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "out/entry.mjs", assets[0].Filename)
}

func TestFinalizeRendersExternalImportAndReExportAll(t *testing.T) {
	g, chunks := buildChunks(t, map[string]string{
		"/proj/entry.js": `import { z } from "some-external-package";
export * from "another-external-package";
export const value = z;`,
	}, []string{"./entry.js"})

	assets, err := Finalize(g, chunks, Options{Format: FormatESM})
	require.NoError(t, err)
	require.Len(t, assets, 1)

	code := assets[0].Code
	assert.Contains(t, code, `import { z } from "some-external-package";`)
	assert.Contains(t, code, `export * from "another-external-package";`)
}

func TestFinalizeRewritesDynamicImportToChunkFilename(t *testing.T) {
	g, chunks := buildChunks(t, map[string]string{
		"/proj/entry.js": `const p = import("./lazy.js");
export const loader = p;`,
		"/proj/lazy.js": `export const heavy = 1;`,
	}, []string{"./entry.js"})

	assets, err := Finalize(g, chunks, Options{Format: FormatESM})
	require.NoError(t, err)
	require.Len(t, assets, 2)

	var entryAsset, lazyAsset *Asset
	for i := range assets {
		if assets[i].IsEntry {
			entryAsset = &assets[i]
		} else {
			lazyAsset = &assets[i]
		}
	}
	require.NotNil(t, entryAsset)
	require.NotNil(t, lazyAsset)
	assert.Contains(t, entryAsset.Code, `import("./`+lazyAsset.Filename+`")`)
}

func TestFinalizeCJSExportsViaModuleExports(t *testing.T) {
	g, chunks := buildChunks(t, map[string]string{
		"/proj/entry.js": `export const value = 1;`,
	}, []string{"./entry.js"})

	assets, err := Finalize(g, chunks, Options{Format: FormatCJS, ExportMode: graph.ExportNamed})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Contains(t, assets[0].Code, "Object.defineProperty(module.exports, \"value\"")
}

// assetShape is the golden-comparable projection of an Asset: just the
// chunk membership and filename, not the rendered source text (which
// the Contains-based tests above already pin down).
type assetShape struct {
	Filename  string
	IsEntry   bool
	ModuleIDs []string
}

func shapesOf(assets []Asset) []assetShape {
	out := make([]assetShape, len(assets))
	for i, a := range assets {
		out[i] = assetShape{Filename: a.Filename, IsEntry: a.IsEntry, ModuleIDs: a.ModuleIDs}
	}
	return out
}

func TestFinalizeChunkGraphShapeForSharedDependency(t *testing.T) {
	g, chunks := buildChunks(t, map[string]string{
		"/proj/a.js": `import { shared } from "./common.js";
export const value = shared;`,
		"/proj/b.js": `import { shared } from "./common.js";
export const value = shared;`,
		"/proj/common.js": `export const shared = 1;`,
	}, []string{"./a.js", "./b.js"})

	assets, err := Finalize(g, chunks, Options{Format: FormatESM})
	require.NoError(t, err)

	want := []assetShape{
		{Filename: "a.js", IsEntry: true, ModuleIDs: []string{"/proj/a.js"}},
		{Filename: "b.js", IsEntry: true, ModuleIDs: []string{"/proj/b.js"}},
		{Filename: "chunks/common_common-" + commonChunkHash(chunks) + ".js", IsEntry: false, ModuleIDs: []string{"/proj/common.js"}},
	}
	got := shapesOf(assets)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("chunk graph shape mismatch (-want +got):\n%s", diff)
	}
}

// commonChunkHash recovers the already-assigned filename hash for the
// common chunk so the golden comparison doesn't have to reimplement the
// hashing scheme. It returns "" when no common chunk exists, which then
// fails the golden comparison.
func commonChunkHash(chunks []*graph.Chunk) string {
	for _, c := range chunks {
		if !c.IsUserDefinedEntry {
			return c.Filename[len("chunks/common_common-") : len(c.Filename)-len(".js")]
		}
	}
	return ""
}

func TestFinalizeSortsAssetsByChunkID(t *testing.T) {
	g, chunks := buildChunks(t, map[string]string{
		"/proj/b_entry.js": `export const value = 1;`,
		"/proj/a_entry.js": `export const value = 2;`,
	}, []string{"./b_entry.js", "./a_entry.js"})

	assets, err := Finalize(g, chunks, Options{Format: FormatESM})
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "a_entry.js", assets[0].Filename)
	assert.Equal(t, "b_entry.js", assets[1].Filename)
}
