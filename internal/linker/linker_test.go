package linker

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
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

func loadGraph(t *testing.T, files map[string]string, entries []string) *graph.Graph {
	t.Helper()
	fs := memFS(files)
	g := graph.New()
	res := resolver.NewDefault("/proj", nil)
	res.FS = fs
	errs := loader.Load(g, loader.Options{FS: fs, Resolver: res, Entries: entries})
	require.Empty(t, errs)
	return g
}

func TestLinkAssignsPostOrderExecOrder(t *testing.T) {
	g := loadGraph(t, map[string]string{
		"/proj/entry.js": `import { a } from "./lib.js";
export const value = a;`,
		"/proj/lib.js": `export const a = 1;`,
	}, []string{"./entry.js"})

	require.NoError(t, Link(g, Options{}))

	lib, ok := g.Normal(ids.ModuleId{Path: "/proj/lib.js"})
	require.True(t, ok)
	entry, ok := g.Normal(ids.ModuleId{Path: "/proj/entry.js"})
	require.True(t, ok)

	assert.Less(t, lib.ExecOrder, entry.ExecOrder, "a static dependency runs before its importer")
}

func TestLinkInlinesReExportChain(t *testing.T) {
	g := loadGraph(t, map[string]string{
		"/proj/entry.js": `export { a } from "./middle.js";`,
		"/proj/middle.js": `export { a } from "./lib.js";`,
		"/proj/lib.js":   `export const a = 1;`,
	}, []string{"./entry.js"})

	require.NoError(t, Link(g, Options{}))

	entry, ok := g.Normal(ids.ModuleId{Path: "/proj/entry.js"})
	require.True(t, ok)
	lib, ok := g.Normal(ids.ModuleId{Path: "/proj/lib.js"})
	require.True(t, ok)

	es, ok := entry.LinkedExports["a"]
	require.True(t, ok)
	assert.Equal(t, lib.ID, es.Owner, "a re-export chain resolves straight through to the original owner")
}

func TestLinkExportAllMergesNamesAndDropsConflicts(t *testing.T) {
	g := loadGraph(t, map[string]string{
		"/proj/entry.js": `export * from "./a.js";
export * from "./b.js";`,
		"/proj/a.js": `export const x = 1;
export const shared = "from-a";`,
		"/proj/b.js": `export const y = 2;
export const shared = "from-b";`,
	}, []string{"./entry.js"})

	require.NoError(t, Link(g, Options{}))

	entry, ok := g.Normal(ids.ModuleId{Path: "/proj/entry.js"})
	require.True(t, ok)

	_, hasX := entry.LinkedExports["x"]
	_, hasY := entry.LinkedExports["y"]
	_, hasShared := entry.LinkedExports["shared"]
	assert.True(t, hasX)
	assert.True(t, hasY)
	assert.False(t, hasShared, "a name reachable via two conflicting export * sources is dropped, not arbitrarily picked")
}

func TestLinkMissingExportFailsByDefault(t *testing.T) {
	g := loadGraph(t, map[string]string{
		"/proj/entry.js": `import { missing } from "./lib.js";
export const value = missing;`,
		"/proj/lib.js": `export const present = 1;`,
	}, []string{"./entry.js"})

	err := Link(g, Options{})
	assert.Error(t, err)
}

func TestLinkShimsMissingExportWhenEnabled(t *testing.T) {
	g := loadGraph(t, map[string]string{
		"/proj/entry.js": `import { missing } from "./lib.js";
export const value = missing;`,
		"/proj/lib.js": `export const present = 1;`,
	}, []string{"./entry.js"})

	err := Link(g, Options{ShimMissingExports: true})
	require.NoError(t, err)

	lib, ok := g.Normal(ids.ModuleId{Path: "/proj/lib.js"})
	require.True(t, ok)
	_, ok = lib.LinkedExports["missing"]
	assert.True(t, ok)
}

func TestLinkExportAllAsNamespaceDoesNotLeakNamedExports(t *testing.T) {
	g := loadGraph(t, map[string]string{
		"/proj/entry.js": `export * as ns from "./a.js";`,
		"/proj/a.js":     `export const x = 1;`,
	}, []string{"./entry.js"})

	require.NoError(t, Link(g, Options{}))

	entry, ok := g.Normal(ids.ModuleId{Path: "/proj/entry.js"})
	require.True(t, ok)

	_, hasNs := entry.LinkedExports["ns"]
	_, hasX := entry.LinkedExports["x"]
	assert.True(t, hasNs, "export * as ns produces the single namespace export")
	assert.False(t, hasX, "export * as ns must not re-export the source's individual named members")
}

func TestLinkUnionsExternalImportAcrossReExport(t *testing.T) {
	g := loadGraph(t, map[string]string{
		"/proj/entry.js": `export { z } from "some-external-package";`,
	}, []string{"./entry.js"})

	require.NoError(t, Link(g, Options{}))

	entry, ok := g.Normal(ids.ModuleId{Path: "/proj/entry.js"})
	require.True(t, ok)
	es, ok := entry.LinkedExports["z"]
	require.True(t, ok)
	assert.NotEqual(t, ids.NilRef, es.LocalID)
}
