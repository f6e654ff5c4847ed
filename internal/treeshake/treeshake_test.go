package treeshake

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

func includedCount(m *graph.NormalModule) int {
	n := 0
	for _, p := range m.Parts {
		if p.Included {
			n++
		}
	}
	return n
}

func TestShakeDropsUnreferencedNonExportedLocal(t *testing.T) {
	g := buildLinkedGraph(t, map[string]string{
		"/proj/entry.js": `import { greet } from "./lib.js";
export const message = greet("world");`,
		"/proj/lib.js": `export function greet(name) {
  return name;
}
const unused = 42;
function wasted() {
  return 1;
}`,
	}, []string{"./entry.js"})

	Shake(g)

	lib, ok := g.Normal(ids.ModuleId{Path: "/proj/lib.js"})
	require.True(t, ok)
	assert.Equal(t, 1, includedCount(lib), "only the exported greet() declaration should survive")
}

func TestShakeDropsUnreferencedNamedExportOfAStaticDependency(t *testing.T) {
	g := buildLinkedGraph(t, map[string]string{
		"/proj/entry.js": `import { a } from "./lib.js";
export const value = a;`,
		"/proj/lib.js": `export const a = 1;
export const dead = 2;`,
	}, []string{"./entry.js"})

	Shake(g)

	lib, ok := g.Normal(ids.ModuleId{Path: "/proj/lib.js"})
	require.True(t, ok)
	assert.Equal(t, 1, includedCount(lib), "only the referenced export of a statically-reached module survives")

	dead, ok := lib.LinkedExports["dead"]
	require.True(t, ok)
	for _, p := range lib.Parts {
		for _, ref := range p.Declared {
			if ref == dead.LocalID {
				assert.False(t, p.Included, "an unreferenced named export is not defined just because its module is reachable")
			}
		}
	}
}

func TestShakeAlwaysIncludesSideEffectStatements(t *testing.T) {
	g := buildLinkedGraph(t, map[string]string{
		"/proj/entry.js": `import "./lib.js";
export const value = 1;`,
		"/proj/lib.js": `console.log("side effect");`,
	}, []string{"./entry.js"})

	Shake(g)

	lib, ok := g.Normal(ids.ModuleId{Path: "/proj/lib.js"})
	require.True(t, ok)
	assert.Equal(t, 1, includedCount(lib))
}

func TestShakeMarksDynamicEntryIncludedEvenWithoutStaticReference(t *testing.T) {
	g := buildLinkedGraph(t, map[string]string{
		"/proj/entry.js": `const p = import("./lazy.js");
export const loader = p;`,
		"/proj/lazy.js": `export const heavy = 1;`,
	}, []string{"./entry.js"})

	Shake(g)

	lazy, ok := g.Normal(ids.ModuleId{Path: "/proj/lazy.js"})
	require.True(t, ok)
	assert.Equal(t, 1, includedCount(lazy))
}
