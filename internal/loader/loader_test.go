package loader

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/resolver"
)

func memFS(files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		_ = afero.WriteFile(fs, path, []byte(content), 0o644)
	}
	return fs
}

func TestLoadBuildsGraphFromEntries(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/a.js": `import { value } from "./b.js";
export const result = value;`,
		"/proj/b.js": `export const value = 1;`,
	})
	g := graph.New()
	res := resolver.NewDefault("/proj", nil)
	res.FS = fs

	errs := Load(g, Options{FS: fs, Resolver: res, Entries: []string{"./a.js"}})
	require.Empty(t, errs)
	require.Equal(t, 2, g.Len())

	a, ok := g.Normal(ids.ModuleId{Path: "/proj/a.js"})
	require.True(t, ok)
	assert.True(t, a.IsUserDefinedEntry)
	require.Len(t, a.Dependencies, 1)
	assert.Equal(t, "/proj/b.js", a.Dependencies[0].Path)

	b, ok := g.Normal(ids.ModuleId{Path: "/proj/b.js"})
	require.True(t, ok)
	assert.False(t, b.IsUserDefinedEntry)
}

func TestLoadMarksDynamicEntries(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/a.js": `const p = import("./b.js");`,
		"/proj/b.js": `export const value = 1;`,
	})
	g := graph.New()
	res := resolver.NewDefault("/proj", nil)
	res.FS = fs

	errs := Load(g, Options{FS: fs, Resolver: res, Entries: []string{"./a.js"}})
	require.Empty(t, errs)

	b, ok := g.Normal(ids.ModuleId{Path: "/proj/b.js"})
	require.True(t, ok)
	assert.True(t, b.IsDynamicEntry)
}

func TestLoadAccumulatesErrorsInsteadOfStoppingEarly(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/good.js": `export const value = 1;`,
	})
	g := graph.New()
	res := resolver.NewDefault("/proj", nil)
	res.FS = fs

	errs := Load(g, Options{FS: fs, Resolver: res, Entries: []string{"./missing.js", "./good.js"}})
	require.Len(t, errs, 1)

	_, ok := g.Normal(ids.ModuleId{Path: "/proj/good.js"})
	assert.True(t, ok, "a failing entry must not prevent a sibling entry from loading")
}

func TestLoadTreatsBareSpecifierAsExternal(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/a.js": `import { z } from "some-package";`,
	})
	g := graph.New()
	res := resolver.NewDefault("/proj", nil)
	res.FS = fs

	errs := Load(g, Options{FS: fs, Resolver: res, Entries: []string{"./a.js"}})
	require.Empty(t, errs)

	_, ok := g.External(ids.ModuleId{Path: "some-package", IsExternal: true})
	assert.True(t, ok)
}
