package bundle

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobundle/gobundle/internal/finalizer"
)

func memFS(files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		_ = afero.WriteFile(fs, path, []byte(content), 0o644)
	}
	return fs
}

func findAsset(t *testing.T, assets []finalizer.Asset, isEntry bool) finalizer.Asset {
	t.Helper()
	for _, a := range assets {
		if a.IsEntry == isEntry {
			return a
		}
	}
	t.Fatalf("no asset with IsEntry=%v among %d assets", isEntry, len(assets))
	return finalizer.Asset{}
}

func TestBuildSimpleESMImportExport(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/entry.js": `import { greet } from "./lib.js";
export const message = greet("world");`,
		"/proj/lib.js": `export function greet(name) {
  return name;
}`,
	})

	res, err := Build(Options{
		FS:         fs,
		Cwd:        "/proj",
		Input:      []InputEntry{{Name: "main", Import: "./entry.js"}},
		Treeshake:  true,
		Format:     finalizer.FormatESM,
	})
	require.NoError(t, err)
	require.Len(t, res.Assets, 1)

	asset := res.Assets[0]
	assert.True(t, asset.IsEntry)
	assert.Contains(t, asset.Code, "function greet")
	assert.Contains(t, asset.Code, "greet(")
	assert.Contains(t, asset.Code, "message")
}

func TestBuildTreeShakingDropsUnreferencedLocal(t *testing.T) {
	files := map[string]string{
		"/proj/entry.js": `import { greet } from "./lib.js";
export const message = greet("world");`,
		"/proj/lib.js": `export function greet(name) {
  return name;
}
const unused = 42;
function wasted() {
  return 1;
}`,
	}

	shaken, err := Build(Options{
		FS:        memFS(files),
		Cwd:       "/proj",
		Input:     []InputEntry{{Name: "main", Import: "./entry.js"}},
		Treeshake: true,
		Format:    finalizer.FormatESM,
	})
	require.NoError(t, err)
	require.Len(t, shaken.Assets, 1)
	assert.NotContains(t, shaken.Assets[0].Code, "42")
	assert.NotContains(t, shaken.Assets[0].Code, "wasted")

	kept, err := Build(Options{
		FS:        memFS(files),
		Cwd:       "/proj",
		Input:     []InputEntry{{Name: "main", Import: "./entry.js"}},
		Treeshake: false,
		Format:    finalizer.FormatESM,
	})
	require.NoError(t, err)
	require.Len(t, kept.Assets, 1)
	assert.Contains(t, kept.Assets[0].Code, "42")
	assert.Contains(t, kept.Assets[0].Code, "wasted")
}

func TestBuildTreeShakingDropsDeadNamedExport(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/entry.js": `import { a } from "./lib.js";
export const value = a;`,
		"/proj/lib.js": `export const a = 1;
export const dead = 2;`,
	})

	res, err := Build(Options{
		FS:        fs,
		Cwd:       "/proj",
		Input:     []InputEntry{{Name: "main", Import: "./entry.js"}},
		Treeshake: true,
		Format:    finalizer.FormatESM,
	})
	require.NoError(t, err)
	require.Len(t, res.Assets, 1)
	assert.NotContains(t, res.Assets[0].Code, "dead", "an unimported named export of a static dependency is tree-shaken out")
}

func TestBuildExternalImportSurvivesFinalization(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/entry.js": `import { z } from "some-external-package";
export const value = z;`,
	})

	res, err := Build(Options{
		FS:        fs,
		Cwd:       "/proj",
		Input:     []InputEntry{{Name: "main", Import: "./entry.js"}},
		Treeshake: true,
		Format:    finalizer.FormatESM,
	})
	require.NoError(t, err)
	require.Len(t, res.Assets, 1)

	code := res.Assets[0].Code
	assert.Contains(t, code, `from "some-external-package"`)
	assert.Contains(t, code, "z")
}

func TestBuildCodeSplittingDynamicImport(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/entry.js": `const mod = import("./lazy.js");
export const loader = mod;`,
		"/proj/lazy.js": `export const heavy = 9001;`,
	})

	res, err := Build(Options{
		FS:        fs,
		Cwd:       "/proj",
		Input:     []InputEntry{{Name: "main", Import: "./entry.js"}},
		Treeshake: true,
		Format:    finalizer.FormatESM,
	})
	require.NoError(t, err)
	require.Len(t, res.Assets, 2)

	entry := findAsset(t, res.Assets, true)
	lazy := findAsset(t, res.Assets, false)

	assert.Contains(t, entry.Code, `import(`)
	assert.Contains(t, entry.Code, lazy.Filename)
	assert.Contains(t, lazy.Code, "9001")
}

func TestBuildAccumulatesLoadErrors(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/entry.js": `import { x } from "./missing.js";
export const value = x;`,
	})

	_, err := Build(Options{
		FS:    fs,
		Cwd:   "/proj",
		Input: []InputEntry{{Name: "main", Import: "./entry.js"}},
	})
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.NotEmpty(t, buildErr.Errors)
}

func TestBuildEntryNameOverridesChunkID(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/entry.js": `export const value = 1;`,
	})

	res, err := Build(Options{
		FS:             fs,
		Cwd:            "/proj",
		Input:          []InputEntry{{Name: "bundle-main", Import: "./entry.js"}},
		Treeshake:      true,
		Format:         finalizer.FormatESM,
		EntryFileNames: "[name].js",
	})
	require.NoError(t, err)
	require.Len(t, res.Assets, 1)
	assert.Equal(t, "bundle-main.js", res.Assets[0].Filename)
}
