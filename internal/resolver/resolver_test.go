package resolver

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFS(files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		_ = afero.WriteFile(fs, path, []byte(content), 0o644)
	}
	return fs
}

func TestDefaultResolveRelative(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/src/index.js": "",
		"/proj/src/util.js":  "",
	})
	d := &Default{FS: fs, Cwd: "/proj"}

	id, err := d.Resolve("./util.js", "/proj/src/index.js")
	require.NoError(t, err)
	assert.Equal(t, "/proj/src/util.js", id.Path)
	assert.False(t, id.IsExternal)
}

func TestDefaultResolveExtensionProbing(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/src/index.js": "",
		"/proj/src/util.ts":  "",
	})
	d := &Default{FS: fs, Cwd: "/proj"}

	id, err := d.Resolve("./util", "/proj/src/index.js")
	require.NoError(t, err)
	assert.Equal(t, "/proj/src/util.ts", id.Path)
}

func TestDefaultResolveIndexFallback(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/src/index.js":   "",
		"/proj/src/lib/index.ts": "",
	})
	d := &Default{FS: fs, Cwd: "/proj"}

	id, err := d.Resolve("./lib", "/proj/src/index.js")
	require.NoError(t, err)
	assert.Equal(t, "/proj/src/lib/index.ts", id.Path)
}

func TestDefaultResolveBareSpecifierIsExternal(t *testing.T) {
	fs := memFS(map[string]string{"/proj/src/index.js": ""})
	d := &Default{FS: fs, Cwd: "/proj"}

	id, err := d.Resolve("lodash", "/proj/src/index.js")
	require.NoError(t, err)
	assert.True(t, id.IsExternal)
	assert.Equal(t, "lodash", id.Path)
}

func TestDefaultResolveIsExternalPredicate(t *testing.T) {
	fs := memFS(map[string]string{
		"/proj/src/index.js":  "",
		"/proj/src/secret.js": "",
	})
	d := &Default{FS: fs, Cwd: "/proj", IsExternal: func(specifier, importer string) bool {
		return specifier == "./secret.js"
	}}

	id, err := d.Resolve("./secret.js", "/proj/src/index.js")
	require.NoError(t, err)
	assert.True(t, id.IsExternal)
}

func TestDefaultResolveMissingFile(t *testing.T) {
	fs := memFS(map[string]string{"/proj/src/index.js": ""})
	d := &Default{FS: fs, Cwd: "/proj"}

	_, err := d.Resolve("./nope.js", "/proj/src/index.js")
	assert.Error(t, err)
}

func TestExpandGlobEntries(t *testing.T) {
	fs := memFS(map[string]string{
		"pages/a.ts":      "",
		"pages/b.ts":      "",
		"pages/skip.spec.ts": "",
		"main.ts":         "",
	})

	expanded, empty, err := ExpandGlobEntries(fs, ".", []string{"pages/*.ts", "main.ts"})
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.ElementsMatch(t, []string{"./pages/a.ts", "./pages/b.ts", "./pages/skip.spec.ts", "main.ts"}, expanded)
}

func TestExpandGlobEntriesEmptyMatch(t *testing.T) {
	fs := memFS(map[string]string{"main.ts": ""})

	_, empty, err := ExpandGlobEntries(fs, ".", []string{"pages/*.ts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pages/*.ts"}, empty)
}
