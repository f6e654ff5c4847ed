package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlugin struct {
	Base
	resolvePath string
	transform   string
	resolveErr  error
	transformErr error
}

func (s *stubPlugin) Resolve(ctx context.Context, args ResolveArgs) (ResolveResult, error) {
	if s.resolveErr != nil {
		return ResolveResult{}, s.resolveErr
	}
	if s.resolvePath == "" {
		return ResolveResult{}, nil
	}
	return ResolveResult{Path: s.resolvePath}, nil
}

func (s *stubPlugin) Transform(ctx context.Context, args TransformArgs) (TransformResult, error) {
	if s.transformErr != nil {
		return TransformResult{}, s.transformErr
	}
	if s.transform == "" {
		return TransformResult{}, nil
	}
	return TransformResult{Code: s.transform}, nil
}

func TestHostResolveFirstNonEmptyWins(t *testing.T) {
	host := &Host{Plugins: []Plugin{
		&stubPlugin{Base: Base{PluginName: "a"}},
		&stubPlugin{Base: Base{PluginName: "b"}, resolvePath: "/resolved/by/b.js"},
		&stubPlugin{Base: Base{PluginName: "c"}, resolvePath: "/resolved/by/c.js"},
	}}

	res, handled, err := host.Resolve(context.Background(), ResolveArgs{Specifier: "x"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "/resolved/by/b.js", res.Path)
}

func TestHostResolveNoneHandle(t *testing.T) {
	host := &Host{Plugins: []Plugin{&stubPlugin{}, &stubPlugin{}}}

	_, handled, err := host.Resolve(context.Background(), ResolveArgs{Specifier: "x"})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestHostResolvePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	host := &Host{Plugins: []Plugin{&stubPlugin{resolveErr: boom}}}

	_, _, err := host.Resolve(context.Background(), ResolveArgs{Specifier: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestHostTransformFirstNonEmptyWins(t *testing.T) {
	host := &Host{Plugins: []Plugin{
		&stubPlugin{transform: "STEP1"},
		&stubPlugin{}, // not reached: the first plugin already produced code
		&stubPlugin{transform: "STEP2"},
	}}

	out, err := host.Transform(context.Background(), "/a.js", "original")
	require.NoError(t, err)
	assert.Equal(t, "STEP1", out)
}

func TestHostTransformNoPluginsReturnsSource(t *testing.T) {
	host := &Host{}
	out, err := host.Transform(context.Background(), "/a.js", "original")
	require.NoError(t, err)
	assert.Equal(t, "original", out)
}
