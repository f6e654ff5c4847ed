// Package plugin implements spec §9's "dynamic-dispatch plugin host": a
// small trait-like resolve/transform contract whose implementations are
// held in an ordered list, with the driver iterating until a
// non-empty result.
package plugin

import "context"

// ResolveArgs is the argument struct passed to a Plugin's Resolve hook.
type ResolveArgs struct {
	Specifier string
	Importer  string
}

// ResolveResult is what a Resolve hook returns when it claims a
// specifier. An empty Path means "not handled, try the next plugin."
type ResolveResult struct {
	Path     string
	External bool
}

// TransformArgs is the argument struct passed to a Plugin's Transform
// hook.
type TransformArgs struct {
	Path   string
	Source string
}

// TransformResult is what a Transform hook returns when it rewrites
// source text. An empty Code means "not handled, try the next plugin."
type TransformResult struct {
	Code string
}

// Plugin is the trait-like hook set a build can register. Both hooks are
// optional; a Plugin that only cares about one leaves the other a no-op.
type Plugin interface {
	Name() string
	Resolve(ctx context.Context, args ResolveArgs) (ResolveResult, error)
	Transform(ctx context.Context, args TransformArgs) (TransformResult, error)
}

// Base embeds into a concrete Plugin to default both hooks to "not
// handled", so a plugin implementation only needs to override what it
// cares about.
type Base struct{ PluginName string }

func (b Base) Name() string { return b.PluginName }
func (b Base) Resolve(context.Context, ResolveArgs) (ResolveResult, error) {
	return ResolveResult{}, nil
}
func (b Base) Transform(context.Context, TransformArgs) (TransformResult, error) {
	return TransformResult{}, nil
}

// Host drives an ordered list of plugins, using first-non-empty-result
// semantics for each hook.
type Host struct {
	Plugins []Plugin
}

// Resolve runs every plugin's Resolve hook in order, stopping at the
// first one that claims the specifier (a non-empty Path).
func (h *Host) Resolve(ctx context.Context, args ResolveArgs) (ResolveResult, bool, error) {
	for _, p := range h.Plugins {
		res, err := p.Resolve(ctx, args)
		if err != nil {
			return ResolveResult{}, false, err
		}
		if res.Path != "" {
			return res, true, nil
		}
	}
	return ResolveResult{}, false, nil
}

// Transform runs every plugin's Transform hook in order, stopping at the
// first one that produces replacement code and returning that code. If
// no plugin produces any, source is returned unchanged.
func (h *Host) Transform(ctx context.Context, path, source string) (string, error) {
	for _, p := range h.Plugins {
		res, err := p.Transform(ctx, TransformArgs{Path: path, Source: source})
		if err != nil {
			return "", err
		}
		if res.Code != "" {
			return res.Code, nil
		}
	}
	return source, nil
}
