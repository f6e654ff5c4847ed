// Package loader implements spec §4.1's Module Loader: a task-parallel
// pool that starts from the resolved entries, reads and parses each
// module, runs the Scanner over it, resolves its dependencies, and
// installs the result into the graph, continuing until the queue is
// empty and accumulating errors rather than short-circuiting (spec
// §4.1's "loader continues draining the queue" error model).
package loader

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/gobundle/gobundle/internal/graph"
	"github.com/gobundle/gobundle/internal/ids"
	"github.com/gobundle/gobundle/internal/jsast"
	"github.com/gobundle/gobundle/internal/logger"
	"github.com/gobundle/gobundle/internal/plugin"
	"github.com/gobundle/gobundle/internal/resolver"
	"github.com/gobundle/gobundle/internal/scanner"
)

// Options configures one Load run.
type Options struct {
	FS       afero.Fs
	Resolver resolver.Resolver
	Plugins  *plugin.Host
	Entries  []string // raw specifiers, already glob-expanded
}

// Load runs the Module Loader to completion, installing every reachable
// module (and every external it references) into g. It returns every
// per-task error encountered; a non-empty return means the caller should
// fail the build without proceeding to the Linker, but Load itself never
// stops early because of one bad module.
func Load(g *graph.Graph, opts Options) []error {
	var (
		errs    []error
		wg      conc.WaitGroup
		seen    = map[ids.ModuleId]bool{}
		results = make(chan taskResult)
		pending int
		nsRefs  []ids.ModuleId
	)

	trySpawn := func(id ids.ModuleId, isEntry bool) {
		if seen[id] {
			return
		}
		seen[id] = true
		pending++
		wg.Go(func() {
			results <- runTask(context.Background(), g, opts, id, isEntry)
		})
	}

	for _, raw := range opts.Entries {
		id, err := opts.Resolver.Resolve(raw, "")
		if err != nil {
			errs = append(errs, err)
			g.Log.AddError(raw, logger.UnresolvedEntry, err.Error())
			continue
		}
		if id.IsExternal {
			err := fmt.Errorf("entry %q resolved to an external module", raw)
			errs = append(errs, err)
			g.Log.AddError(raw, logger.ExternalEntry, err.Error())
			continue
		}
		g.EntryModules = append(g.EntryModules, id)
		trySpawn(id, true)
	}

	for pending > 0 {
		res := <-results
		pending--
		if res.err != nil {
			errs = append(errs, res.err)
			g.Log.AddError(res.id.String(), res.errKind, res.err.Error())
			continue
		}

		res.mod.IsUserDefinedEntry = res.isEntry
		g.AddNormal(res.mod)
		nsRefs = append(nsRefs, res.nsRefs...)

		for _, dep := range res.staticDeps {
			if dep.IsExternal {
				g.AddExternal(dep)
				continue
			}
			trySpawn(dep, false)
		}
		for _, dep := range res.dynDeps {
			if dep.IsExternal {
				g.AddExternal(dep)
				continue
			}
			trySpawn(dep, false)
		}
	}

	wg.Wait()
	markDynamicEntries(g)
	for _, depID := range nsRefs {
		if dm, ok := g.Normal(depID); ok {
			dm.IsNamespaceReferenced = true
		}
	}
	return errs
}

// markDynamicEntries sets IsDynamicEntry on every module that is the
// target of at least one dynamic import anywhere in the graph, per spec
// §4.1: "discovered as a side effect of scanning; after the loader
// returns, every module that is the target of at least one dynamic
// import is marked is_dynamic_entry."
func markDynamicEntries(g *graph.Graph) {
	for _, m := range g.AllNormal() {
		for _, dynID := range m.DynDependencies {
			if dm, ok := g.Normal(dynID); ok {
				dm.IsDynamicEntry = true
			}
		}
	}
}

type taskResult struct {
	id         ids.ModuleId
	isEntry    bool
	mod        *graph.NormalModule
	staticDeps []ids.ModuleId
	dynDeps    []ids.ModuleId
	nsRefs     []ids.ModuleId
	errKind    logger.MsgID
	err        error
}

// runTask reads, parses, transforms, and scans one module, then resolves
// every specifier it references. It never mutates the graph directly
// (that's the owner loop's job, per spec §4.1) and only returns a result.
func runTask(ctx context.Context, g *graph.Graph, opts Options, id ids.ModuleId, isEntry bool) taskResult {
	source, err := afero.ReadFile(opts.FS, id.Path)
	if err != nil {
		return taskResult{id: id, errKind: logger.IOError, err: fmt.Errorf("reading %s: %w", id.Path, err)}
	}

	text := string(source)
	if opts.Plugins != nil {
		transformed, err := opts.Plugins.Transform(ctx, id.Path, text)
		if err != nil {
			return taskResult{id: id, errKind: logger.IOError, err: fmt.Errorf("transforming %s: %w", id.Path, err)}
		}
		text = transformed
	}

	ast, err := jsast.Parse(text)
	if err != nil {
		return taskResult{id: id, errKind: logger.ParseFailed, err: fmt.Errorf("%s: %w", id.Path, err)}
	}

	res, err := scanner.Scan(ast, id, g.Interner)
	if err != nil {
		return taskResult{id: id, errKind: logger.ParseFailed, err: fmt.Errorf("scanning %s: %w", id.Path, err)}
	}

	mod, staticDeps, dynDeps, nsRefs, err := resolveModule(ctx, opts, id, ast, res)
	if err != nil {
		return taskResult{id: id, errKind: logger.UnresolvedEntry, err: err}
	}
	return taskResult{id: id, isEntry: isEntry, mod: mod, staticDeps: staticDeps, dynDeps: dynDeps, nsRefs: nsRefs}
}

// resolveModule runs dependency resolution for every specifier res
// collected, concurrently via errgroup, then assembles the NormalModule.
// The first unresolvable specifier fails the whole module task; a resolve
// that has not started by then is skipped, but Wait still waits for every
// resolve call already in progress.
func resolveModule(ctx context.Context, opts Options, id ids.ModuleId, ast *jsast.AST, res *scanner.Result) (*graph.NormalModule, []ids.ModuleId, []ids.ModuleId, []ids.ModuleId, error) {
	specifiers := make([]string, 0, len(res.Dependencies)+len(res.DynDependencies))
	specifiers = append(specifiers, res.Dependencies...)
	specifiers = append(specifiers, res.DynDependencies...)

	resolved := make(map[string]ids.ModuleId, len(specifiers))
	g, gctx := errgroup.WithContext(ctx)
	var muResolved = make(chan struct {
		spec string
		id   ids.ModuleId
	}, len(specifiers))

	for _, spec := range specifiers {
		spec := spec
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			resolvedID, err := resolveOne(opts, spec, id.Path)
			if err != nil {
				return fmt.Errorf("%s: %w", id.Path, err)
			}
			muResolved <- struct {
				spec string
				id   ids.ModuleId
			}{spec, resolvedID}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, nil, err
	}
	close(muResolved)
	for r := range muResolved {
		resolved[r.spec] = r.id
	}

	mod := graph.NewNormalModule(id)
	mod.TopLevelScopeTag = res.TopLevelScopeTag
	mod.AST = ast
	mod.SuggestedNames = res.SuggestedNames
	mod.DeclaredScopedNames = res.DeclaredScopedNames
	mod.VisitedGlobalNames = res.VisitedGlobalNames
	mod.LocalExports = res.LocalExports
	mod.Parts = res.Parts
	mod.SymbolRefs = res.SymbolRefs

	var staticDeps, dynDeps []ids.ModuleId
	seenStatic := map[ids.ModuleId]bool{}
	for _, spec := range res.Dependencies {
		depID := resolved[spec]
		if !seenStatic[depID] {
			seenStatic[depID] = true
			mod.Dependencies = append(mod.Dependencies, depID)
			staticDeps = append(staticDeps, depID)
		}
		mod.Imports[depID] = res.ImportsBySpecifier[spec]
		for _, rs := range res.ReExportedBySpecifier[spec] {
			mod.ReExportedIDs[depID] = append(mod.ReExportedIDs[depID], rs)
		}
	}
	for _, spec := range res.ReExportAllSpecifiers {
		depID := resolved[spec]
		mod.ReExportAll = append(mod.ReExportAll, depID)
		if !seenStatic[depID] {
			seenStatic[depID] = true
			mod.Dependencies = append(mod.Dependencies, depID)
			staticDeps = append(staticDeps, depID)
		}
	}
	var nsRefs []ids.ModuleId
	for source := range res.NamespaceReferencedSpecifier {
		if depID, ok := resolved[source]; ok {
			nsRefs = append(nsRefs, depID)
		}
	}

	seenDyn := map[ids.ModuleId]bool{}
	for _, spec := range res.DynDependencies {
		depID := resolved[spec]
		mod.DynImportSpecifiers[spec] = depID
		if !seenDyn[depID] {
			seenDyn[depID] = true
			mod.DynDependencies = append(mod.DynDependencies, depID)
			dynDeps = append(dynDeps, depID)
		}
	}

	return mod, staticDeps, dynDeps, nsRefs, nil
}

func resolveOne(opts Options, specifier, importer string) (ids.ModuleId, error) {
	if opts.Plugins != nil {
		res, handled, err := opts.Plugins.Resolve(context.Background(), plugin.ResolveArgs{Specifier: specifier, Importer: importer})
		if err != nil {
			return ids.ModuleId{}, err
		}
		if handled {
			return ids.ModuleId{Path: res.Path, IsExternal: res.External}, nil
		}
	}
	return opts.Resolver.Resolve(specifier, importer)
}
