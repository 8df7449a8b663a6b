/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package bundler walks the dependency graph from an entry point and
// assembles the self-bootstrapping bundle. Per-module compile failures are
// tolerated: a synthetic error module stands in so the rest of the
// application still mounts. Only entry resolution and assembly failures are
// fatal.
package bundler

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"bennypowers.dev/pacco/compiler"
	"bennypowers.dev/pacco/external"
)

// buildCacheSize bounds the number of memoized builds.
const buildCacheSize = 32

// Bundler builds bundles, memoizing by canonicalized options.
type Bundler struct {
	compiler  *compiler.Compiler
	externals *external.Registry

	mu    sync.Mutex
	cache *lru.Cache[string, *Build]
}

// New creates a Bundler over a compiler and an external registry.
func New(c *compiler.Compiler, externals *external.Registry) (*Bundler, error) {
	cache, err := lru.New[string, *Build](buildCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating build cache: %w", err)
	}
	return &Bundler{
		compiler:  c,
		externals: externals,
		cache:     cache,
	}, nil
}

// Build walks the module graph from opts.EntryPoint and assembles the
// bundle. Rebuilding with equal options returns the same *Build.
func (b *Bundler) Build(opts Options) (*Build, error) {
	opts = opts.normalized()
	key := opts.cacheKey()

	// Serialized: a hot reload racing a build sees a stable snapshot
	b.mu.Lock()
	defer b.mu.Unlock()

	if cached, ok := b.cache.Get(key); ok {
		return cached, nil
	}

	b.compiler.SetTarget(opts.Target)

	for _, name := range opts.Externals {
		b.externals.Register(name, external.Record{
			Name: name,
			URL:  external.DefaultProvider.ModuleURL(name, ""),
		})
	}

	entryID, err := b.compiler.ResolveEntry(opts.EntryPoint)
	if err != nil {
		return nil, err
	}

	build, err := b.walk(entryID, opts)
	if err != nil {
		return nil, err
	}

	b.cache.Add(key, build)
	return build, nil
}

// walk runs the breadth-first traversal and assembles the result.
func (b *Bundler) walk(entryID string, opts Options) (*Build, error) {
	queue := []string{entryID}
	visited := make(map[string]bool)
	var modules []string
	codes := make(map[string]string)
	graph := make(map[string][]string)
	var buildErrors []error

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		res, err := b.compiler.Compile(id)
		if err != nil {
			if id == entryID {
				return nil, fmt.Errorf("compiling entry %s: %w", id, err)
			}
			buildErrors = append(buildErrors, fmt.Errorf("compiling %s: %w", id, err))
			modules = append(modules, id)
			codes[id] = compiler.ErrorModule(id, err)
			graph[id] = []string{}
			continue
		}

		modules = append(modules, id)
		codes[id] = res.Code
		graph[id] = append(make([]string, 0, len(res.Dependencies)), res.Dependencies...)

		for _, dep := range res.Dependencies {
			if !visited[dep] {
				queue = append(queue, dep)
			}
		}
	}

	bundle, err := b.assemble(entryID, modules, codes, opts)
	if err != nil {
		return nil, err
	}

	return &Build{
		Bundle:          bundle,
		Modules:         modules,
		DependencyGraph: graph,
		Errors:          buildErrors,
	}, nil
}

// InvalidateModule drops id's compilation (and its transitive dependents)
// and conservatively clears every memoized build.
func (b *Bundler) InvalidateModule(id string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := b.compiler.Invalidate(id)
	b.cache.Purge()
	return dropped
}

// HotReload invalidates id, recompiles that module alone, and returns its
// fresh define string for evaluation in the host global. Re-requiring by
// the application is the caller's concern.
func (b *Bundler) HotReload(id string) (string, error) {
	b.InvalidateModule(id)

	res, err := b.compiler.Compile(id)
	if err != nil {
		return "", fmt.Errorf("hot reload %s: %w", id, err)
	}
	return res.Code, nil
}

// ClearCache drops every compilation result and memoized build.
func (b *Bundler) ClearCache() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compiler.Clear()
	b.cache.Purge()
}

// Stats summarizes the pipeline state.
type Stats struct {
	Modules         int                 `json:"modules"`
	Builds          int                 `json:"builds"`
	Externals       []string            `json:"externals"`
	DependencyGraph map[string][]string `json:"dependencyGraph"`
}

// Stats reports cached module and build counts, registered externals, and
// the current dependency graph.
func (b *Bundler) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Modules:         b.compiler.Size(),
		Builds:          b.cache.Len(),
		Externals:       b.externals.SortedNames(),
		DependencyGraph: b.compiler.Graph(),
	}
}
