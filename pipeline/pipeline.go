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

// Package pipeline exposes the build-and-load pipeline as one object:
// filesystem in, self-bootstrapping bundle out, with hot reload and cache
// control. This is the surface the CLI, the dev server, and the wasm host
// all drive.
package pipeline

import (
	"fmt"

	"bennypowers.dev/pacco/bundler"
	"bennypowers.dev/pacco/compiler"
	"bennypowers.dev/pacco/external"
	"bennypowers.dev/pacco/fs"
	"bennypowers.dev/pacco/transform"
)

// Config carries construction-time choices.
type Config struct {
	// Provider selects the CDN used for the URLs of the default externals
	// (the React runtime records). Empty selects the default provider.
	// Names added through bundler.Options.Externals always get URLs from
	// external.DefaultProvider (esm.sh), whatever Provider says.
	Provider string
	// Transformer overrides the TS/JSX transform; nil selects esbuild.
	Transformer transform.Transformer
}

// Pipeline wires the filesystem, transform, compiler, external registry,
// and bundler together.
type Pipeline struct {
	fsys      fs.FileSystem
	compiler  *compiler.Compiler
	externals *external.Registry
	bundler   *bundler.Bundler
}

// New creates a Pipeline over the given filesystem.
func New(fsys fs.FileSystem, cfg Config) (*Pipeline, error) {
	provider := external.DefaultProvider
	if cfg.Provider != "" {
		p := external.ProviderByName(cfg.Provider)
		if p == nil {
			return nil, fmt.Errorf("unknown CDN provider %q (supported: %v)",
				cfg.Provider, external.ProviderNames())
		}
		provider = *p
	}

	transformer := cfg.Transformer
	if transformer == nil {
		transformer = transform.NewESBuild()
	}

	registry := external.NewRegistry(provider)
	comp := compiler.New(fsys, transformer, "es2022")
	bund, err := bundler.New(comp, registry)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		fsys:      fsys,
		compiler:  comp,
		externals: registry,
		bundler:   bund,
	}, nil
}

// Init prepares shared parser state so the first build does not pay for it.
func (p *Pipeline) Init() error {
	if _, err := compiler.GetQueryManager(); err != nil {
		return fmt.Errorf("initializing parser queries: %w", err)
	}
	return nil
}

// Build produces (or returns the memoized) bundle for the given options.
func (p *Pipeline) Build(opts bundler.Options) (*bundler.Build, error) {
	return p.bundler.Build(opts)
}

// HotReload invalidates id (and its transitive dependents), recompiles that
// module alone, and returns the new define string. Evaluating it in the
// running bundle's host global replaces the registry entry.
func (p *Pipeline) HotReload(id string) (string, error) {
	return p.bundler.HotReload(id)
}

// InvalidateModule drops id and its transitive dependents from the
// compilation cache and clears memoized builds.
func (p *Pipeline) InvalidateModule(id string) []string {
	return p.bundler.InvalidateModule(id)
}

// ClearCache drops all compilation results and memoized builds.
func (p *Pipeline) ClearCache() {
	p.bundler.ClearCache()
}

// Stats reports pipeline state.
func (p *Pipeline) Stats() bundler.Stats {
	return p.bundler.Stats()
}

// Externals exposes the external registry.
func (p *Pipeline) Externals() *external.Registry {
	return p.externals
}

// Warnings returns compiler warnings recorded since the last cache clear.
func (p *Pipeline) Warnings() []string {
	return p.compiler.Warnings()
}

// FileSystem returns the filesystem the pipeline compiles from.
func (p *Pipeline) FileSystem() fs.FileSystem {
	return p.fsys
}
