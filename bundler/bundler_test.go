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
package bundler_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"bennypowers.dev/pacco/bundler"
	"bennypowers.dev/pacco/compiler"
	"bennypowers.dev/pacco/external"
	paccofs "bennypowers.dev/pacco/fs"
	"bennypowers.dev/pacco/internal/mapfs"
	"bennypowers.dev/pacco/testutil"
	"bennypowers.dev/pacco/transform"
)

func newBundler(t *testing.T, fsys paccofs.FileSystem) *bundler.Bundler {
	t.Helper()
	c := compiler.New(fsys, transform.NewESBuild(), "es2022")
	b, err := bundler.New(c, external.NewRegistry(external.DefaultProvider))
	if err != nil {
		t.Fatalf("bundler.New failed: %v", err)
	}
	return b
}

func TestBuildLinearGraph(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	b := newBundler(t, mfs)

	build, err := b.Build(bundler.Options{EntryPoint: "/a.tsx"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{"/a.tsx", "/b.ts", "/c.ts"}
	if !reflect.DeepEqual(build.Modules, want) {
		t.Errorf("modules = %v, want %v", build.Modules, want)
	}

	wantGraph := map[string][]string{
		"/a.tsx": {"/b.ts"},
		"/b.ts":  {"/c.ts"},
		"/c.ts":  {},
	}
	if !reflect.DeepEqual(build.DependencyGraph, wantGraph) {
		t.Errorf("graph = %v, want %v", build.DependencyGraph, wantGraph)
	}
	if len(build.Errors) != 0 {
		t.Errorf("unexpected build errors: %v", build.Errors)
	}
}

func TestBundleAssemblyOrder(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	b := newBundler(t, mfs)

	build, err := b.Build(bundler.Options{EntryPoint: "/a.tsx"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	bundle := build.Bundle

	// Fixed assembly order: registry, external setup, defines in BFS
	// order, bootstrap
	positions := []string{
		"global.define = define;",
		"global.__setupExternals = __pacco.setupExternals(",
		"define('/a.tsx'",
		"define('/b.ts'",
		"define('/c.ts'",
		`await global.require("/a.tsx")`,
	}
	last := -1
	for _, marker := range positions {
		pos := strings.Index(bundle, marker)
		if pos == -1 {
			t.Fatalf("bundle missing %q", marker)
		}
		if pos < last {
			t.Errorf("%q appears out of order", marker)
		}
		last = pos
	}
}

func TestBuildMemoized(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	b := newBundler(t, mfs)

	opts := bundler.Options{EntryPoint: "/a.tsx", Externals: []string{"d3", "lodash"}}
	first, err := b.Build(opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Equal options (externals reordered) hit the same cache entry
	second, err := b.Build(bundler.Options{EntryPoint: "/a.tsx", Externals: []string{"lodash", "d3"}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if first != second {
		t.Error("equal options produced a different Build")
	}

	b.InvalidateModule("/b.ts")
	third, err := b.Build(opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if third == first {
		t.Error("invalidation did not drop the memoized build")
	}
}

func TestBuildExternalOnly(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/external-only", "/")
	b := newBundler(t, mfs)

	build, err := b.Build(bundler.Options{EntryPoint: "/app.tsx"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !reflect.DeepEqual(build.Modules, []string{"/app.tsx"}) {
		t.Errorf("modules = %v, want [/app.tsx]", build.Modules)
	}
	if strings.Contains(build.Bundle, "define('react'") {
		t.Error("external library was compiled into a module definition")
	}
	// The external's record still travels with the bundle
	if !strings.Contains(build.Bundle, `"name":"react"`) {
		t.Error("bundle missing the react external record")
	}
}

func TestBuildCycleCompletes(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/cycle", "/")
	b := newBundler(t, mfs)

	build, err := b.Build(bundler.Options{EntryPoint: "/a.tsx"})
	if err != nil {
		t.Fatalf("Build of a cyclic graph failed: %v", err)
	}
	want := []string{"/a.tsx", "/b.tsx"}
	if !reflect.DeepEqual(build.Modules, want) {
		t.Errorf("modules = %v, want %v", build.Modules, want)
	}
}

func TestBuildCSSModule(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/styles", "/")
	b := newBundler(t, mfs)

	build, err := b.Build(bundler.Options{EntryPoint: "/main.tsx"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !reflect.DeepEqual(build.Modules, []string{"/main.tsx", "/g.css"}) {
		t.Errorf("modules = %v", build.Modules)
	}
	if !strings.Contains(build.Bundle, "define('/g.css', [], ") {
		t.Error("bundle missing the css module definition")
	}
}

// failingFS delegates to an inner filesystem but fails reads of one path,
// simulating a module whose source cannot be loaded.
type failingFS struct {
	paccofs.FileSystem
	failPath string
}

func (f *failingFS) ReadFile(name string) ([]byte, error) {
	if name == f.failPath {
		return nil, errors.New("storage offline")
	}
	return f.FileSystem.ReadFile(name)
}

func TestBuildToleratesFailingModule(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/main.tsx", "import broken from './broken';\nexport default function Main() { return broken; }", 0644)
	mfs.AddFile("/broken.tsx", "export default 1;", 0644)
	b := newBundler(t, &failingFS{FileSystem: mfs, failPath: "/broken.tsx"})

	build, err := b.Build(bundler.Options{EntryPoint: "/main.tsx"})
	if err != nil {
		t.Fatalf("downstream failure must not fail the build: %v", err)
	}
	if !reflect.DeepEqual(build.Modules, []string{"/main.tsx", "/broken.tsx"}) {
		t.Errorf("modules = %v", build.Modules)
	}
	if len(build.Errors) != 1 {
		t.Errorf("errors = %v, want one entry", build.Errors)
	}
	for _, want := range []string{
		"failed to compile /broken.tsx",
		"module.exports = { default: () => null };",
	} {
		if !strings.Contains(build.Bundle, want) {
			t.Errorf("bundle missing %q", want)
		}
	}
}

func TestBuildEntryFailureIsFatal(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/main.tsx", "export default 1;", 0644)
	b := newBundler(t, &failingFS{FileSystem: mfs, failPath: "/main.tsx"})

	if _, err := b.Build(bundler.Options{EntryPoint: "/main.tsx"}); err == nil {
		t.Fatal("entry compile failure must fail the build")
	}
}

func TestBuildMissingEntryIsFatal(t *testing.T) {
	b := newBundler(t, mapfs.New())
	if _, err := b.Build(bundler.Options{EntryPoint: "/nope.tsx"}); err == nil {
		t.Fatal("unresolvable entry must fail the build")
	}
}

func TestStyleLayer(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	b := newBundler(t, mfs)

	plain, err := b.Build(bundler.Options{EntryPoint: "/a.tsx"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Contains(plain.Bundle, "data-pacco-style-layer") {
		t.Error("style layer injected without being requested")
	}

	styled, err := b.Build(bundler.Options{EntryPoint: "/a.tsx", IncludeStyleLayer: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(styled.Bundle, "data-pacco-style-layer") {
		t.Error("style layer missing")
	}
	if !strings.Contains(styled.Bundle, bundler.DefaultStyleLayerURL) {
		t.Error("style layer URL missing")
	}
}

func TestHotReload(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	b := newBundler(t, mfs)

	if _, err := b.Build(bundler.Options{EntryPoint: "/a.tsx"}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if err := mfs.WriteFile("/c.ts", []byte("export const greeting = 'salve';"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	code, err := b.HotReload("/c.ts")
	if err != nil {
		t.Fatalf("HotReload failed: %v", err)
	}
	if !strings.HasPrefix(code, "define('/c.ts'") {
		t.Errorf("hot reload did not produce a define:\n%s", code)
	}
	if !strings.Contains(code, "salve") {
		t.Errorf("hot reload compiled stale source:\n%s", code)
	}

	// Only the reloaded module is recompiled eagerly; dependents recompile
	// on the next build
	stats := b.Stats()
	if stats.Modules != 1 {
		t.Errorf("stats.Modules = %d, want 1", stats.Modules)
	}
	if stats.Builds != 0 {
		t.Errorf("stats.Builds = %d, want 0 after invalidation", stats.Builds)
	}
}

func TestClearCache(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	b := newBundler(t, mfs)

	if _, err := b.Build(bundler.Options{EntryPoint: "/a.tsx"}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	b.ClearCache()
	stats := b.Stats()
	if stats.Modules != 0 || stats.Builds != 0 {
		t.Errorf("caches survived ClearCache: %+v", stats)
	}
}

func TestStatsExternals(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	b := newBundler(t, mfs)

	if _, err := b.Build(bundler.Options{EntryPoint: "/a.tsx", Externals: []string{"lodash"}}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	stats := b.Stats()
	for _, want := range []string{"react", "react-dom", "lodash"} {
		found := false
		for _, name := range stats.Externals {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("externals %v missing %q", stats.Externals, want)
		}
	}
}
