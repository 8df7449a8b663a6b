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
package compiler_test

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"bennypowers.dev/pacco/compiler"
	"bennypowers.dev/pacco/internal/mapfs"
	"bennypowers.dev/pacco/testutil"
	"bennypowers.dev/pacco/transform"
)

func newCompiler(mfs *mapfs.MapFileSystem) *compiler.Compiler {
	return compiler.New(mfs, transform.NewESBuild(), "es2022")
}

func TestCompileLinearGraph(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	c := newCompiler(mfs)

	a, err := c.Compile("/a.tsx")
	if err != nil {
		t.Fatalf("Compile(/a.tsx) failed: %v", err)
	}
	if !strings.HasPrefix(a.Code, "define('/a.tsx', ['/b.ts'], function(require, module, exports) {") {
		t.Errorf("unexpected define header:\n%s", a.Code)
	}
	if !reflect.DeepEqual(a.Dependencies, []string{"/b.ts"}) {
		t.Errorf("dependencies = %v, want [/b.ts]", a.Dependencies)
	}

	b, err := c.Compile("/b.ts")
	if err != nil {
		t.Fatalf("Compile(/b.ts) failed: %v", err)
	}
	if !reflect.DeepEqual(b.Dependencies, []string{"/c.ts"}) {
		t.Errorf("dependencies = %v, want [/c.ts]", b.Dependencies)
	}
	if !strings.Contains(b.Code, "function banner") {
		t.Errorf("transformed body missing banner function:\n%s", b.Code)
	}
	// Type annotations are gone after the transform
	if strings.Contains(b.Code, ": string") {
		t.Errorf("type annotation survived the transform:\n%s", b.Code)
	}

	cRes, err := c.Compile("/c.ts")
	if err != nil {
		t.Fatalf("Compile(/c.ts) failed: %v", err)
	}
	if len(cRes.Dependencies) != 0 {
		t.Errorf("leaf module has dependencies: %v", cRes.Dependencies)
	}
	if !strings.Contains(cRes.Code, "module.exports = { greeting: greeting };") {
		t.Errorf("missing export epilogue:\n%s", cRes.Code)
	}
}

func TestCompileMemoized(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	c := newCompiler(mfs)

	first, err := c.Compile("/c.ts")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	second, err := c.Compile("/c.ts")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if first != second {
		t.Error("second Compile returned a different result pointer")
	}
}

func TestCompileGraph(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	c := newCompiler(mfs)

	for _, id := range []string{"/a.tsx", "/b.ts", "/c.ts"} {
		if _, err := c.Compile(id); err != nil {
			t.Fatalf("Compile(%s) failed: %v", id, err)
		}
	}

	graph := c.Graph()
	want := map[string][]string{
		"/a.tsx": {"/b.ts"},
		"/b.ts":  {"/c.ts"},
		"/c.ts":  {},
	}
	if !reflect.DeepEqual(graph, want) {
		t.Errorf("graph = %v, want %v", graph, want)
	}
}

func TestInvalidateTransitive(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	c := newCompiler(mfs)

	for _, id := range []string{"/a.tsx", "/b.ts", "/c.ts"} {
		if _, err := c.Compile(id); err != nil {
			t.Fatalf("Compile(%s) failed: %v", id, err)
		}
	}

	dropped := c.Invalidate("/c.ts")
	slices.Sort(dropped)
	want := []string{"/a.tsx", "/b.ts", "/c.ts"}
	if !reflect.DeepEqual(dropped, want) {
		t.Errorf("Invalidate dropped %v, want %v", dropped, want)
	}
	if c.Size() != 0 {
		t.Errorf("%d entries survived invalidation", c.Size())
	}
}

func TestInvalidateRereadsSource(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	c := newCompiler(mfs)

	before, err := c.Compile("/c.ts")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if err := mfs.WriteFile("/c.ts", []byte("export const greeting = 'salve';"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Still memoized: the edit is invisible until invalidation
	cached, err := c.Compile("/c.ts")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if cached != before {
		t.Fatal("edit was visible without invalidation")
	}

	c.Invalidate("/c.ts")
	after, err := c.Compile("/c.ts")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !strings.Contains(after.Code, "salve") {
		t.Errorf("recompiled module missing new source:\n%s", after.Code)
	}
}

func TestCompileExternalImport(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/external-only", "/")
	c := newCompiler(mfs)

	res, err := c.Compile("/app.tsx")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(res.Dependencies) != 0 {
		t.Errorf("external import leaked into dependencies: %v", res.Dependencies)
	}
	if !strings.Contains(res.Code, `require("react")`) {
		t.Errorf("missing external require:\n%s", res.Code)
	}
}

func TestCompileCSS(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/styles", "/")
	c := newCompiler(mfs)

	res, err := c.Compile("/g.css")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(res.Dependencies) != 0 {
		t.Errorf("css module has dependencies: %v", res.Dependencies)
	}
	if !strings.HasPrefix(res.Code, "define('/g.css', [], ") {
		t.Errorf("unexpected define header:\n%s", res.Code)
	}
	for _, want := range []string{
		`"body{color:red}"`,
		"data-module",
		"module.exports = css;",
	} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("css module missing %q:\n%s", want, res.Code)
		}
	}
}

func TestCompileCSSImport(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/styles", "/")
	c := newCompiler(mfs)

	res, err := c.Compile("/main.tsx")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !reflect.DeepEqual(res.Dependencies, []string{"/g.css"}) {
		t.Errorf("dependencies = %v, want [/g.css]", res.Dependencies)
	}
}

func TestCompileUnresolvedSpecifier(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/main.ts", "import { gone } from './missing';\nexport const ok = gone;", 0644)
	c := newCompiler(mfs)

	res, err := c.Compile("/main.ts")
	if err != nil {
		t.Fatalf("unresolved specifier should not fail compilation: %v", err)
	}
	if len(res.Dependencies) != 0 {
		t.Errorf("unresolved specifier entered dependencies: %v", res.Dependencies)
	}
	if !slices.Contains(res.Unresolved, "./missing") {
		t.Errorf("unresolved = %v, want ./missing recorded", res.Unresolved)
	}
	// The require stays: it fails at runtime with ModuleNotFound
	if !strings.Contains(res.Code, `require("/missing")`) {
		t.Errorf("missing deferred require:\n%s", res.Code)
	}
	if len(c.Warnings()) == 0 {
		t.Error("no warning recorded for unresolved specifier")
	}
}

func TestCompileReadFailure(t *testing.T) {
	mfs := mapfs.New()
	c := newCompiler(mfs)

	_, err := c.Compile("/nope.ts")
	if err == nil {
		t.Fatal("expected read failure")
	}
	var fsErr *compiler.FilesystemError
	if !errors.As(err, &fsErr) {
		t.Errorf("error %T is not a FilesystemError", err)
	}
}

func TestResolveEntry(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "app/linear", "/")
	c := newCompiler(mfs)

	id, err := c.ResolveEntry("/a")
	if err != nil {
		t.Fatalf("ResolveEntry failed: %v", err)
	}
	if id != "/a.tsx" {
		t.Errorf("ResolveEntry(/a) = %q, want /a.tsx", id)
	}

	if _, err := c.ResolveEntry("/does-not-exist"); err == nil {
		t.Error("expected entry resolution failure")
	}
}

func TestErrorModule(t *testing.T) {
	code := compiler.ErrorModule("/broken.tsx", errors.New("boom"))
	for _, want := range []string{
		"define('/broken.tsx', [], ",
		"failed to compile /broken.tsx",
		"module.exports = { default: () => null };",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("error module missing %q:\n%s", want, code)
		}
	}
}
