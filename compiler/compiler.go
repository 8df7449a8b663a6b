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

// Package compiler turns source units into AMD-style module definitions.
// Each compiled module is a `define(id, deps, factory)` string whose
// dependency list names only internal modules; external bare names resolve
// through the runtime's external registry instead.
package compiler

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"bennypowers.dev/pacco/fs"
	"bennypowers.dev/pacco/internal/depgraph"
	"bennypowers.dev/pacco/transform"
)

// Result is the cached outcome of compiling one module.
type Result struct {
	// ID is the canonical module identifier.
	ID string
	// Code is the complete define(id, deps, factory) string.
	Code string
	// Dependencies lists the internal module ids this module imports, in
	// first-appearance order. External names are filtered out.
	Dependencies []string
	// Unresolved lists relative specifiers that matched nothing on the
	// filesystem. Their requires fail at runtime with ModuleNotFound.
	Unresolved []string
}

// FilesystemError reports a failed read of a module source.
type FilesystemError struct {
	Path  string
	Cause error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Cause)
}

func (e *FilesystemError) Unwrap() error { return e.Cause }

// Compiler compiles source units into module definitions, memoizing per id.
type Compiler struct {
	fsys        fs.FileSystem
	transformer transform.Transformer
	target      string

	mu      sync.Mutex
	entries map[string]*compileEntry
	graph   *depgraph.Graph

	warnMu   sync.Mutex
	warnings []string
}

// compileEntry coordinates concurrent compilation of one id: the loader
// runs at most once, later callers wait on the sync.Once.
type compileEntry struct {
	once sync.Once
	res  *Result
	err  error
}

// New creates a Compiler over the given filesystem and transformer.
func New(fsys fs.FileSystem, transformer transform.Transformer, target string) *Compiler {
	return &Compiler{
		fsys:        fsys,
		transformer: transformer,
		target:      target,
		entries:     make(map[string]*compileEntry),
		graph:       depgraph.New(),
	}
}

// SetTarget switches the transform target. Changing the target drops every
// cached result, since compiled code depends on it.
func (c *Compiler) SetTarget(target string) {
	c.mu.Lock()
	if c.target == target {
		c.mu.Unlock()
		return
	}
	c.target = target
	c.entries = make(map[string]*compileEntry)
	c.mu.Unlock()
	c.graph.Clear()
}

// Compile returns the compilation result for id, compiling on first use.
// Read and transform failures are fatal for the module and propagate; parse
// failures during dependency extraction degrade to an empty dependency list
// with a warning.
func (c *Compiler) Compile(id string) (*Result, error) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if !ok {
		entry = &compileEntry{}
		c.entries[id] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.res, entry.err = c.compile(id)
		if entry.err == nil {
			c.graph.SetDependencies(id, entry.res.Dependencies)
		}
	})

	return entry.res, entry.err
}

// Invalidate drops id's cached result and, transitively, every module whose
// dependency set contains id. Returns the dropped ids.
func (c *Compiler) Invalidate(id string) []string {
	dropped := append([]string{id}, c.graph.TransitiveDependents(id)...)

	c.mu.Lock()
	for _, d := range dropped {
		delete(c.entries, d)
	}
	c.mu.Unlock()

	for _, d := range dropped {
		c.graph.Remove(d)
	}
	return dropped
}

// Clear drops every cached result and the dependency graph.
func (c *Compiler) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*compileEntry)
	c.mu.Unlock()
	c.graph.Clear()

	c.warnMu.Lock()
	c.warnings = nil
	c.warnMu.Unlock()
}

// Graph returns a snapshot of the direct internal dependency graph.
func (c *Compiler) Graph() map[string][]string {
	return c.graph.Snapshot()
}

// Size returns the number of cached compilation results.
func (c *Compiler) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Warnings returns the warnings recorded since the last Clear.
func (c *Compiler) Warnings() []string {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	return append([]string(nil), c.warnings...)
}

func (c *Compiler) warnf(format string, args ...any) {
	c.warnMu.Lock()
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
	c.warnMu.Unlock()
}

// ResolveEntry resolves an entry point specifier to a concrete module id
// using the same canonicalization and extension probing as imports.
func (c *Compiler) ResolveEntry(specifier string) (string, error) {
	canonical := Canonicalize("/", specifier)
	id, ok := Resolve(c.fsys, canonical)
	if !ok {
		return "", fmt.Errorf("entry point %s: no module found", specifier)
	}
	return id, nil
}

func (c *Compiler) compile(id string) (*Result, error) {
	source, err := c.fsys.ReadFile(id)
	if err != nil {
		return nil, &FilesystemError{Path: id, Cause: err}
	}

	if KindOf(id) == KindCSS {
		return c.compileCSS(id, source), nil
	}
	return c.compileJS(id, source)
}

// compileJS runs the js-like pipeline: pre-parse for dependencies,
// transform, rewrite imports/exports, wrap.
func (c *Compiler) compileJS(id string, source []byte) (*Result, error) {
	dir := path.Dir(id)

	imports, parseErr := ExtractImports(source, dialectFor(id))
	if parseErr != nil {
		c.warnf("parse %s: %v; compiling with no dependencies", id, parseErr)
	}

	// Resolve each distinct specifier once. External names stay bare and
	// never enter the dependency list.
	resolved := make(map[string]string)
	var deps []string
	var unresolved []string
	seen := make(map[string]bool)
	for _, imp := range imports {
		if _, ok := resolved[imp.Specifier]; ok {
			continue
		}
		if IsExternalSpecifier(imp.Specifier) {
			resolved[imp.Specifier] = imp.Specifier
			continue
		}
		canonical := Canonicalize(dir, imp.Specifier)
		concrete, ok := Resolve(c.fsys, canonical)
		if !ok {
			resolved[imp.Specifier] = canonical
			unresolved = append(unresolved, imp.Specifier)
			c.warnf("unresolved specifier %q in %s (line %d)", imp.Specifier, id, imp.Line)
			continue
		}
		resolved[imp.Specifier] = concrete
		if !seen[concrete] {
			seen[concrete] = true
			deps = append(deps, concrete)
		}
	}

	ext := strings.ToLower(path.Ext(id))
	syntax := transform.SyntaxECMAScript
	if ext == ".ts" || ext == ".tsx" {
		syntax = transform.SyntaxTypeScript
	}
	code, err := c.transformer.Transform(string(source), transform.Options{
		Filename: id,
		Syntax:   syntax,
		JSX:      ext == ".tsx" || ext == ".jsx",
		Target:   c.target,
	})
	if err != nil {
		return nil, err
	}

	lookup := func(specifier string) string {
		if r, ok := resolved[specifier]; ok {
			return r
		}
		if IsExternalSpecifier(specifier) {
			return specifier
		}
		return Canonicalize(dir, specifier)
	}

	body, rewriteErr := rewriteModule([]byte(code), lookup)
	if parseErr != nil || rewriteErr != nil {
		if rewriteErr != nil {
			c.warnf("rewrite %s: %v; wrapping transformed code as-is", id, rewriteErr)
		}
		// Recoverable: wrap the transformed code untouched with no deps.
		return &Result{
			ID:   id,
			Code: wrapDefine(id, nil, code),
		}, nil
	}

	return &Result{
		ID:           id,
		Code:         wrapDefine(id, deps, body),
		Dependencies: deps,
		Unresolved:   unresolved,
	}, nil
}

// compileCSS wraps a stylesheet in a factory that installs (or updates) a
// single <style data-module> element and exports the text.
func (c *Compiler) compileCSS(id string, source []byte) *Result {
	css := jsString(string(source))
	idLit := jsString(id)
	var b strings.Builder
	b.WriteString("const css = " + css + ";\n")
	b.WriteString("if (typeof document !== 'undefined') {\n")
	b.WriteString("  let el = document.querySelector('style[data-module=' + JSON.stringify(" + idLit + ") + ']');\n")
	b.WriteString("  if (!el) {\n")
	b.WriteString("    el = document.createElement('style');\n")
	b.WriteString("    el.setAttribute('data-module', " + idLit + ");\n")
	b.WriteString("    document.head.appendChild(el);\n")
	b.WriteString("  }\n")
	b.WriteString("  if (el.textContent !== css) el.textContent = css;\n")
	b.WriteString("}\n")
	b.WriteString("module.exports = css;\n")

	return &Result{
		ID:   id,
		Code: wrapDefine(id, nil, b.String()),
	}
}

// wrapDefine renders the final module definition string.
func wrapDefine(id string, deps []string, body string) string {
	quoted := make([]string, len(deps))
	for i, dep := range deps {
		quoted[i] = "'" + dep + "'"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "define('%s', [%s], function(require, module, exports) {\n",
		id, strings.Join(quoted, ", "))
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("});")
	return b.String()
}

// ErrorModule synthesizes a definition for a module that failed to compile:
// its factory logs the failure and exports a component that renders nothing,
// so the rest of the application still mounts.
func ErrorModule(id string, cause error) string {
	var b strings.Builder
	b.WriteString("console.error(" + jsString(fmt.Sprintf("failed to compile %s", id)) + ", " +
		jsString(cause.Error()) + ");\n")
	b.WriteString("module.exports = { default: () => null };\n")
	return wrapDefine(id, nil, b.String())
}
