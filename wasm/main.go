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

//go:build js && wasm

// Package main provides the WASM entry point for pacco: the whole pipeline
// running inside the browser over an in-memory project tree.
package main

import (
	"syscall/js"

	"bennypowers.dev/pacco/bundler"
	"bennypowers.dev/pacco/internal/mapfs"
	"bennypowers.dev/pacco/pipeline"
)

// Version is the pacco WASM version.
const Version = "0.1.0"

// session holds the pipeline of the most recent build over its in-memory
// tree, so hotReload and clearCache act on that build's caches. Every build
// call starts a new session; caches do not carry over between build calls.
type session struct {
	fsys *mapfs.MapFileSystem
	pipe *pipeline.Pipeline
}

var current *session

func main() {
	pacco := make(map[string]any)
	pacco["build"] = js.FuncOf(build)
	pacco["hotReload"] = js.FuncOf(hotReload)
	pacco["clearCache"] = js.FuncOf(clearCache)
	pacco["version"] = Version

	// Export to global scope
	js.Global().Set("pacco", js.ValueOf(pacco))

	// Keep the program running
	select {}
}

// build is the main entry point.
// Arguments:
//   - files: object - { "/path.tsx": "contents", ... }
//   - entry: string - entry point module path
//   - options: object (optional)
//   - styleLayer: boolean
//   - target: string ("es2022", "es2020", "es2015")
//   - externals: string[]
//   - cdn: string - CDN provider name ("esm.sh", "unpkg", "jsdelivr")
//
// Returns a Promise resolving to { bundle, modules }.
func build(this js.Value, args []js.Value) any {
	return promisify(func() (any, error) {
		if len(args) < 2 {
			return nil, &jsError{message: "build requires (files, entry)"}
		}

		opts := parseOptions(args)
		sess, err := newSession(args[0], opts.cdn)
		if err != nil {
			return nil, err
		}
		current = sess

		result, err := sess.pipe.Build(bundler.Options{
			EntryPoint:        args[1].String(),
			IncludeStyleLayer: opts.styleLayer,
			Target:            opts.target,
			Externals:         opts.externals,
		})
		if err != nil {
			return nil, &jsError{message: err.Error()}
		}

		modules := make([]any, len(result.Modules))
		for i, id := range result.Modules {
			modules[i] = id
		}
		return map[string]any{
			"bundle":  result.Bundle,
			"modules": modules,
		}, nil
	})
}

// hotReload recompiles one module of the current session and returns its
// fresh define string.
// Arguments:
//   - id: string - module path
//   - contents: string (optional) - new file contents to write first
func hotReload(this js.Value, args []js.Value) any {
	return promisify(func() (any, error) {
		if current == nil {
			return nil, &jsError{message: "no build session; call build first"}
		}
		if len(args) < 1 {
			return nil, &jsError{message: "hotReload requires a module id"}
		}
		id := args[0].String()
		if len(args) > 1 && args[1].Type() == js.TypeString {
			if err := current.fsys.WriteFile(id, []byte(args[1].String()), 0644); err != nil {
				return nil, &jsError{message: "writing " + id + ": " + err.Error()}
			}
		}
		code, err := current.pipe.HotReload(id)
		if err != nil {
			return nil, &jsError{message: err.Error()}
		}
		return code, nil
	})
}

// clearCache drops the current session's caches.
func clearCache(this js.Value, args []js.Value) any {
	if current != nil {
		current.pipe.ClearCache()
	}
	return js.Undefined()
}

func newSession(files js.Value, cdn string) (*session, error) {
	fsys := mapfs.New()
	keys := js.Global().Get("Object").Call("keys", files)
	for i := range keys.Length() {
		path := keys.Index(i).String()
		fsys.AddFile(path, files.Get(path).String(), 0644)
	}

	pipe, err := pipeline.New(fsys, pipeline.Config{Provider: cdn})
	if err != nil {
		return nil, &jsError{message: err.Error()}
	}
	return &session{fsys: fsys, pipe: pipe}, nil
}

type buildOptions struct {
	styleLayer bool
	target     string
	externals  []string
	cdn        string
}

func parseOptions(args []js.Value) buildOptions {
	var opts buildOptions
	if len(args) < 3 || args[2].Type() != js.TypeObject {
		return opts
	}
	raw := args[2]
	if v := raw.Get("styleLayer"); v.Type() == js.TypeBoolean {
		opts.styleLayer = v.Bool()
	}
	if v := raw.Get("target"); v.Type() == js.TypeString {
		opts.target = v.String()
	}
	if v := raw.Get("cdn"); v.Type() == js.TypeString {
		opts.cdn = v.String()
	}
	if v := raw.Get("externals"); v.Type() == js.TypeObject {
		for i := range v.Length() {
			opts.externals = append(opts.externals, v.Index(i).String())
		}
	}
	return opts
}

// promisify runs fn on a goroutine and surfaces its result as a JS Promise.
func promisify(fn func() (any, error)) js.Value {
	handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) any {
		resolve := promiseArgs[0]
		reject := promiseArgs[1]

		go func() {
			result, err := fn()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(js.ValueOf(result))
		}()

		return nil
	})

	promise := js.Global().Get("Promise").New(handler)
	handler.Release()
	return promise
}

type jsError struct {
	message string
}

func (e *jsError) Error() string {
	return e.message
}
