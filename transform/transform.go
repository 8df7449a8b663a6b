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

// Package transform adapts a TypeScript/JSX-to-ES transformer behind a
// narrow interface. The compiler treats the transform as a pure function of
// source text; everything about how types are stripped and JSX is lowered is
// this package's concern alone.
package transform

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Syntax selects the parser dialect for a source unit.
type Syntax string

const (
	SyntaxTypeScript Syntax = "typescript"
	SyntaxECMAScript Syntax = "ecmascript"
)

// Options configures a single transform call.
type Options struct {
	// Filename is the module identifier, used for diagnostics.
	Filename string
	// Syntax selects TypeScript or plain ECMAScript parsing.
	Syntax Syntax
	// JSX enables JSX lowering (.tsx/.jsx sources).
	JSX bool
	// Target is the output language level (es2022, es2020, es2015).
	// Unrecognized values pass through as esnext.
	Target string
}

// Transformer rewrites TypeScript/JSX source into plain ES modules.
// Implementations must preserve import and export statements; the compiler
// lowers those itself after the transform.
type Transformer interface {
	Transform(code string, opts Options) (string, error)
}

// Error reports a transform rejection for a module.
type Error struct {
	Filename string
	Detail   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s: %s", e.Filename, e.Detail)
}

// ESBuild implements Transformer using the esbuild transform API.
type ESBuild struct{}

// NewESBuild creates an esbuild-backed transformer.
func NewESBuild() *ESBuild {
	return &ESBuild{}
}

// Transform lowers TypeScript and JSX to plain ES while keeping module
// syntax intact.
func (t *ESBuild) Transform(code string, opts Options) (string, error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:     loaderFor(opts),
		Format:     api.FormatESModule,
		Target:     targetFor(opts.Target),
		Sourcefile: opts.Filename,
		// Classic runtime: the emitted bundle guarantees React.createElement
		// on the host global before any factory runs.
		JSX: api.JSXTransform,
	})

	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, msg := range result.Errors {
			msgs = append(msgs, msg.Text)
		}
		return "", &Error{Filename: opts.Filename, Detail: strings.Join(msgs, "; ")}
	}

	return string(result.Code), nil
}

func loaderFor(opts Options) api.Loader {
	if opts.Syntax == SyntaxTypeScript {
		if opts.JSX {
			return api.LoaderTSX
		}
		return api.LoaderTS
	}
	if opts.JSX {
		return api.LoaderJSX
	}
	return api.LoaderJS
}

// targetFor maps a build target onto an esbuild target constant. The target
// value is otherwise opaque to the pipeline: whatever esbuild honors is what
// ends up in the bundle.
func targetFor(target string) api.Target {
	switch target {
	case "es2022":
		return api.ES2022
	case "es2020":
		return api.ES2020
	case "es2015":
		return api.ES2015
	default:
		return api.ESNext
	}
}
