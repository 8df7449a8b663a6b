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
package bundler

import (
	"encoding/json"
	"slices"
)

// DefaultStyleLayerURL is the stylesheet the optional style layer injects
// when no explicit URL is configured.
const DefaultStyleLayerURL = "https://cdn.jsdelivr.net/npm/tailwindcss@2/dist/tailwind.min.css"

// Options configures one build. Equal options produce equal cache keys.
type Options struct {
	// EntryPoint is the module the bundle bootstraps, as an absolute path
	// or a probe-able specifier ("/app" resolves like an import would).
	EntryPoint string `json:"entryPoint"`
	// IncludeStyleLayer injects a stylesheet link before the module
	// definitions.
	IncludeStyleLayer bool `json:"includeStyleLayer"`
	// StyleLayerURL overrides the injected stylesheet URL.
	StyleLayerURL string `json:"styleLayerUrl,omitempty"`
	// Target is the output language level, passed through to the
	// transform (es2022, es2020, es2015).
	Target string `json:"target"`
	// Externals names additional libraries the bundle must not compile
	// from source.
	Externals []string `json:"externals"`
}

// normalized fills defaults so equal builds canonicalize identically.
func (o Options) normalized() Options {
	if o.Target == "" {
		o.Target = "es2022"
	}
	if o.IncludeStyleLayer && o.StyleLayerURL == "" {
		o.StyleLayerURL = DefaultStyleLayerURL
	}
	externals := append([]string(nil), o.Externals...)
	slices.Sort(externals)
	o.Externals = slices.Compact(externals)
	return o
}

// cacheKey canonicalizes the options to JSON. Field order is fixed by the
// struct; externals are sorted and deduplicated.
func (o Options) cacheKey() string {
	data, _ := json.Marshal(o.normalized())
	return string(data)
}

// Build is the result of one bundler run.
type Build struct {
	// Bundle is the single self-bootstrapping output string.
	Bundle string
	// Modules lists every bundled module id in breadth-first discovery
	// order; the entry module is first.
	Modules []string
	// DependencyGraph maps each bundled id to its direct internal
	// dependencies.
	DependencyGraph map[string][]string
	// Errors collects non-fatal per-module failures; each failed id is
	// represented in the bundle by a synthetic error module.
	Errors []error
}
