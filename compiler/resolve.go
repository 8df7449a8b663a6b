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
package compiler

import (
	"path"
	"strings"

	"bennypowers.dev/pacco/fs"
)

// probeExtensions is the deterministic file-level probe order.
var probeExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".css"}

// indexExtensions is the probe order for directory index modules.
var indexExtensions = []string{".tsx", ".ts", ".jsx", ".js"}

// Canonicalize resolves a relative or absolute specifier against the
// directory of the importing module, collapsing "." and ".." segments.
// The result is an absolute, Unix-style path; it may or may not exist.
func Canonicalize(fromDir, specifier string) string {
	if strings.HasPrefix(specifier, "/") {
		return path.Clean(specifier)
	}
	return path.Clean(path.Join(fromDir, specifier))
}

// Resolve probes the filesystem for the module a canonical path names.
// A file-level hit always wins over a directory index:
//
//  1. the exact path, when it is a file
//  2. path + each of .tsx, .ts, .jsx, .js, .css
//  3. path/index + each of .tsx, .ts, .jsx, .js
//
// Returns the concrete module id and true, or "" and false when nothing
// matches.
func Resolve(fsys fs.FileSystem, canonical string) (string, bool) {
	if fs.IsFile(fsys, canonical) {
		return canonical, true
	}

	for _, ext := range probeExtensions {
		candidate := canonical + ext
		if fs.IsFile(fsys, candidate) {
			return candidate, true
		}
	}

	for _, ext := range indexExtensions {
		candidate := path.Join(canonical, "index"+ext)
		if fs.IsFile(fsys, candidate) {
			return candidate, true
		}
	}

	return "", false
}

// Kind classifies a module id by extension.
type Kind int

const (
	KindJS Kind = iota
	KindCSS
)

// KindOf derives the source kind from a module id's extension. Unknown
// extensions compile through the JS pipeline.
func KindOf(id string) Kind {
	switch strings.ToLower(path.Ext(id)) {
	case ".css", ".scss", ".sass":
		return KindCSS
	default:
		return KindJS
	}
}
