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
	"fmt"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// ModuleImport represents an import dependency found in a source unit.
type ModuleImport struct {
	Specifier string // The import specifier (e.g., "react", "./Button")
	IsDynamic bool   // True if this is a dynamic import()
	Line      int    // 1-indexed source line
}

// ExtractImports parses raw source and extracts every import specifier:
// static imports (including side-effect imports), re-exports, and dynamic
// imports with literal specifiers.
func ExtractImports(content []byte, dialect string) ([]ModuleImport, error) {
	qm, err := GetQueryManager()
	if err != nil {
		return nil, err
	}

	parser := getParser(dialect)
	defer putParser(dialect, parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse content")
	}
	defer tree.Close()

	query, err := qm.Query(dialect, "imports")
	if err != nil {
		return nil, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var imports []ModuleImport
	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		for _, capture := range match.Captures {
			name := captureNames[capture.Index]
			text := capture.Node.Utf8Text(content)
			line := int(capture.Node.StartPosition().Row) + 1 // 1-indexed

			switch name {
			case "import.spec", "reexport.spec":
				imports = append(imports, ModuleImport{
					Specifier: text,
					IsDynamic: false,
					Line:      line,
				})
			case "dynamicImport.spec":
				imports = append(imports, ModuleImport{
					Specifier: text,
					IsDynamic: true,
					Line:      line,
				})
			}
		}
	}

	return imports, nil
}

// IsExternalSpecifier reports whether a specifier names an external module:
// a bare name that is neither relative nor absolute. External ids never
// appear in module definitions; the runtime resolves them through the
// external registry.
func IsExternalSpecifier(specifier string) bool {
	if specifier == "" {
		return false
	}
	if strings.HasPrefix(specifier, ".") {
		return false
	}
	if strings.HasPrefix(specifier, "/") {
		return false
	}
	// URL schemes load through the external registry too
	return true
}

// dialectFor returns the grammar dialect for a module id by extension.
func dialectFor(id string) string {
	if strings.HasSuffix(id, ".tsx") || strings.HasSuffix(id, ".jsx") {
		return "tsx"
	}
	return "typescript"
}
