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
	"regexp"
	"sort"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// requireBinding is one local binding introduced by an import specifier.
type requireBinding struct {
	kind     string // "default", "named", "namespace"
	local    string
	imported string // for named bindings
}

// requireGroup collects the bindings of every import of one resolved module.
type requireGroup struct {
	id       string
	bindings []requireBinding
	stars    bool // export * from this module
}

// exportEntry is one key of the module.exports epilogue.
type exportEntry struct {
	name string // exported name ("default" for the default export)
	expr string // expression producing the value
}

// edit is a byte-span replacement over the transformed source.
type edit struct {
	start, end  uint
	replacement string
}

// rewriter lowers the ES module syntax of one transformed source unit to
// require/module.exports form.
type rewriter struct {
	code    []byte
	resolve func(specifier string) string

	groupOrder []string
	groups     map[string]*requireGroup
	exports    []exportEntry
	starOrder  []string
	edits      []edit
	sawExport  bool
}

// rewriteModule parses transformed code and lowers its imports and exports.
// The resolve callback maps a raw specifier onto its module id: external
// names stay bare, internal specifiers become canonical absolute paths.
// Returns the factory body (preamble, rewritten statements, epilogue).
func rewriteModule(code []byte, resolve func(specifier string) string) (string, error) {
	parser := getParser("typescript")
	defer putParser("typescript", parser)

	tree := parser.Parse(code, nil)
	if tree == nil {
		return "", fmt.Errorf("failed to parse transformed code")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.Kind() == "ERROR" {
		return "", fmt.Errorf("transformed code did not parse")
	}

	rw := &rewriter{
		code:    code,
		resolve: resolve,
		groups:  make(map[string]*requireGroup),
	}

	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		switch child.Kind() {
		case "import_statement":
			rw.lowerImport(child)
		case "export_statement":
			rw.lowerExport(child)
		}
	}

	rw.lowerDynamicImports(root)

	if !rw.sawExport {
		rw.fallbackDefault(root)
	}

	return rw.assemble(), nil
}

// group returns the require group for a resolved id, creating it in
// first-occurrence order.
func (rw *rewriter) group(id string) *requireGroup {
	if g, ok := rw.groups[id]; ok {
		return g
	}
	g := &requireGroup{id: id}
	rw.groups[id] = g
	rw.groupOrder = append(rw.groupOrder, id)
	return g
}

// sourceSpecifier extracts the string source of an import or export
// statement, or "" when the statement has none.
func (rw *rewriter) sourceSpecifier(stmt *ts.Node) string {
	str := childOfKind(stmt, "string")
	if str == nil {
		return ""
	}
	frag := childOfKind(str, "string_fragment")
	if frag == nil {
		return "" // empty specifier
	}
	return frag.Utf8Text(rw.code)
}

// lowerImport records the bindings of one import statement and removes it
// from the body.
func (rw *rewriter) lowerImport(stmt *ts.Node) {
	specifier := rw.sourceSpecifier(stmt)
	if specifier == "" {
		return
	}
	g := rw.group(rw.resolve(specifier))

	if clause := childOfKind(stmt, "import_clause"); clause != nil {
		for i := uint(0); i < clause.NamedChildCount(); i++ {
			spec := clause.NamedChild(i)
			switch spec.Kind() {
			case "identifier":
				g.bindings = append(g.bindings, requireBinding{
					kind:  "default",
					local: spec.Utf8Text(rw.code),
				})
			case "namespace_import":
				if ident := childOfKind(spec, "identifier"); ident != nil {
					g.bindings = append(g.bindings, requireBinding{
						kind:  "namespace",
						local: ident.Utf8Text(rw.code),
					})
				}
			case "named_imports":
				rw.lowerNamedImports(spec, g)
			}
		}
	}

	rw.edits = append(rw.edits, edit{stmt.StartByte(), stmt.EndByte(), ""})
}

func (rw *rewriter) lowerNamedImports(named *ts.Node, g *requireGroup) {
	for i := uint(0); i < named.NamedChildCount(); i++ {
		spec := named.NamedChild(i)
		if spec.Kind() != "import_specifier" {
			continue
		}
		name := spec.ChildByFieldName("name")
		if name == nil {
			continue
		}
		imported := stringValue(name, rw.code)
		local := imported
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			local = alias.Utf8Text(rw.code)
		}
		g.bindings = append(g.bindings, requireBinding{
			kind:     "named",
			local:    local,
			imported: imported,
		})
	}
}

// lowerExport handles every recognized export shape: default exports,
// exported declarations, export clauses, and re-exports.
func (rw *rewriter) lowerExport(stmt *ts.Node) {
	rw.sawExport = true

	// Only `export ... from '...'` is a re-export; a bare string child can
	// also be an exported value.
	if hasToken(stmt, "from") {
		if specifier := rw.sourceSpecifier(stmt); specifier != "" {
			rw.lowerReexport(stmt, rw.resolve(specifier))
			return
		}
	}

	if hasToken(stmt, "default") {
		rw.lowerDefaultExport(stmt)
		return
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		rw.lowerExportedDeclaration(stmt, decl)
		return
	}

	if clause := childOfKind(stmt, "export_clause"); clause != nil {
		rw.lowerExportClause(clause, nil)
		rw.edits = append(rw.edits, edit{stmt.StartByte(), stmt.EndByte(), ""})
	}
	// Unrecognized export shapes are left alone
}

// lowerReexport handles `export { a as b } from`, `export * from`, and
// `export * as ns from`.
func (rw *rewriter) lowerReexport(stmt *ts.Node, id string) {
	g := rw.group(id)

	switch {
	case childOfKind(stmt, "export_clause") != nil:
		rw.lowerExportClause(childOfKind(stmt, "export_clause"), g)
	case childOfKind(stmt, "namespace_export") != nil:
		ns := childOfKind(stmt, "namespace_export")
		if ident := childOfKind(ns, "identifier"); ident != nil {
			rw.exports = append(rw.exports, exportEntry{
				name: ident.Utf8Text(rw.code),
				expr: requireVar(id),
			})
		}
	default: // export * from '...'
		if !g.stars {
			g.stars = true
			rw.starOrder = append(rw.starOrder, id)
		}
	}

	rw.edits = append(rw.edits, edit{stmt.StartByte(), stmt.EndByte(), ""})
}

// lowerExportClause records `export { a, b as c }` entries. With a non-nil
// group the clause re-exports from that module; otherwise names are local.
func (rw *rewriter) lowerExportClause(clause *ts.Node, g *requireGroup) {
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		spec := clause.NamedChild(i)
		if spec.Kind() != "export_specifier" {
			continue
		}
		name := spec.ChildByFieldName("name")
		if name == nil {
			continue
		}
		local := stringValue(name, rw.code)
		exported := local
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			exported = stringValue(alias, rw.code)
		}
		expr := local
		if g != nil {
			expr = member(requireVar(g.id), local)
		}
		rw.exports = append(rw.exports, exportEntry{name: exported, expr: expr})
	}
}

// lowerDefaultExport handles `export default <declaration|expression>`.
// Named declarations stay in place under their own name; anonymous values
// are captured into __default.
func (rw *rewriter) lowerDefaultExport(stmt *ts.Node) {
	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		if name := decl.ChildByFieldName("name"); name != nil {
			rw.edits = append(rw.edits, edit{stmt.StartByte(), stmt.EndByte(),
				decl.Utf8Text(rw.code)})
			rw.exports = append(rw.exports, exportEntry{name: "default",
				expr: name.Utf8Text(rw.code)})
			return
		}
		rw.edits = append(rw.edits, edit{stmt.StartByte(), stmt.EndByte(),
			"const __default = " + decl.Utf8Text(rw.code) + ";"})
		rw.exports = append(rw.exports, exportEntry{name: "default", expr: "__default"})
		return
	}

	if value := stmt.ChildByFieldName("value"); value != nil {
		rw.edits = append(rw.edits, edit{stmt.StartByte(), stmt.EndByte(),
			"const __default = " + value.Utf8Text(rw.code) + ";"})
		rw.exports = append(rw.exports, exportEntry{name: "default", expr: "__default"})
	}
}

// lowerExportedDeclaration strips the `export ` prefix from a declaration
// and records its names.
func (rw *rewriter) lowerExportedDeclaration(stmt, decl *ts.Node) {
	text := decl.Utf8Text(rw.code)
	if !strings.HasSuffix(text, ";") && !strings.HasSuffix(text, "}") {
		text += ";"
	}
	rw.edits = append(rw.edits, edit{stmt.StartByte(), stmt.EndByte(), text})

	switch decl.Kind() {
	case "function_declaration", "generator_function_declaration", "class_declaration":
		if name := decl.ChildByFieldName("name"); name != nil {
			n := name.Utf8Text(rw.code)
			rw.exports = append(rw.exports, exportEntry{name: n, expr: n})
		}
	case "lexical_declaration", "variable_declaration":
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			declarator := decl.NamedChild(i)
			if declarator.Kind() != "variable_declarator" {
				continue
			}
			name := declarator.ChildByFieldName("name")
			if name == nil || name.Kind() != "identifier" {
				continue // destructuring patterns are not enumerated
			}
			n := name.Utf8Text(rw.code)
			rw.exports = append(rw.exports, exportEntry{name: n, expr: n})
		}
	}
}

// lowerDynamicImports rewrites `import('<specifier>')` calls with literal
// arguments into require calls on the resolved id. The walk reuses the
// imports query so call sites anywhere in the tree are found.
func (rw *rewriter) lowerDynamicImports(root *ts.Node) {
	qm, err := GetQueryManager()
	if err != nil {
		return
	}
	query, err := qm.Query("typescript", "imports")
	if err != nil {
		return
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	matches := cursor.Matches(query, root, rw.code)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		var call *ts.Node
		var spec string
		for _, capture := range match.Captures {
			switch captureNames[capture.Index] {
			case "dynamicImport.call":
				call = &capture.Node
			case "dynamicImport.spec":
				spec = capture.Node.Utf8Text(rw.code)
			}
		}
		if call == nil || spec == "" {
			continue
		}
		rw.edits = append(rw.edits, edit{call.StartByte(), call.EndByte(),
			"require(" + jsString(rw.resolve(spec)) + ")"})
	}
}

// fallbackDefault surfaces a reasonable default export for modules that
// declare none: the first top-level function, class, or const.
func (rw *rewriter) fallbackDefault(root *ts.Node) {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		switch child.Kind() {
		case "function_declaration", "class_declaration":
			if name := child.ChildByFieldName("name"); name != nil {
				n := name.Utf8Text(rw.code)
				rw.exports = append(rw.exports, exportEntry{name: "default", expr: n})
				return
			}
		case "lexical_declaration":
			if !hasToken(child, "const") {
				continue
			}
			for j := uint(0); j < child.NamedChildCount(); j++ {
				declarator := child.NamedChild(j)
				if declarator.Kind() != "variable_declarator" {
					continue
				}
				if name := declarator.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
					n := name.Utf8Text(rw.code)
					rw.exports = append(rw.exports, exportEntry{name: "default", expr: n})
					return
				}
			}
		}
	}
}

// assemble applies the recorded edits and surrounds the body with the
// require preamble and the module.exports epilogue.
func (rw *rewriter) assemble() string {
	var b strings.Builder

	for _, id := range rw.groupOrder {
		g := rw.groups[id]
		v := requireVar(id)
		fmt.Fprintf(&b, "const %s = require(%s);\n", v, jsString(id))
		for _, binding := range g.bindings {
			switch binding.kind {
			case "default":
				fmt.Fprintf(&b, "const %s = %s.default ?? %s;\n", binding.local, v, v)
			case "named":
				fmt.Fprintf(&b, "const %s = %s;\n", binding.local, member(v, binding.imported))
			case "namespace":
				fmt.Fprintf(&b, "const %s = %s;\n", binding.local, v)
			}
		}
	}

	b.WriteString(applyEdits(rw.code, rw.edits))
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}

	b.WriteString("module.exports = {")
	first := true
	// default leads, then named exports in declaration order
	for _, pass := range []bool{true, false} {
		for _, entry := range rw.exports {
			if (entry.name == "default") != pass {
				continue
			}
			if !first {
				b.WriteString(",")
			}
			first = false
			fmt.Fprintf(&b, " %s: %s", propertyKey(entry.name), entry.expr)
		}
	}
	if !first {
		b.WriteString(" ")
	}
	b.WriteString("};\n")

	for _, id := range rw.starOrder {
		v := requireVar(id)
		fmt.Fprintf(&b,
			"for (const __k in %s) if (__k !== 'default' && !(__k in module.exports)) module.exports[__k] = %s[__k];\n",
			v, v)
	}

	return b.String()
}

// applyEdits replaces each edited byte span, in position order.
func applyEdits(code []byte, edits []edit) string {
	sorted := make([]edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	var b strings.Builder
	var pos uint
	for _, e := range sorted {
		if e.start < pos {
			continue // overlapping edit, first one wins
		}
		b.Write(code[pos:e.start])
		b.WriteString(e.replacement)
		pos = e.end
	}
	b.Write(code[pos:])
	return b.String()
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// requireVar derives the preamble variable name for a resolved id:
// two underscores plus the id with non-alphanumerics replaced by "_".
func requireVar(id string) string {
	return "__" + nonAlphanumeric.ReplaceAllString(id, "_")
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// member renders property access, bracketed when the name is not a plain
// identifier.
func member(object, name string) string {
	if identifierPattern.MatchString(name) {
		return object + "." + name
	}
	return object + "[" + jsString(name) + "]"
}

// propertyKey renders an object literal key.
func propertyKey(name string) string {
	if identifierPattern.MatchString(name) {
		return name
	}
	return jsString(name)
}

// childOfKind returns the first named child with the given kind.
func childOfKind(n *ts.Node, kind string) *ts.Node {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

// hasToken reports whether a node carries the given anonymous token
// (e.g. "default" in an export statement).
func hasToken(n *ts.Node, token string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.Child(i).Kind() == token {
			return true
		}
	}
	return false
}

// stringValue returns the text of an identifier or the fragment of a string
// literal node (string aliases in import/export specifiers).
func stringValue(n *ts.Node, code []byte) string {
	if n.Kind() == "string" {
		if frag := childOfKind(n, "string_fragment"); frag != nil {
			return frag.Utf8Text(code)
		}
		return ""
	}
	return n.Utf8Text(code)
}
