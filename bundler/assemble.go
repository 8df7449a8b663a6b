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
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed runtime/*.js
var runtimeFiles embed.FS

// entryPlaceholder is substituted with the entry id literal at assembly.
const entryPlaceholder = "__PACCO_ENTRY__"

func runtimeAsset(name string) string {
	data, err := runtimeFiles.ReadFile("runtime/" + name)
	if err != nil {
		// Embedded assets are part of the binary; absence is a build defect.
		panic("missing runtime asset " + name + ": " + err.Error())
	}
	return string(data)
}

// assemble concatenates the bundle in its fixed order: opener, runtime
// registry, external setup, optional style layer, module definitions in
// discovery order, bootstrap.
func (b *Bundler) assemble(entryID string, modules []string, codes map[string]string, opts Options) (string, error) {
	records, err := b.externals.RecordsJSON()
	if err != nil {
		return "", err
	}
	names, err := json.Marshal(b.externals.Names())
	if err != nil {
		return "", fmt.Errorf("serializing external names: %w", err)
	}

	var out strings.Builder
	out.WriteString("/* bundle generated by pacco */\n")
	out.WriteString("'use strict';\n")
	out.WriteString("(async function (global) {\n")

	out.WriteString(runtimeAsset("registry.js"))
	out.WriteString("\n")
	out.WriteString(runtimeAsset("externals.js"))
	out.WriteString("\n")

	// External setup: register every record, publish the readiness promise
	out.WriteString("for (const record of " + records + ") __pacco.registerExternal(record);\n")
	out.WriteString("global.__setupExternals = __pacco.setupExternals(" + string(names) + ");\n\n")

	if opts.IncludeStyleLayer {
		writeStyleLayer(&out, opts.StyleLayerURL)
	}

	for _, id := range modules {
		out.WriteString(codes[id])
		out.WriteString("\n\n")
	}

	entryLit, _ := json.Marshal(entryID)
	bootstrap := strings.ReplaceAll(runtimeAsset("bootstrap.js"), entryPlaceholder, string(entryLit))
	out.WriteString(bootstrap)

	out.WriteString("})(globalThis);\n")
	return out.String(), nil
}

// writeStyleLayer emits the idempotent stylesheet injector.
func writeStyleLayer(out *strings.Builder, url string) {
	urlLit, _ := json.Marshal(url)
	out.WriteString("if (typeof document !== 'undefined' && !document.querySelector('link[data-pacco-style-layer]')) {\n")
	out.WriteString("  const link = document.createElement('link');\n")
	out.WriteString("  link.rel = 'stylesheet';\n")
	out.WriteString("  link.href = " + string(urlLit) + ";\n")
	out.WriteString("  link.setAttribute('data-pacco-style-layer', '');\n")
	out.WriteString("  document.head.appendChild(link);\n")
	out.WriteString("}\n\n")
}
