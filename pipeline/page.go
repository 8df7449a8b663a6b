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
package pipeline

import (
	"encoding/json"
	"strings"

	"bennypowers.dev/pacco/bundler"
)

// PageOptions configures the host page a bundle executes in.
type PageOptions struct {
	// Title is the document title.
	Title string
	// ContainerID is the mount element id. Empty means "root".
	ContainerID string
	// BundleSrc references the bundle as an external script instead of
	// inlining it (the dev server serves it separately).
	BundleSrc string
	// HotReloadPath, when set, adds a websocket client that evaluates
	// pushed define replacements.
	HotReloadPath string
}

// RenderHTML wraps a build in a complete host page: a mount container, the
// __container contract, and the bundle itself. Evaluating the page's script
// installs the loader and mounts the entry component — the host-page
// analogue of executing a build in the browser editor.
func RenderHTML(build *bundler.Build, opts PageOptions) string {
	title := opts.Title
	if title == "" {
		title = "pacco"
	}
	containerID := opts.ContainerID
	if containerID == "" {
		containerID = "root"
	}

	var b strings.Builder
	b.WriteString("<!doctype html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<title>" + htmlEscape(title) + "</title>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<div id=\"" + htmlEscape(containerID) + "\"></div>\n")

	containerLit, _ := json.Marshal(containerID)
	b.WriteString("<script type=\"module\">\n")
	b.WriteString("globalThis.__container = document.getElementById(" + string(containerLit) + ");\n")
	b.WriteString("</script>\n")

	if opts.BundleSrc != "" {
		b.WriteString("<script type=\"module\" src=\"" + htmlEscape(opts.BundleSrc) + "\" data-pacco></script>\n")
	} else {
		b.WriteString("<script type=\"module\" data-pacco>\n")
		b.WriteString(build.Bundle)
		b.WriteString("</script>\n")
	}

	if opts.HotReloadPath != "" {
		pathLit, _ := json.Marshal(opts.HotReloadPath)
		b.WriteString("<script type=\"module\">\n")
		b.WriteString(hotReloadClient(string(pathLit)))
		b.WriteString("</script>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// hotReloadClient evaluates pushed define replacements against the host
// global, replacing the registry entries; a define frame does not re-render
// the mounted application. A reload frame reloads the whole page.
func hotReloadClient(pathLit string) string {
	var b strings.Builder
	b.WriteString("const proto = location.protocol === 'https:' ? 'wss' : 'ws';\n")
	b.WriteString("const sock = new WebSocket(proto + '://' + location.host + " + pathLit + ");\n")
	b.WriteString("sock.addEventListener('message', (event) => {\n")
	b.WriteString("  const frame = JSON.parse(event.data);\n")
	b.WriteString("  if (frame.type === 'define') {\n")
	b.WriteString("    (0, eval)(frame.code);\n")
	b.WriteString("    console.info('[pacco] hot reloaded ' + frame.id);\n")
	b.WriteString("  } else if (frame.type === 'reload') {\n")
	b.WriteString("    location.reload();\n")
	b.WriteString("  }\n")
	b.WriteString("});\n")
	return b.String()
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}
