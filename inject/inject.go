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

// Package inject writes bundles directly into HTML files, updating an
// existing pacco script tag or inserting a new one before </body>.
package inject

import (
	"bytes"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"bennypowers.dev/pacco/fs"
)

// markerAttr tags the script element this package owns.
const markerAttr = "data-pacco"

// Options configures an inject run.
type Options struct {
	// Parallel is the number of workers for batch mode.
	Parallel int
	// DryRun prevents writing files when true.
	DryRun bool
}

// Result holds the result of injecting into a single file.
type Result struct {
	File     string `json:"file"`
	Modified bool   `json:"modified"`
	Inserted bool   `json:"inserted,omitempty"` // true if new tag, false if replaced
	Error    string `json:"error,omitempty"`
}

// Stats holds aggregate statistics from an inject operation.
type Stats struct {
	Total    int `json:"total"`
	Updated  int `json:"updated"`
	Inserted int `json:"inserted"`
	Errors   int `json:"errors"`
}

// File injects the bundle into one HTML file.
func File(osfs fs.FileSystem, path, bundle string, opts Options) Result {
	content, err := osfs.ReadFile(path)
	if err != nil {
		return Result{File: path, Error: err.Error()}
	}

	updated, inserted, err := Document(content, bundle)
	if err != nil {
		return Result{File: path, Error: err.Error()}
	}

	if !opts.DryRun {
		if err := osfs.WriteFile(path, updated, 0644); err != nil {
			return Result{File: path, Error: err.Error()}
		}
	}

	return Result{File: path, Modified: true, Inserted: inserted}
}

// Batch injects the bundle into multiple HTML files in parallel.
func Batch(osfs fs.FileSystem, files []string, bundle string, opts Options) <-chan Result {
	results := make(chan Result, len(files))

	go func() {
		defer close(results)

		parallel := opts.Parallel
		if parallel <= 0 {
			parallel = runtime.NumCPU()
		}

		jobs := make(chan string, len(files))
		var wg sync.WaitGroup
		for range parallel {
			wg.Go(func() {
				for path := range jobs {
					results <- File(osfs, path, bundle, opts)
				}
			})
		}

		for _, file := range files {
			jobs <- file
		}
		close(jobs)
		wg.Wait()
	}()

	return results
}

// Collect drains a result channel into a slice plus aggregate stats.
func Collect(results <-chan Result) ([]Result, Stats) {
	var all []Result
	var stats Stats
	for r := range results {
		all = append(all, r)
		stats.Total++
		switch {
		case r.Error != "":
			stats.Errors++
		case r.Inserted:
			stats.Inserted++
		case r.Modified:
			stats.Updated++
		}
	}
	return all, stats
}

// Document rewrites one HTML document, replacing the bundle carried by the
// existing pacco script tag or inserting a new tag at the end of <body>.
// Reports whether a new tag was inserted.
func Document(content []byte, bundle string) ([]byte, bool, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, false, fmt.Errorf("parsing HTML: %w", err)
	}

	script := findMarkedScript(doc)
	inserted := false
	if script == nil {
		body := findElement(doc, atom.Body)
		if body == nil {
			return nil, false, fmt.Errorf("document has no <body>")
		}
		script = &html.Node{
			Type:     html.ElementNode,
			Data:     "script",
			DataAtom: atom.Script,
			Attr: []html.Attribute{
				{Key: "type", Val: "module"},
				{Key: markerAttr},
			},
		}
		body.AppendChild(script)
		inserted = true
	}

	// Replace the script's children with the bundle text
	for child := script.FirstChild; child != nil; {
		next := child.NextSibling
		script.RemoveChild(child)
		child = next
	}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: bundle})

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, false, fmt.Errorf("rendering HTML: %w", err)
	}
	return out.Bytes(), inserted, nil
}

// findMarkedScript locates the script element carrying the pacco marker.
func findMarkedScript(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Script {
		for _, attr := range n.Attr {
			if attr.Key == markerAttr {
				return n
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findMarkedScript(child); found != nil {
			return found
		}
	}
	return nil
}

// findElement locates the first element with the given atom.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, a); found != nil {
			return found
		}
	}
	return nil
}
