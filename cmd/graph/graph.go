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

// Package graph provides the graph command for pacco.
package graph

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/pacco/bundler"
	"bennypowers.dev/pacco/fs"
	"bennypowers.dev/pacco/internal/output"
	"bennypowers.dev/pacco/pipeline"
)

// Cmd is the graph command: it prints the internal dependency graph of an
// entry module without emitting a bundle.
var Cmd = &cobra.Command{
	Use:   "graph <entry>",
	Short: "Print the dependency graph of an entry module",
	Example: `  # JSON graph
  pacco graph /app.tsx --root src

  # Graphviz
  pacco graph /app.tsx --root src --format dot | dot -Tsvg > graph.svg`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "json", "Output format (json, dot)")
}

func run(cmd *cobra.Command, args []string) error {
	absRoot, err := filepath.Abs(viper.GetString("root"))
	if err != nil {
		return fmt.Errorf("invalid root directory: %w", err)
	}

	osfs := fs.NewOSFileSystem()
	pipe, err := pipeline.New(fs.NewRooted(osfs, absRoot), pipeline.Config{Provider: viper.GetString("cdn")})
	if err != nil {
		return err
	}

	build, err := pipe.Build(bundler.Options{EntryPoint: args[0]})
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		data, err := json.MarshalIndent(build.DependencyGraph, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling graph: %w", err)
		}
		return output.Write(osfs, string(data))
	case "dot":
		return output.Write(osfs, renderDot(build.DependencyGraph))
	default:
		return fmt.Errorf("unknown format %q (supported: json, dot)", format)
	}
}

func renderDot(graph map[string][]string) string {
	ids := make([]string, 0, len(graph))
	for id := range graph {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("digraph modules {\n")
	b.WriteString("  rankdir=LR;\n")
	for _, id := range ids {
		for _, dep := range graph[id] {
			fmt.Fprintf(&b, "  %q -> %q;\n", id, dep)
		}
	}
	b.WriteString("}")
	return b.String()
}
