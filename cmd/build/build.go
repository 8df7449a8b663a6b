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

// Package build provides the build command for pacco.
package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/pacco/bundler"
	"bennypowers.dev/pacco/fs"
	"bennypowers.dev/pacco/internal/output"
	"bennypowers.dev/pacco/pipeline"
)

// Cmd is the build command: it bundles one entry point into a single
// self-bootstrapping script.
var Cmd = &cobra.Command{
	Use:   "build <entry>",
	Short: "Bundle an entry module and its dependency graph",
	Long: `Build walks the import graph from the entry module, compiles every
internal module, and emits one bundle string that installs its own loader,
resolves externals, and mounts the entry component.`,
	Example: `  # Bundle src/app.tsx to stdout
  pacco build /app.tsx --root src

  # Write the bundle to a file, with the style layer
  pacco build /app.tsx --root src -o bundle.js --style-layer

  # Additional externals stay out of the bundle
  pacco build /app.tsx --root src --external lodash --external d3

  # Emit a full host page instead of the bare bundle
  pacco build /app.tsx --root src --format html`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().Bool("style-layer", false, "Inject the stylesheet layer")
	Cmd.Flags().String("style-layer-url", "", "Override the style layer stylesheet URL")
	Cmd.Flags().String("target", "es2022", "Output target (es2022, es2020, es2015)")
	Cmd.Flags().StringSlice("external", nil, "Additional external library names")
	Cmd.Flags().StringP("format", "f", "js", "Output format (js, html, report)")
	Cmd.Flags().String("title", "", "Page title for --format html")
}

func run(cmd *cobra.Command, args []string) error {
	absRoot, err := filepath.Abs(viper.GetString("root"))
	if err != nil {
		return fmt.Errorf("invalid root directory: %w", err)
	}

	osfs := fs.NewOSFileSystem()
	rooted := fs.NewRooted(osfs, absRoot)
	pipe, err := pipeline.New(rooted, pipeline.Config{Provider: viper.GetString("cdn")})
	if err != nil {
		return err
	}
	if err := pipe.Init(); err != nil {
		return err
	}

	styleLayer, _ := cmd.Flags().GetBool("style-layer")
	styleLayerURL, _ := cmd.Flags().GetString("style-layer-url")
	target, _ := cmd.Flags().GetString("target")
	externals, _ := cmd.Flags().GetStringSlice("external")

	build, err := pipe.Build(bundler.Options{
		EntryPoint:        args[0],
		IncludeStyleLayer: styleLayer,
		StyleLayerURL:     styleLayerURL,
		Target:            target,
		Externals:         externals,
	})
	if err != nil {
		return err
	}

	for _, warning := range pipe.Warnings() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	for _, buildErr := range build.Errors {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", buildErr)
	}

	format, _ := cmd.Flags().GetString("format")
	var out string
	switch format {
	case "js":
		out = build.Bundle
	case "html":
		title, _ := cmd.Flags().GetString("title")
		out = pipeline.RenderHTML(build, pipeline.PageOptions{Title: title})
	case "report":
		report := struct {
			Modules         []string            `json:"modules"`
			DependencyGraph map[string][]string `json:"dependencyGraph"`
			Bytes           int                 `json:"bytes"`
		}{build.Modules, build.DependencyGraph, len(build.Bundle)}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		out = string(data)
	default:
		return fmt.Errorf("unknown format %q (supported: js, html, report)", format)
	}

	return output.Write(osfs, out)
}
