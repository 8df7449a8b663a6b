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

// Package inject provides the inject command for pacco.
package inject

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/pacco/bundler"
	"bennypowers.dev/pacco/fs"
	"bennypowers.dev/pacco/inject"
	"bennypowers.dev/pacco/pipeline"
)

// Cmd is the inject command.
var Cmd = &cobra.Command{
	Use:   "inject <entry>",
	Short: "Build a bundle and write it into HTML files in-place",
	Long: `Inject builds the entry module's bundle and writes it into each matched
HTML file, replacing an existing pacco script tag or inserting a new one
before </body>.`,
	Example: `  # Inject the bundle into every page
  pacco inject /app.tsx --root src --glob "_site/**/*.html"

  # Dry run to see what would change
  pacco inject /app.tsx --root src --glob "_site/**/*.html" --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().String("glob", "", "Glob pattern to match HTML files (required)")
	Cmd.Flags().IntP("jobs", "j", 0, "Number of parallel workers (default: number of CPUs)")
	Cmd.Flags().Bool("dry-run", false, "Show what would change without modifying files")
	Cmd.Flags().Bool("style-layer", false, "Inject the stylesheet layer")
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	absRoot, err := filepath.Abs(viper.GetString("root"))
	if err != nil {
		return fmt.Errorf("invalid root directory: %w", err)
	}

	globPattern, _ := cmd.Flags().GetString("glob")
	if globPattern == "" {
		return fmt.Errorf("--glob is required")
	}
	matches, err := doublestar.FilepathGlob(globPattern)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stderr, "Warning: no files matched the glob pattern")
		return nil
	}

	pipe, err := pipeline.New(fs.NewRooted(osfs, absRoot), pipeline.Config{Provider: viper.GetString("cdn")})
	if err != nil {
		return err
	}
	styleLayer, _ := cmd.Flags().GetBool("style-layer")
	build, err := pipe.Build(bundler.Options{
		EntryPoint:        args[0],
		IncludeStyleLayer: styleLayer,
	})
	if err != nil {
		return err
	}

	jobs, _ := cmd.Flags().GetInt("jobs")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	results, stats := inject.Collect(inject.Batch(osfs, matches, build.Bundle, inject.Options{
		Parallel: jobs,
		DryRun:   dryRun,
	}))

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		out := struct {
			Results []inject.Result `json:"results"`
			Stats   inject.Stats    `json:"stats"`
		}{results, stats}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling results: %w", err)
		}
		fmt.Println(string(data))
	default:
		for _, r := range results {
			switch {
			case r.Error != "":
				fmt.Printf("error    %s: %s\n", r.File, r.Error)
			case r.Inserted:
				fmt.Printf("inserted %s\n", r.File)
			default:
				fmt.Printf("updated  %s\n", r.File)
			}
		}
		fmt.Printf("%d files: %d updated, %d inserted, %d errors\n",
			stats.Total, stats.Updated, stats.Inserted, stats.Errors)
	}

	if stats.Errors > 0 {
		return fmt.Errorf("%d files failed", stats.Errors)
	}
	return nil
}
