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

// Package serve provides the serve command for pacco.
package serve

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/pacco/bundler"
	"bennypowers.dev/pacco/fs"
	"bennypowers.dev/pacco/pipeline"
	"bennypowers.dev/pacco/server"
)

// Cmd is the serve command: a dev server with hot reload over websocket.
var Cmd = &cobra.Command{
	Use:   "serve <entry>",
	Short: "Serve a bundle with file watching and hot reload",
	Long: `Serve hosts the built bundle as a live page. Edits under the source root
invalidate the changed module and its dependents, recompile it, and push the
replacement define to connected pages over a websocket.`,
	Example: `  # Serve src/app.tsx on the default address
  pacco serve /app.tsx --root src

  # Custom address and style layer
  pacco serve /app.tsx --root src --addr :3000 --style-layer`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().String("addr", ":8460", "Listen address")
	Cmd.Flags().Bool("style-layer", false, "Inject the stylesheet layer")
	Cmd.Flags().String("target", "es2022", "Output target (es2022, es2020, es2015)")
	Cmd.Flags().StringSlice("external", nil, "Additional external library names")
	Cmd.Flags().String("title", "", "Served page title")
	Cmd.Flags().BoolP("verbose", "v", false, "Log every request")
}

func run(cmd *cobra.Command, args []string) error {
	absRoot, err := filepath.Abs(viper.GetString("root"))
	if err != nil {
		return fmt.Errorf("invalid root directory: %w", err)
	}

	rooted := fs.NewRooted(fs.NewOSFileSystem(), absRoot)
	pipe, err := pipeline.New(rooted, pipeline.Config{Provider: viper.GetString("cdn")})
	if err != nil {
		return err
	}
	if err := pipe.Init(); err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	addr, _ := cmd.Flags().GetString("addr")
	styleLayer, _ := cmd.Flags().GetBool("style-layer")
	target, _ := cmd.Flags().GetString("target")
	externals, _ := cmd.Flags().GetStringSlice("external")
	title, _ := cmd.Flags().GetString("title")

	srv := server.New(pipe, server.Config{
		Addr: addr,
		Root: absRoot,
		Options: bundler.Options{
			EntryPoint:        args[0],
			IncludeStyleLayer: styleLayer,
			Target:            target,
			Externals:         externals,
		},
		Title:  title,
		Logger: log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return srv.ListenAndServe(ctx)
}
