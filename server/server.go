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

// Package server hosts a build as a live page: it serves the bundle,
// watches the source root, and pushes hot-reload define replacements to
// connected clients over a websocket.
package server

import (
	"context"
	"errors"
	iofs "io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"bennypowers.dev/pacco/bundler"
	"bennypowers.dev/pacco/pipeline"
)

// hotReloadPath is the websocket endpoint the served page connects to.
const hotReloadPath = "/__pacco"

// Config configures a dev server.
type Config struct {
	// Addr is the listen address (e.g. ":8460").
	Addr string
	// Root is the OS directory mapped to "/" for module resolution and
	// watching.
	Root string
	// Build options for the served bundle.
	Options bundler.Options
	// Title is the served page title.
	Title string
	// Logger receives structured request/watch/reload events.
	Logger zerolog.Logger
}

// Server serves one pipeline's build with hot reload.
type Server struct {
	cfg  Config
	pipe *pipeline.Pipeline
	hub  *hub
	log  zerolog.Logger
}

// New creates a Server over an existing pipeline. The pipeline's
// filesystem must resolve the absolute module ids that Config.Root maps
// onto.
func New(pipe *pipeline.Pipeline, cfg Config) *Server {
	return &Server{
		cfg:  cfg,
		pipe: pipe,
		hub:  newHub(cfg.Logger),
		log:  cfg.Logger,
	}
}

// ListenAndServe runs the HTTP server and the source watcher until the
// context is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/bundle.js", s.handleBundle)
	mux.HandleFunc(hotReloadPath, s.hub.handleSocket)

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.withLogging(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		if err := s.watch(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error().Err(err).Msg("watcher stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.cfg.Addr).Str("entry", s.cfg.Options.EntryPoint).Msg("serving")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	build, err := s.pipe.Build(s.cfg.Options)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	page := pipeline.RenderHTML(build, pipeline.PageOptions{
		Title:         s.cfg.Title,
		BundleSrc:     "/bundle.js",
		HotReloadPath: hotReloadPath,
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	build, err := s.pipe.Build(s.cfg.Options)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, buildErr := range build.Errors {
		s.log.Warn().Err(buildErr).Msg("module failed; serving error module")
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(build.Bundle))
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// watch maps filesystem change events onto module ids and pushes hot
// reloads. Individual failures are logged, never fatal.
func (s *Server) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addWatchTree(watcher, s.cfg.Root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (s *Server) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		// New directories join the watch tree
		if err := addWatchTree(watcher, event.Name); err == nil {
			s.log.Debug().Str("path", event.Name).Msg("watching")
		}
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}

	id := s.moduleID(event.Name)
	if id == "" {
		return
	}

	code, err := s.pipe.HotReload(id)
	if err != nil {
		s.log.Warn().Str("module", id).Err(err).Msg("hot reload failed; requesting full reload")
		s.hub.broadcast(frame{Type: "reload"})
		return
	}

	s.log.Info().Str("module", id).Msg("hot reload")
	s.hub.broadcast(frame{Type: "define", ID: id, Code: code})
}

// moduleID maps an OS path under Root onto an absolute module id, or ""
// when the file is not a source unit.
func (s *Server) moduleID(osPath string) string {
	rel, err := filepath.Rel(s.cfg.Root, osPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	id := "/" + filepath.ToSlash(rel)
	switch strings.ToLower(path.Ext(id)) {
	case ".ts", ".tsx", ".js", ".jsx", ".css", ".scss", ".sass":
		return id
	default:
		return ""
	}
}

func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return filepath.WalkDir(root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}
