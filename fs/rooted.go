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
package fs

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// RootedFileSystem maps absolute, Unix-style module paths onto a directory
// of an underlying filesystem. "/app.tsx" resolves to <root>/app.tsx, so a
// project directory behaves like the virtual root the pipeline compiles
// from.
type RootedFileSystem struct {
	inner FileSystem
	root  string
}

// NewRooted creates a filesystem rooted at dir.
func NewRooted(inner FileSystem, dir string) *RootedFileSystem {
	return &RootedFileSystem{inner: inner, root: dir}
}

// Root returns the underlying root directory.
func (f *RootedFileSystem) Root() string {
	return f.root
}

// translate maps a module path onto the underlying filesystem, refusing
// escapes above the root.
func (f *RootedFileSystem) translate(name string) string {
	cleaned := path.Clean("/" + name)
	cleaned = strings.TrimPrefix(cleaned, "/")
	return filepath.Join(f.root, filepath.FromSlash(cleaned))
}

func (f *RootedFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return f.inner.WriteFile(f.translate(name), data, perm)
}

func (f *RootedFileSystem) ReadFile(name string) ([]byte, error) {
	return f.inner.ReadFile(f.translate(name))
}

func (f *RootedFileSystem) Remove(name string) error {
	return f.inner.Remove(f.translate(name))
}

func (f *RootedFileSystem) MkdirAll(p string, perm fs.FileMode) error {
	return f.inner.MkdirAll(f.translate(p), perm)
}

func (f *RootedFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	return f.inner.ReadDir(f.translate(name))
}

func (f *RootedFileSystem) TempDir() string {
	return f.inner.TempDir()
}

func (f *RootedFileSystem) Stat(name string) (fs.FileInfo, error) {
	return f.inner.Stat(f.translate(name))
}

func (f *RootedFileSystem) Exists(p string) bool {
	return f.inner.Exists(f.translate(p))
}

func (f *RootedFileSystem) Open(name string) (fs.File, error) {
	return f.inner.Open(f.translate(name))
}
