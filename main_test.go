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
package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "pacco_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "pacco_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runPacco(t *testing.T, args ...string) string {
	t.Helper()
	cmd := exec.Command("./pacco_test", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("pacco %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

func TestBuildCommand(t *testing.T) {
	out := runPacco(t, "build", "/a.tsx", "--root", filepath.Join("testdata", "app", "linear"))

	for _, want := range []string{
		"define('/a.tsx', ['/b.ts'], ",
		"define('/b.ts', ['/c.ts'], ",
		"define('/c.ts', [], ",
		`await global.require("/a.tsx")`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("bundle missing %q", want)
		}
	}
}

func TestBuildReport(t *testing.T) {
	out := runPacco(t, "build", "/a.tsx",
		"--root", filepath.Join("testdata", "app", "linear"),
		"--format", "report")

	var report struct {
		Modules         []string            `json:"modules"`
		DependencyGraph map[string][]string `json:"dependencyGraph"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("report is not valid JSON: %v\n%s", err, out)
	}
	if len(report.Modules) != 3 || report.Modules[0] != "/a.tsx" {
		t.Errorf("modules = %v", report.Modules)
	}
}

func TestBuildHTMLFormat(t *testing.T) {
	out := runPacco(t, "build", "/main.tsx",
		"--root", filepath.Join("testdata", "app", "styles"),
		"--format", "html")

	for _, want := range []string{
		"<!doctype html>",
		`<div id="root"></div>`,
		"define('/g.css'",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestGraphCommand(t *testing.T) {
	out := runPacco(t, "graph", "/a.tsx", "--root", filepath.Join("testdata", "app", "linear"))

	var graph map[string][]string
	if err := json.Unmarshal([]byte(out), &graph); err != nil {
		t.Fatalf("graph is not valid JSON: %v\n%s", err, out)
	}
	if len(graph["/a.tsx"]) != 1 || graph["/a.tsx"][0] != "/b.ts" {
		t.Errorf("graph = %v", graph)
	}
}

func TestVersionCommand(t *testing.T) {
	out := runPacco(t, "version")
	if !strings.HasPrefix(out, "pacco ") {
		t.Errorf("version output = %q", out)
	}
}
