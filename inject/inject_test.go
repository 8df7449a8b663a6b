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
package inject_test

import (
	"strings"
	"testing"

	"bennypowers.dev/pacco/inject"
	"bennypowers.dev/pacco/internal/mapfs"
	"bennypowers.dev/pacco/testutil"
)

const bundle = "console.log('bundled');"

func TestDocumentInserts(t *testing.T) {
	page := testutil.LoadFixtureFile(t, "inject/page.html")

	out, inserted, err := inject.Document(page, bundle)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if !inserted {
		t.Error("expected a new script tag to be inserted")
	}
	html := string(out)
	if !strings.Contains(html, `data-pacco`) {
		t.Errorf("output missing marker attribute:\n%s", html)
	}
	if !strings.Contains(html, bundle) {
		t.Errorf("output missing bundle text:\n%s", html)
	}
	// Inserted inside body, after existing content
	if strings.Index(html, `<div id="root">`) > strings.Index(html, bundle) {
		t.Error("bundle inserted before page content")
	}
}

func TestDocumentReplaces(t *testing.T) {
	page := []byte(`<!doctype html><html><head></head><body>` +
		`<script type="module" data-pacco>console.log('stale');</script>` +
		`</body></html>`)

	out, inserted, err := inject.Document(page, bundle)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if inserted {
		t.Error("existing tag should be replaced, not inserted")
	}
	html := string(out)
	if strings.Contains(html, "stale") {
		t.Errorf("stale bundle survived:\n%s", html)
	}
	if !strings.Contains(html, bundle) {
		t.Errorf("output missing new bundle:\n%s", html)
	}
	if strings.Count(html, "data-pacco") != 1 {
		t.Errorf("expected exactly one marked script:\n%s", html)
	}
}

func TestDocumentIdempotent(t *testing.T) {
	page := testutil.LoadFixtureFile(t, "inject/page.html")

	once, _, err := inject.Document(page, bundle)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	twice, inserted, err := inject.Document(once, bundle)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if inserted {
		t.Error("second injection inserted a duplicate tag")
	}
	if string(once) != string(twice) {
		t.Errorf("injection is not idempotent:\nfirst:  %s\nsecond: %s", once, twice)
	}
}

func TestFileDryRun(t *testing.T) {
	mfs := mapfs.New()
	original := "<!doctype html><html><head></head><body></body></html>"
	mfs.AddFile("/site/index.html", original, 0644)

	result := inject.File(mfs, "/site/index.html", bundle, inject.Options{DryRun: true})
	if result.Error != "" {
		t.Fatalf("File failed: %s", result.Error)
	}
	if !result.Modified || !result.Inserted {
		t.Errorf("result = %+v", result)
	}

	content, err := mfs.ReadFile("/site/index.html")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != original {
		t.Error("dry run modified the file")
	}
}

func TestBatch(t *testing.T) {
	mfs := mapfs.New()
	page := "<!doctype html><html><head></head><body></body></html>"
	files := []string{"/site/a.html", "/site/b.html", "/site/c.html"}
	for _, f := range files {
		mfs.AddFile(f, page, 0644)
	}
	mfs.AddFile("/site/broken.html", "", 0644)
	mfs.Remove("/site/broken.html")

	results, stats := inject.Collect(
		inject.Batch(mfs, append(files, "/site/broken.html"), bundle, inject.Options{Parallel: 2}))

	if stats.Total != 4 {
		t.Errorf("stats.Total = %d, want 4", stats.Total)
	}
	if stats.Inserted != 3 {
		t.Errorf("stats.Inserted = %d, want 3", stats.Inserted)
	}
	if stats.Errors != 1 {
		t.Errorf("stats.Errors = %d, want 1", stats.Errors)
	}

	for _, f := range files {
		content, err := mfs.ReadFile(f)
		if err != nil {
			t.Fatalf("ReadFile(%s) failed: %v", f, err)
		}
		if !strings.Contains(string(content), bundle) {
			t.Errorf("%s was not injected", f)
		}
	}
	if len(results) != 4 {
		t.Errorf("len(results) = %d", len(results))
	}
}
