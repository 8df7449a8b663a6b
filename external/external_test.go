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
package external_test

import (
	"encoding/json"
	"strings"
	"testing"

	"bennypowers.dev/pacco/external"
)

func TestDefaults(t *testing.T) {
	r := external.NewRegistry(external.DefaultProvider)

	for _, name := range []string{"react", "react-dom", "react-dom/client"} {
		if !r.IsExternal(name) {
			t.Errorf("default external %q not registered", name)
		}
	}
	if r.IsExternal("lodash") {
		t.Error("unregistered name reported external")
	}

	record, ok := r.Record("react-dom")
	if !ok {
		t.Fatal("react-dom record missing")
	}
	if record.Global != "ReactDOM" {
		t.Errorf("react-dom global = %q", record.Global)
	}
	if len(record.Dependencies) != 1 || record.Dependencies[0] != "react" {
		t.Errorf("react-dom dependencies = %v", record.Dependencies)
	}
	if !record.Loadable() {
		t.Error("react-dom record is not loadable")
	}
}

func TestRegisterFirstWins(t *testing.T) {
	r := external.NewRegistry(external.DefaultProvider)

	r.Register("lodash", external.Record{URL: "https://esm.sh/lodash@4"})
	r.Register("lodash", external.Record{URL: "https://example.com/other"})

	record, _ := r.Record("lodash")
	if record.URL != "https://esm.sh/lodash@4" {
		t.Errorf("re-registration displaced the record: %q", record.URL)
	}

	count := 0
	for _, name := range r.Names() {
		if name == "lodash" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("lodash registered %d times", count)
	}
}

func TestRecordLoadable(t *testing.T) {
	tests := []struct {
		name   string
		record external.Record
		want   bool
	}{
		{"global only", external.Record{Global: "X"}, true},
		{"url only", external.Record{URL: "https://example.com/x.js"}, true},
		{"both", external.Record{Global: "X", URL: "https://example.com/x.js"}, true},
		{"neither", external.Record{Name: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Loadable(); got != tt.want {
				t.Errorf("Loadable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordsJSON(t *testing.T) {
	r := external.NewRegistry(external.DefaultProvider)
	r.Register("lodash", external.Record{URL: "https://esm.sh/lodash@4"})

	data, err := r.RecordsJSON()
	if err != nil {
		t.Fatalf("RecordsJSON failed: %v", err)
	}

	var records []external.Record
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		t.Fatalf("RecordsJSON is not valid JSON: %v", err)
	}

	// Registration order: defaults first, then caller additions
	if records[0].Name != "react" {
		t.Errorf("first record = %q, want react", records[0].Name)
	}
	if records[len(records)-1].Name != "lodash" {
		t.Errorf("last record = %q, want lodash", records[len(records)-1].Name)
	}
}

func TestProviderModuleURL(t *testing.T) {
	tests := []struct {
		provider external.Provider
		pkg      string
		version  string
		want     string
	}{
		{external.EsmSh, "react", "18", "https://esm.sh/react@18"},
		{external.EsmSh, "lodash", "", "https://esm.sh/lodash@latest"},
		{external.Unpkg, "d3", "7", "https://unpkg.com/d3@7?module"},
		{external.Jsdelivr, "vue", "3", "https://cdn.jsdelivr.net/npm/vue@3/+esm"},
	}

	for _, tt := range tests {
		if got := tt.provider.ModuleURL(tt.pkg, tt.version); got != tt.want {
			t.Errorf("%s.ModuleURL(%q, %q) = %q, want %q",
				tt.provider.Name, tt.pkg, tt.version, got, tt.want)
		}
	}
}

func TestProviderByName(t *testing.T) {
	for _, alias := range []string{"esm.sh", "esmsh", "esm"} {
		if p := external.ProviderByName(alias); p == nil || p.Name != "esm.sh" {
			t.Errorf("ProviderByName(%q) did not resolve esm.sh", alias)
		}
	}
	if p := external.ProviderByName("bogus"); p != nil {
		t.Errorf("ProviderByName(bogus) = %v, want nil", p)
	}
	if !external.IsValidProvider("jsdelivr") {
		t.Error("jsdelivr should be valid")
	}
}

func TestSortedNames(t *testing.T) {
	r := external.NewRegistry(external.DefaultProvider)
	r.Register("zebra", external.Record{Global: "Zebra"})
	r.Register("aardvark", external.Record{Global: "Aardvark"})

	names := r.SortedNames()
	if !strings.HasPrefix(names[0], "aardvark") {
		t.Errorf("SortedNames not sorted: %v", names)
	}
}
