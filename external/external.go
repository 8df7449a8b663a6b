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

// Package external maintains the registry of libraries that are not
// compiled from source: React and friends, plus anything the caller names.
// The registry holds load instructions (host global, CDN URL, dependency
// order); the loading itself happens inside the emitted bundle, which
// receives the records serialized into its external-setup stub.
package external

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Record describes how the runtime obtains one external library.
// At least one of Global or URL must be set for the library to be loadable.
type Record struct {
	// Name is the bare specifier modules import.
	Name string `json:"name"`
	// Global is the host-global property carrying the library, when the
	// host page already provides it.
	Global string `json:"global,omitempty"`
	// URL is a CDN module URL to dynamically import when no global is
	// present.
	URL string `json:"url,omitempty"`
	// Version pins the CDN version.
	Version string `json:"version,omitempty"`
	// Dependencies are external names that must load before this one.
	Dependencies []string `json:"dependencies,omitempty"`
}

// Loadable reports whether the record carries at least one load method.
func (r Record) Loadable() bool {
	return r.Global != "" || r.URL != ""
}

// Registry maps external names to their load records. Records live for the
// process lifetime; loaded exports are cached inside the running bundle,
// not here.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
}

// NewRegistry creates a registry pre-populated with the default externals
// (the React runtime pair) resolved through the given provider.
func NewRegistry(provider Provider) *Registry {
	r := &Registry{records: make(map[string]Record)}
	for _, record := range DefaultRecords(provider) {
		r.Register(record.Name, record)
	}
	return r
}

// DefaultRecords returns the externals every bundle carries: the React
// runtime and its DOM renderer.
func DefaultRecords(provider Provider) []Record {
	return []Record{
		{
			Name:    "react",
			Global:  "React",
			URL:     provider.ModuleURL("react", "18"),
			Version: "18",
		},
		{
			Name:         "react-dom",
			Global:       "ReactDOM",
			URL:          provider.ModuleURL("react-dom", "18"),
			Version:      "18",
			Dependencies: []string{"react"},
		},
		{
			Name:         "react-dom/client",
			Global:       "ReactDOM",
			URL:          provider.ModuleURL("react-dom", "18") + "/client",
			Version:      "18",
			Dependencies: []string{"react"},
		},
	}
}

// Register adds a record under name. Registering an already-known name is a
// no-op: first registration wins, so caller-specified externals cannot
// displace the defaults mid-build.
func (r *Registry) Register(name string, record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[name]; exists {
		return
	}
	record.Name = name
	r.records[name] = record
	r.order = append(r.order, name)
}

// IsExternal reports whether name is a registered external.
func (r *Registry) IsExternal(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[name]
	return ok
}

// Record returns the record for name.
func (r *Registry) Record(name string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[name]
	return record, ok
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// SortedNames returns all registered names sorted, for stable display.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}

// RecordsJSON serializes every record, in registration order, as a JSON
// array for embedding into the bundle's external-setup stub.
func (r *Registry) RecordsJSON() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]Record, 0, len(r.order))
	for _, name := range r.order {
		records = append(records, r.records[name])
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("serializing external records: %w", err)
	}
	return string(data), nil
}
