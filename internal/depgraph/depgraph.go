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

// Package depgraph tracks direct dependencies between module ids.
// The forward edges drive bundle assembly; the reverse edges drive
// transitive invalidation for hot reload.
package depgraph

import (
	"slices"
	"sync"
)

// Graph records direct dependency edges between module identifiers.
type Graph struct {
	mu sync.RWMutex

	// dependsOn maps module id -> set of ids it imports
	dependsOn map[string]map[string]bool

	// dependents maps module id -> set of ids that import it
	dependents map[string]map[string]bool
}

// New creates an empty dependency graph.
func New() *Graph {
	return &Graph{
		dependsOn:  make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// SetDependencies replaces the outgoing edges of id with deps, updating the
// reverse edges to match.
func (g *Graph) SetDependencies(id string, deps []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for dep := range g.dependsOn[id] {
		delete(g.dependents[dep], id)
	}

	set := make(map[string]bool, len(deps))
	for _, dep := range deps {
		set[dep] = true
		if g.dependents[dep] == nil {
			g.dependents[dep] = make(map[string]bool)
		}
		g.dependents[dep][id] = true
	}
	g.dependsOn[id] = set
}

// Remove drops id and its outgoing edges. Reverse edges pointing at id are
// kept so that a later re-registration sees the same dependents.
func (g *Graph) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for dep := range g.dependsOn[id] {
		delete(g.dependents[dep], id)
	}
	delete(g.dependsOn, id)
}

// Dependencies returns the direct dependencies of id, sorted.
func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps := g.dependsOn[id]
	result := make([]string, 0, len(deps))
	for dep := range deps {
		result = append(result, dep)
	}
	slices.Sort(result)
	return result
}

// Dependents returns all ids that directly depend on id, sorted.
func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps := g.dependents[id]
	result := make([]string, 0, len(deps))
	for dep := range deps {
		result = append(result, dep)
	}
	slices.Sort(result)
	return result
}

// TransitiveDependents returns every id that directly or indirectly depends
// on id, found by breadth-first traversal of the reverse edges.
func (g *Graph) TransitiveDependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	queue := []string{id}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for dep := range g.dependents[current] {
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	delete(visited, id)
	result := make([]string, 0, len(visited))
	for dep := range visited {
		result = append(result, dep)
	}
	slices.Sort(result)
	return result
}

// Snapshot returns a copy of the forward edges as id -> sorted dependency
// list.
func (g *Graph) Snapshot() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make(map[string][]string, len(g.dependsOn))
	for id, deps := range g.dependsOn {
		list := make([]string, 0, len(deps))
		for dep := range deps {
			list = append(list, dep)
		}
		slices.Sort(list)
		result[id] = list
	}
	return result
}

// Clear drops all edges.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dependsOn = make(map[string]map[string]bool)
	g.dependents = make(map[string]map[string]bool)
}
