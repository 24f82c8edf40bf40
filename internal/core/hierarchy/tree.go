// Package hierarchy derives project paths from the flat project listing.
package hierarchy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neilberkman/wbaccel/internal/core/models"
)

// Separator joins project names in a path
const Separator = "/"

// ErrCorruptHierarchy is returned when parent references cannot be walked
// to a root: a cycle, or a parent that is not in the listing.
var ErrCorruptHierarchy = errors.New("corrupt project hierarchy")

// Tree maps project IDs to projects. It is read-only after Build.
type Tree struct {
	nodes map[string]models.Project
}

// Build indexes projects by ID in a single pass
func Build(projects []models.Project) *Tree {
	nodes := make(map[string]models.Project, len(projects))
	for _, p := range projects {
		nodes[p.ID] = p
	}
	return &Tree{nodes: nodes}
}

// Len returns the number of projects in the tree
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Get returns the project with the given ID
func (t *Tree) Get(id string) (models.Project, bool) {
	p, ok := t.nodes[id]
	return p, ok
}

// PathOf returns the root-to-node path of a project, e.g. "A/B/C"
func (t *Tree) PathOf(id string) (string, error) {
	node, ok := t.nodes[id]
	if !ok {
		return "", fmt.Errorf("%w: unknown project %s", ErrCorruptHierarchy, id)
	}

	visited := make(map[string]bool)
	var names []string
	for {
		if visited[node.ID] {
			return "", fmt.Errorf("%w: cycle at project %q (%s)", ErrCorruptHierarchy, node.Name, node.ID)
		}
		visited[node.ID] = true
		names = append(names, node.Name)

		if node.IsRoot() {
			break
		}
		parent, ok := t.nodes[node.ParentID]
		if !ok {
			return "", fmt.Errorf("%w: project %q references missing parent %s", ErrCorruptHierarchy, node.Name, node.ParentID)
		}
		node = parent
	}

	// Collected leaf-to-root
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, Separator), nil
}
