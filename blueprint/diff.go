package blueprint

import (
	"fmt"
	"sort"
	"strings"
)

// Edge is a flattened from/to pair extracted from the connections map. Output
// slot and index are discarded on purpose: two snapshots that only move an
// edge between output slots compare as unchanged. This matches the behavior
// of every stored version diff, so it must not be tightened.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Diff is the structural delta between two workflow snapshots.
type Diff struct {
	AddedNodes         []Node `json:"addedNodes"`
	ModifiedNodes      []Node `json:"modifiedNodes"`
	DeletedNodes       []Node `json:"deletedNodes"`
	AddedConnections   []Edge `json:"addedConnections"`
	DeletedConnections []Edge `json:"deletedConnections"`
}

// Empty reports whether the diff contains no changes.
func (d *Diff) Empty() bool {
	return len(d.AddedNodes) == 0 &&
		len(d.ModifiedNodes) == 0 &&
		len(d.DeletedNodes) == 0 &&
		len(d.AddedConnections) == 0 &&
		len(d.DeletedConnections) == 0
}

// Summary renders the node change counts as a short display string.
func (d *Diff) Summary() string {
	parts := []string{}
	if n := len(d.AddedNodes); n > 0 {
		parts = append(parts, fmt.Sprintf("+%d added", n))
	}
	if n := len(d.ModifiedNodes); n > 0 {
		parts = append(parts, fmt.Sprintf("~%d modified", n))
	}
	if n := len(d.DeletedNodes); n > 0 {
		parts = append(parts, fmt.Sprintf("-%d deleted", n))
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

// Compare computes the structural delta between two workflow snapshots.
// A nil old workflow means this is the first version: every node and edge of
// the new workflow is reported as added.
//
// Node identity across snapshots is the node id. A node present in both
// snapshots is reported as modified when any field differs, including the
// nested dynamic parameters. Unchanged nodes are omitted. Edge comparison is
// independent of node comparison and works over the flattened from/to list.
func Compare(old, new *Workflow) *Diff {
	if old == nil {
		return &Diff{
			AddedNodes:         append([]Node{}, new.Nodes...),
			ModifiedNodes:      []Node{},
			DeletedNodes:       []Node{},
			AddedConnections:   FlattenEdges(new),
			DeletedConnections: []Edge{},
		}
	}

	oldByID := make(map[string]*Node, len(old.Nodes))
	for i := range old.Nodes {
		oldByID[old.Nodes[i].ID] = &old.Nodes[i]
	}
	newByID := make(map[string]*Node, len(new.Nodes))
	for i := range new.Nodes {
		newByID[new.Nodes[i].ID] = &new.Nodes[i]
	}

	diff := &Diff{
		AddedNodes:    []Node{},
		ModifiedNodes: []Node{},
		DeletedNodes:  []Node{},
	}

	for _, newNode := range new.Nodes {
		oldNode, ok := oldByID[newNode.ID]
		if !ok {
			diff.AddedNodes = append(diff.AddedNodes, newNode)
			continue
		}
		if !nodeEqual(oldNode, &newNode) {
			diff.ModifiedNodes = append(diff.ModifiedNodes, newNode)
		}
	}

	for _, oldNode := range old.Nodes {
		if _, ok := newByID[oldNode.ID]; !ok {
			diff.DeletedNodes = append(diff.DeletedNodes, oldNode)
		}
	}

	oldEdges := FlattenEdges(old)
	newEdges := FlattenEdges(new)

	diff.AddedConnections = subtractEdges(newEdges, oldEdges)
	diff.DeletedConnections = subtractEdges(oldEdges, newEdges)

	return diff
}

// FlattenEdges extracts all connections of a workflow as bare from/to pairs.
// Iteration follows the node order of the workflow so that repeated calls on
// the same snapshot produce the same sequence; source ids that have no node
// (dangling sources) are appended last in sorted order.
func FlattenEdges(w *Workflow) []Edge {
	edges := []Edge{}
	visited := make(map[string]struct{}, len(w.Connections))

	appendFrom := func(fromID string) {
		outputs, ok := w.Connections[fromID]
		if !ok {
			return
		}
		visited[fromID] = struct{}{}
		for _, slot := range outputs.Main {
			for _, conn := range slot {
				edges = append(edges, Edge{From: fromID, To: conn.Node})
			}
		}
	}

	for _, node := range w.Nodes {
		appendFrom(node.ID)
	}

	rest := []string{}
	for fromID := range w.Connections {
		if _, ok := visited[fromID]; !ok {
			rest = append(rest, fromID)
		}
	}
	sort.Strings(rest)
	for _, fromID := range rest {
		appendFrom(fromID)
	}

	return edges
}

// subtractEdges returns the edges of a that have no exact from/to match in b,
// preserving the order of a.
func subtractEdges(a, b []Edge) []Edge {
	seen := make(map[Edge]struct{}, len(b))
	for _, e := range b {
		seen[e] = struct{}{}
	}
	out := []Edge{}
	for _, e := range a {
		if _, ok := seen[e]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// nodeEqual compares two nodes field by field, descending into the dynamic
// parameter and credential maps.
func nodeEqual(a, b *Node) bool {
	if a.ID != b.ID || a.Type != b.Type || a.Name != b.Name {
		return false
	}
	if a.Position != b.Position {
		return false
	}
	if !deepEqual(a.Parameters, b.Parameters) {
		return false
	}
	return deepEqual(a.Credentials, b.Credentials)
}

// deepEqual is a recursive structural comparison over dynamic JSON values.
// Numbers compare by value regardless of their Go representation, so a graph
// built in memory compares equal to the same graph after a JSON round trip.
func deepEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !deepEqual(v, w) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}

	if af, ok := toFloat(a); ok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}

	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
