package blueprint

import "math"

// WorkflowStats is a coarse structural summary of one workflow snapshot.
// The complexity score is a display heuristic with no statistical meaning;
// stored versions persist it, so the formula and rounding must stay stable.
type WorkflowStats struct {
	NodeCount       int            `json:"nodeCount"`
	ConnectionCount int            `json:"connectionCount"`
	NodeTypes       map[string]int `json:"nodeTypes"`
	Complexity      int            `json:"complexity"`
}

// Stats computes node count, flattened connection count, a node type
// frequency map and the complexity score for a workflow.
func Stats(w *Workflow) WorkflowStats {
	nodeCount := len(w.Nodes)
	connectionCount := len(FlattenEdges(w))

	nodeTypes := make(map[string]int, len(w.Nodes))
	for _, node := range w.Nodes {
		nodeTypes[node.Type]++
	}

	return WorkflowStats{
		NodeCount:       nodeCount,
		ConnectionCount: connectionCount,
		NodeTypes:       nodeTypes,
		Complexity:      complexity(nodeCount, connectionCount),
	}
}

// complexity is nodeCount + 1.5 * connectionCount rounded to the nearest
// integer.
func complexity(nodeCount, connectionCount int) int {
	return int(math.Round(float64(nodeCount) + float64(connectionCount)*1.5))
}
